package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"repairshop/pkg/config"
	"repairshop/pkg/db"
)

func main() {
	var (
		down    = flag.Int("down", 0, "roll back N steps instead of applying pending migrations")
		version = flag.Bool("version", false, "print the applied migration version and exit")
	)
	flag.Parse()

	cfg := config.Load()
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	if *version {
		v, dirty, err := db.MigrationVersion(cfg.MigrationsPath, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "version failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
		return
	}

	if *down > 0 {
		if err := db.MigrateDown(cfg.MigrationsPath, cfg, *down); err != nil {
			fmt.Fprintf(os.Stderr, "migrate down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d step(s)\n", *down)
		return
	}

	// This uses DIRECT_URL if set.
	if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}

	// Sanity check: ensure the runtime connection can open (uses DATABASE_URL if set).
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	pool.Close()

	fmt.Println("migrations applied")
}
