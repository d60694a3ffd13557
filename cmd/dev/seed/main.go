package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"repairshop/internal/audit"
	"repairshop/internal/auth"
	"repairshop/internal/payment"
	"repairshop/internal/personnel"
	"repairshop/internal/repair"
	"repairshop/pkg/config"
	"repairshop/pkg/db"
)

func main() {
	var (
		email    = flag.String("email", "admin@leselec.local", "encargado account email")
		name     = flag.String("name", "Administrador", "encargado full name")
		password = flag.String("password", "", "password to set (optional; at least 8 characters)")
		demo     = flag.Bool("demo", false, "also create a demo repair case and print its entry number")
	)
	flag.Parse()

	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "missing AUTH_JWT_SECRET (env or .env)")
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.MigrateConfig(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	staff := &personnel.Service{Store: personnel.NewRepository(pool), Audit: audit.NewRepository(pool)}
	st, err := staff.Save(ctx, personnel.SaveInput{
		Actor:        "seed",
		Email:        *email,
		FullName:     *name,
		Role:         string(personnel.RoleEncargado),
		TempPassword: *password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "save staff: %v\n", err)
		os.Exit(1)
	}

	signer := auth.Signer{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer, TTL: cfg.Auth.TokenTTL}
	token, exp, err := signer.Issue(st.ID, st.Email, string(st.Role), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("staff_id=%s email=%s\n", st.ID, st.Email)
	fmt.Printf("token (expires %s):\n%s\n", exp.Format(time.RFC3339), token)

	if !*demo {
		return
	}

	// No notifier: the demo case should not send real emails.
	ctrl := repair.NewController(repair.NewPostgresStore(pool), nil, payment.MockGateway{})
	out, err := ctrl.CreateCase(ctx, repair.Actor{ID: st.ID, Name: st.FullName}, repair.IntakeInput{
		Client:       &repair.ClientInput{Name: "Cliente", Surname: "Demo", Email: "cliente.demo@example.com"},
		Equipment:    []repair.EquipmentInput{{Type: "Motor trifásico", Brand: "WEG", Serial: "DEMO-1", Quantity: 1}},
		Receptionist: st.FullName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create demo case: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("demo case id=%d entry=%s\n", out.Case.ID, out.Case.EntryNumber)
}
