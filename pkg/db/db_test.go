package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/pkg/config"
)

func TestRuntimeConnString_PrefersDatabaseURL(t *testing.T) {
	cfg := config.Config{
		DatabaseURL: "postgres://pooler/db?pgbouncer=true",
		DB:          config.DBConfig{Host: "h", Port: "5432", Name: "n", User: "u", Password: "p"},
	}
	assert.Equal(t, cfg.DatabaseURL, runtimeConnString(cfg))
}

func TestMigrationConnString_PrefersDirectURL(t *testing.T) {
	cfg := config.Config{
		DatabaseURL: "postgres://pooler/db",
		DirectURL:   "postgres://direct/db",
	}
	assert.Equal(t, "postgres://direct/db", migrationConnString(cfg))

	cfg.DirectURL = ""
	assert.Equal(t, "postgres://pooler/db", migrationConnString(cfg))
}

func TestDSN_DefaultsSSLMode(t *testing.T) {
	got := dsn(config.DBConfig{Host: "localhost", Port: "5432", Name: "repairshop", User: "u", Password: "p"})
	assert.Equal(t, "postgres://u:p@localhost:5432/repairshop?sslmode=disable", got)
}

func TestPoolConfig_PgBouncerAndTuning(t *testing.T) {
	cfg := config.Config{
		DatabaseURL: "postgres://u:p@pooler:6543/db?pgbouncer=true",
		DB:          config.DBConfig{MaxConns: 7, LockTimeout: 3 * time.Second},
	}
	pcfg, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, pgx.QueryExecModeSimpleProtocol, pcfg.ConnConfig.DefaultQueryExecMode)
	assert.Equal(t, 0, pcfg.ConnConfig.StatementCacheCapacity)
	assert.Equal(t, int32(7), pcfg.MaxConns)
	assert.Equal(t, "repairshop", pcfg.ConnConfig.RuntimeParams["application_name"])
	_, ok := pcfg.ConnConfig.RuntimeParams["lock_timeout"]
	assert.False(t, ok, "poolers reject lock_timeout as a startup parameter")
}

func TestPoolConfig_DirectConnectionKeepsPreparedStatements(t *testing.T) {
	pcfg, err := poolConfig(config.Config{
		DatabaseURL: "postgres://u:p@db:5432/app?application_name=worker",
		DB:          config.DBConfig{LockTimeout: 3 * time.Second},
	})
	require.NoError(t, err)
	assert.NotEqual(t, pgx.QueryExecModeSimpleProtocol, pcfg.ConnConfig.DefaultQueryExecMode)
	assert.Equal(t, "worker", pcfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "3000", pcfg.ConnConfig.RuntimeParams["lock_timeout"])
}

func TestErrorCodes(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	lock := &pgconn.PgError{Code: "55P03"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsLockTimeout(unique))
	assert.True(t, IsLockTimeout(lock))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
