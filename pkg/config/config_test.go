package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "Production", cfg.BC.Environment)
	assert.Equal(t, 30*time.Second, cfg.BC.Timeout)
	assert.Equal(t, 5, cfg.BC.MaxAttempts)
	assert.True(t, cfg.BC.CompensateOrphans)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.BC.LoginHost)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Minute, cfg.Reconcile.LockTTL)
	assert.Equal(t, "1", cfg.Invoice.FiscalStamp.String())
	assert.Equal(t, "FA", cfg.Invoice.NumberPrefix)
	assert.Equal(t, 25, cfg.DB.MaxConns)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BC_TENANT_ID", "tenant-1")
	t.Setenv("BC_MAX_ATTEMPTS", "3")
	t.Setenv("BC_COMPENSATE_ORPHANS", "false")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("INVOICE_FISCAL_STAMP", "0.600")
	t.Setenv("DB_PORT", "no-es-numero")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "tenant-1", cfg.BC.TenantID)
	assert.Equal(t, 3, cfg.BC.MaxAttempts)
	assert.False(t, cfg.BC.CompensateOrphans)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.6", cfg.Invoice.FiscalStamp.String())
	assert.Equal(t, 5432, cfg.DB.Port, "valor inválido cae al defecto")
}

func TestLoad_InvalidFiscalStamp(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INVOICE_FISCAL_STAMP", "uno")

	_, err := Load()

	assert.Error(t, err)
}

func TestDSN_EscapesPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "bc", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/bc?sslmode=disable", c.DSN())
}
