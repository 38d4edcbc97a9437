package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/test?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/test?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Tx.Timeout)
	assert.Equal(t, 0, cfg.Tx.MaxRetries)
	assert.Equal(t, "USD", cfg.Orders.DefaultCurrency)
	assert.Equal(t, 10, cfg.Orders.PageSize)
	assert.False(t, cfg.Inventory.LockNoWait)
	assert.Equal(t, 72*time.Hour, cfg.Jobs.CompletionGrace)
	assert.Equal(t, "odjassa-orders", cfg.Log.Service)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/x")
	t.Setenv("TX_TIMEOUT", "750ms")
	t.Setenv("ORDER_DEFAULT_CURRENCY", "xof")
	t.Setenv("INVENTORY_LOCK_NOWAIT", "true")
	t.Setenv("JOBS_ENABLED", "false")
	t.Setenv("ORDER_PAGE_SIZE", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Tx.Timeout)
	assert.Equal(t, "XOF", cfg.Orders.DefaultCurrency)
	assert.True(t, cfg.Inventory.LockNoWait)
	assert.False(t, cfg.Jobs.Enabled)
	assert.Equal(t, 20, cfg.Orders.PageSize)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/x")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "lots")
	t.Setenv("TX_LOCK_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2*time.Second, cfg.Tx.LockTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/x")
	t.Setenv("ORDER_DEFAULT_CURRENCY", "DOLLARS")
	t.Setenv("TX_MAX_RETRIES", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDER_DEFAULT_CURRENCY")
	assert.Contains(t, err.Error(), "TX_MAX_RETRIES")
}
