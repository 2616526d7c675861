package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Ledger.Store)
	assert.True(t, cfg.Ledger.AutoApprove)
	assert.Equal(t, 5, cfg.Ledger.RetryMaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Ledger.RetryInitial())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "300-M", cfg.HTTP.RateLimit)
}

func TestLoad_DesdeVariablesDeEntorno(t *testing.T) {
	t.Setenv("LEDGER_STORE", "MEMORY")
	t.Setenv("INVENTORY_AUTO_APPROVE", "false")
	t.Setenv("INVENTORY_RETRY_MAX_ATTEMPTS", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Ledger.Store)
	assert.False(t, cfg.Ledger.AutoApprove)
	assert.Equal(t, 8, cfg.Ledger.RetryMaxAttempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_StoreInvalido(t *testing.T) {
	t.Setenv("LEDGER_STORE", "mongo")

	_, err := config.Load()
	assert.Error(t, err)
}
