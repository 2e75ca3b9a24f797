package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "erc", cfg.Database.Schema)
	assert.Equal(t, 15*time.Second, cfg.Scheduler.RelayAuditOutbox)
	assert.Equal(t, 30, cfg.Compliance.CompoundingDays)

	rates, err := cfg.Compliance.Rates()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("80").Equal(rates[2024]))
	assert.True(t, decimal.RequireFromString("95").Equal(rates[2025]))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("COMPLIANCE_CHARGE_RATES", "2024:80,2025:95.50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	rates, err := cfg.Compliance.Rates()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("95.5").Equal(rates[2025]))
}

func TestLoadErrors(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("BCIERS_READ_TIMEOUT", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("bad charge rate", func(t *testing.T) {
		t.Setenv("COMPLIANCE_CHARGE_RATES", "2024:eighty")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "charge rate for 2024")
	})
}
