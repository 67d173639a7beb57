package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("BOOKING_JWT_SECRET", "jwt")
	t.Setenv("BOOKING_ENTRY_TOKEN_SECRET", "entry")
	t.Setenv("BOOKING_SERVICE_PORT", "9090")
	t.Setenv("BOOKING_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BOOKING_APP_URL", "https://flexidesk.test/")
	t.Setenv("BOOKING_ANALYTICS_CACHE_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, "https://flexidesk.test", cfg.AppURL)
	assert.Equal(t, 2*time.Minute, cfg.AnalyticsCacheTTL)
	assert.Equal(t, "Asia/Manila", cfg.Timezone)
	assert.Equal(t, 15*time.Second, cfg.PaymentConfig.Timeout)
	assert.Equal(t, "flexidesk_booking", cfg.DBConfig.DBName)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_RequiresSecrets(t *testing.T) {
	t.Setenv("BOOKING_JWT_SECRET", "")
	t.Setenv("BOOKING_ENTRY_TOKEN_SECRET", "entry")

	_, err := Load()
	assert.ErrorContains(t, err, "BOOKING_JWT_SECRET")

	t.Setenv("BOOKING_JWT_SECRET", "jwt")
	t.Setenv("BOOKING_ENTRY_TOKEN_SECRET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "BOOKING_ENTRY_TOKEN_SECRET")
}

func TestLoad_EntryTokenSecretRequiredInDevelopment(t *testing.T) {
	t.Setenv("BOOKING_JWT_SECRET", "jwt")
	t.Setenv("BOOKING_APP_ENV", "development")
	t.Setenv("BOOKING_ENTRY_TOKEN_SECRET", "")

	_, err := Load()

	assert.ErrorContains(t, err, "BOOKING_ENTRY_TOKEN_SECRET")
}
