package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.CartTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.PayPal.ExchangeRate.Equal(decimal.NewFromInt(23500)))
	assert.Equal(t, "https://api-m.sandbox.paypal.com", cfg.PayPal.APIURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("PAYPAL_MODE", "live")
	t.Setenv("CHECKOUT_GATEWAY_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://api-m.paypal.com", cfg.PayPal.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Checkout.GatewayTimeout)
}

func TestLoadRejectsBadExchangeRate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAYPAL_EXCHANGE_RATE", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestCheckSecret(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Auth.CheckSecret(), ErrInsecureJWTSecret)

	assert.ErrorIs(t, AuthConfig{}.CheckSecret(), ErrInsecureJWTSecret)
	assert.NoError(t, AuthConfig{JWTSecret: "9f3c1e7a2b"}.CheckSecret())
}
