package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ONE_TIME_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 2*time.Minute, cfg.OneTimeTTL)
	assert.Equal(t, "USD", cfg.Currency)
	assert.True(t, cfg.StartingBalance.Equal(decimal.RequireFromString("100000")))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("ONE_TIME_TTL", "90s")
	t.Setenv("WORKER_COUNT", "3")
	t.Setenv("STARTING_BALANCE", "250.50")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 90*time.Second, cfg.OneTimeTTL)
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, "250.5", cfg.StartingBalance.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad duration", "LOCK_TIMEOUT", "soon"},
		{"bad int", "RATE_RPS", "many"},
		{"bad driver", "STORE_DRIVER", "sqlite"},
		{"sub-cent starting balance", "STARTING_BALANCE", "10.001"},
		{"negative starting balance", "STARTING_BALANCE", "-1"},
		{"starting balance beyond column range", "STARTING_BALANCE", "10000000000.00"},
		{"zero one-time ttl", "ONE_TIME_TTL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_StartingBalanceAtColumnMaximum(t *testing.T) {
	t.Setenv("STARTING_BALANCE", "9999999999.99")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", cfg.StartingBalance.StringFixed(2))
}

func TestLoad_ProdRefusesDefaultSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("ONE_TIME_SECRET", "c")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoad_OneTimeSecretMustBeIndependent(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "same")
	t.Setenv("ONE_TIME_SECRET", "same")
	_, err := Load()
	assert.Error(t, err)
}
