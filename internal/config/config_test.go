package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		setEnv       bool
		envValue     string
		expected     string
	}{
		{
			name:         "env variable set",
			key:          "TEST_KEY",
			defaultValue: "default",
			setEnv:       true,
			envValue:     "custom",
			expected:     "custom",
		},
		{
			name:         "env variable not set",
			key:          "TEST_KEY_NOT_SET",
			defaultValue: "default",
			setEnv:       false,
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}

			result := getEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "250ms")
	d, err := getEnvDuration("TEST_DURATION", time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	t.Setenv("TEST_DURATION", "soon")
	_, err = getEnvDuration("TEST_DURATION", time.Second)
	assert.Error(t, err)
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
		},
	}

	dsn := cfg.DSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, dsn)
}

// setRequired sets the required variables and clears the optional ones
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "test_token")
	t.Setenv("API_SECRET", "test_secret")
	t.Setenv("DB_PASSWORD", "test_db_password")
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "API_HOST", "API_PORT",
		"REDIS_ADDR", "REDIS_DB", "ADMIN_TG_ID", "LOG_LEVEL",
		"RATE_LIMIT_CAPACITY", "RATE_LIMIT_REFILL_INTERVAL", "RATE_LIMIT_TTL",
		"DELIVERY_TIMEOUT", "FANOUT_WORKERS", "SWEEP_INTERVAL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.BotToken)
	assert.Equal(t, "test_secret", cfg.APISecret)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "qrwatcher", cfg.Database.Name)
	assert.Equal(t, "0.0.0.0:8000", cfg.APIAddr())
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, int64(0), cfg.AdminID)
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.Notify.DeliveryTimeout)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Notify.SweepInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_TG_ID", "424242")
	t.Setenv("FANOUT_WORKERS", "8")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(424242), cfg.AdminID)
	assert.Equal(t, 8, cfg.Notify.Workers)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.TTL)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{name: "missing bot token", missing: "BOT_TOKEN"},
		{name: "missing api secret", missing: "API_SECRET"},
		{name: "missing db password", missing: "DB_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.missing, "")

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_TG_ID", "admin")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ADMIN_TG_ID")
}

func TestLoad_NonPositiveInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("SWEEP_INTERVAL", "0s")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SWEEP_INTERVAL")
}
