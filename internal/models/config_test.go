package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	// Test server defaults
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, config.Server.IdleTimeout)
	assert.False(t, config.Server.TLSEnabled)

	// Test storage defaults
	assert.Equal(t, StorageTypeMemory, config.Storage.Type)
	assert.Equal(t, 25, config.Storage.Database.MaxOpenConns)

	// Test auth defaults
	assert.False(t, config.Auth.Enabled)
	assert.Equal(t, "dev-user", config.Auth.DevUserID)

	// Test rate limit defaults
	assert.True(t, config.RateLimit.Enabled)
	assert.Equal(t, RateLimitStrategyMemory, config.RateLimit.Strategy)
	assert.Equal(t, 15*time.Minute, config.RateLimit.Window)
	assert.Equal(t, 100, config.RateLimit.MaxRequests)
	assert.Equal(t, "open", config.RateLimit.FailureMode)
	assert.Equal(t, 0.01, config.RateLimit.CleanupProbability)
	assert.Equal(t, "iso", config.RateLimit.HeaderFormat)

	// Test redis defaults
	assert.Equal(t, "localhost:6379", config.Redis.Addr)

	// Test logging defaults
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)

	// Test metrics defaults
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, 9090, config.Metrics.Port)

	// Test observability defaults
	assert.Equal(t, "socialdash", config.Observability.ServiceName)
	assert.False(t, config.Observability.Tracing.Enabled)
	assert.Equal(t, 1.0, config.Observability.Tracing.SampleRate)

	require.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:     "invalid server port",
			modify:   func(c *Config) { c.Server.Port = -1 },
			errorMsg: "invalid server config",
		},
		{
			name:     "tls without cert",
			modify:   func(c *Config) { c.Server.TLSEnabled = true },
			errorMsg: "TLS cert file is required",
		},
		{
			name:     "unknown storage",
			modify:   func(c *Config) { c.Storage.Type = "mongo" },
			errorMsg: "invalid storage type",
		},
		{
			name:     "sqlite without dsn",
			modify:   func(c *Config) { c.Storage.Type = StorageTypeSQLite },
			errorMsg: "database DSN is required",
		},
		{
			name:     "auth without secret",
			modify:   func(c *Config) { c.Auth.Enabled = true },
			errorMsg: "jwt secret is required",
		},
		{
			name: "short jwt secret",
			modify: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = "short"
			},
			errorMsg: "at least 32 bytes",
		},
		{
			name:     "zero window",
			modify:   func(c *Config) { c.RateLimit.Window = 0 },
			errorMsg: "window must be at least 1ms",
		},
		{
			name:     "negative max requests",
			modify:   func(c *Config) { c.RateLimit.MaxRequests = -5 },
			errorMsg: "max requests must be positive",
		},
		{
			name:     "unknown strategy",
			modify:   func(c *Config) { c.RateLimit.Strategy = "token-bucket" },
			errorMsg: "invalid rate limit strategy",
		},
		{
			name:     "unknown failure mode",
			modify:   func(c *Config) { c.RateLimit.FailureMode = "maybe" },
			errorMsg: "invalid failure mode",
		},
		{
			name:     "cleanup probability above one",
			modify:   func(c *Config) { c.RateLimit.CleanupProbability = 1.5 },
			errorMsg: "cleanup probability",
		},
		{
			name:     "unknown header format",
			modify:   func(c *Config) { c.RateLimit.HeaderFormat = "http-date" },
			errorMsg: "invalid header format",
		},
		{
			name: "disabled limiter skips policy checks",
			modify: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Window = 0
			},
		},
		{
			name: "redis strategy needs an address",
			modify: func(c *Config) {
				c.RateLimit.Strategy = RateLimitStrategyRedis
				c.Redis.Addr = ""
			},
			errorMsg: "invalid redis config",
		},
		{
			name:   "redis address ignored for memory strategy",
			modify: func(c *Config) { c.Redis.Addr = "" },
		},
		{
			name:     "invalid log level",
			modify:   func(c *Config) { c.Logging.Level = "trace" },
			errorMsg: "invalid log level",
		},
		{
			name: "file output without path",
			modify: func(c *Config) {
				c.Logging.Output = "file"
			},
			errorMsg: "file path is required",
		},
		{
			name:     "metrics port out of range",
			modify:   func(c *Config) { c.Metrics.Port = 70000 },
			errorMsg: "metrics port",
		},
		{
			name: "otlp without endpoint",
			modify: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.Exporter = "otlp"
			},
			errorMsg: "otlp endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}
