// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every service component.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, storage, rate limiting, etc.)
// - Defaults that work out of the box for local development
// - Validation at load time so a misconfigured limiter never starts serving
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Storage type constants
const (
	StorageTypeJSON     = "json"
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Rate limit strategy constants
const (
	RateLimitStrategyMemory = "memory"
	RateLimitStrategyRedis  = "redis"
)

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Storage: Post and daily metric persistence
// - Auth: Session token verification
// - RateLimit: Request rate limiting for the API routes
// - Redis: Connection for the shared rate limit counter
// - Logging, Metrics, Observability: structured logs, Prometheus, tracing
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Auth          AuthConfig          `yaml:"auth" json:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Redis         RedisConfig         `yaml:"redis" json:"redis"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// AuthConfig configures bearer token verification. The token issuer is external;
// this service only verifies signatures and reads the subject as the user id.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	JWTSecret string `yaml:"jwt_secret" json:"-"`
	Issuer    string `yaml:"issuer" json:"issuer"`
	// DevUserID is used for every request when auth is disabled.
	DevUserID string `yaml:"dev_user_id" json:"dev_user_id"`
}

// RateLimitConfig selects the limiter strategy and the policy applied to API routes.
//
// Strategy Notes:
// - memory: per-process counter, correct only for a single instance
// - redis: shared atomic counter, required once the service runs as replicas
// - failure_mode only applies to redis; memory has no external dependency
type RateLimitConfig struct {
	Enabled            bool          `yaml:"enabled" json:"enabled"`
	Strategy           string        `yaml:"strategy" json:"strategy"`
	Window             time.Duration `yaml:"window" json:"window"`
	MaxRequests        int           `yaml:"max_requests" json:"max_requests"`
	FailureMode        string        `yaml:"failure_mode" json:"failure_mode"`
	CleanupProbability float64       `yaml:"cleanup_probability" json:"cleanup_probability"`
	SweepInterval      time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	StoreTimeout       time.Duration `yaml:"store_timeout" json:"store_timeout"`
	KeyPrefix          string        `yaml:"key_prefix" json:"key_prefix"`
	HeaderFormat       string        `yaml:"header_format" json:"header_format"`
	Breaker            bool          `yaml:"breaker" json:"breaker"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr" json:"addr"`
	Password    string        `yaml:"password" json:"-"`
	DB          int           `yaml:"db" json:"db"`
	PoolSize    int           `yaml:"pool_size" json:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with development-friendly defaults.
//
// Default Values:
// - Port 8080, 30-second timeouts
// - Memory storage, so the service starts without a database
// - Rate limiting on with the in-process strategy: 100 requests per 15 minutes
// - JSON logs to stdout, metrics on port 9090
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{},
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				MaxAge:         86400,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Path: "./data/dashboard.json",
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
			},
		},
		Auth: AuthConfig{
			Enabled:   false,
			DevUserID: "dev-user",
		},
		RateLimit: RateLimitConfig{
			Enabled:            true,
			Strategy:           RateLimitStrategyMemory,
			Window:             15 * time.Minute,
			MaxRequests:        100,
			FailureMode:        "open",
			CleanupProbability: 0.01,
			StoreTimeout:       500 * time.Millisecond,
			KeyPrefix:          "ratelimit:",
			HeaderFormat:       "iso",
			Breaker:            true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    10,
			DialTimeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "socialdash",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}

	if c.RateLimit.Enabled && c.RateLimit.Strategy == RateLimitStrategyRedis {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid redis config: %w", err)
		}
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	validTypes := []string{StorageTypeJSON, StorageTypeMemory, StorageTypePostgres, StorageTypeSQLite}
	if !slices.Contains(validTypes, stc.Type) {
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}

	if stc.Type == StorageTypeJSON && stc.Path == "" {
		return errors.New("path is required for JSON storage")
	}

	if (stc.Type == StorageTypePostgres || stc.Type == StorageTypeSQLite) && stc.Database.DSN == "" {
		return errors.New("database DSN is required for database storage")
	}

	return nil
}

func (ac *AuthConfig) Validate() error {
	if ac.Enabled && ac.JWTSecret == "" {
		return errors.New("jwt secret is required when auth is enabled")
	}
	if ac.Enabled && len(ac.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if !ac.Enabled && ac.DevUserID == "" {
		return errors.New("dev user id is required when auth is disabled")
	}
	return nil
}

// Validate rejects non-positive windows and limits up front, since a limiter built
// from them would make every admission decision meaningless.
func (rc *RateLimitConfig) Validate() error {
	if !rc.Enabled {
		return nil
	}

	if rc.Strategy != RateLimitStrategyMemory && rc.Strategy != RateLimitStrategyRedis {
		return fmt.Errorf("invalid rate limit strategy: %s", rc.Strategy)
	}

	if rc.Window < time.Millisecond {
		return errors.New("window must be at least 1ms")
	}

	if rc.MaxRequests <= 0 {
		return errors.New("max requests must be positive")
	}

	if rc.FailureMode != "open" && rc.FailureMode != "closed" {
		return fmt.Errorf("invalid failure mode: %s", rc.FailureMode)
	}

	if rc.CleanupProbability < 0 || rc.CleanupProbability > 1 {
		return errors.New("cleanup probability must be between 0 and 1")
	}

	if rc.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}

	if rc.StoreTimeout < 0 {
		return errors.New("store timeout cannot be negative")
	}

	if rc.HeaderFormat != "iso" && rc.HeaderFormat != "epoch" {
		return fmt.Errorf("invalid header format: %s", rc.HeaderFormat)
	}

	return nil
}

func (rc *RedisConfig) Validate() error {
	if rc.Addr == "" {
		return errors.New("redis address is required for the redis strategy")
	}
	if rc.DB < 0 {
		return errors.New("redis db cannot be negative")
	}
	if rc.PoolSize < 0 {
		return errors.New("redis pool size cannot be negative")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	if oc.Tracing.Exporter != "stdout" && oc.Tracing.Exporter != "otlp" {
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("otlp endpoint is required for the otlp exporter")
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}

	return nil
}
