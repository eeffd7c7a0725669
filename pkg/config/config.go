package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all torsionscan-api driver facade configuration.
type Config struct {
	Server      ServerConfig
	RateLimit   RateLimitConfig
	Auth        AuthConfig
	Persistence PersistenceConfig
}

// ServerConfig holds the driver facade's HTTP server configuration.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 8420)
	MaxConnections  int           // Max concurrent connections
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
	MetricsAddr     string        // Separate listener address for /metrics
}

// RateLimitConfig holds rate limiting configuration for the driver facade.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	PerIP          bool
}

// AuthConfig holds JWT authentication configuration for the driver facade.
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// PersistenceConfig holds scan log configuration.
type PersistenceConfig struct {
	LogDir     string // Directory holding per-scan append-only logs
	SyncWrites bool   // fsync after every appended record
}

// EnergyThresholdDefault is the default energy_decrease_threshold (a.u.),
// per spec.md §4.E.
const EnergyThresholdDefault = 1e-5

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
			MetricsAddr:     ":9420",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerSec: 20,
			Burst:          40,
			PerIP:          true,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Persistence: PersistenceConfig{
			LogDir:     "./scan-logs",
			SyncWrites: false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	cfg := Default()

	if host := os.Getenv("TORSIONSCAN_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("TORSIONSCAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("TORSIONSCAN_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("TORSIONSCAN_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("TORSIONSCAN_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("TORSIONSCAN_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("TORSIONSCAN_TLS_KEY")
	}
	if addr := os.Getenv("TORSIONSCAN_METRICS_ADDR"); addr != "" {
		cfg.Server.MetricsAddr = addr
	}

	if enabled := os.Getenv("TORSIONSCAN_RATE_LIMIT_ENABLED"); enabled == "false" {
		cfg.RateLimit.Enabled = false
	}
	if qps := os.Getenv("TORSIONSCAN_RATE_LIMIT_QPS"); qps != "" {
		if v, err := strconv.ParseFloat(qps, 64); err == nil {
			cfg.RateLimit.RequestsPerSec = v
		}
	}
	if burst := os.Getenv("TORSIONSCAN_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = v
		}
	}

	if enabled := os.Getenv("TORSIONSCAN_AUTH_ENABLED"); enabled == "true" {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = os.Getenv("TORSIONSCAN_JWT_SECRET")
	}

	if dir := os.Getenv("TORSIONSCAN_LOG_DIR"); dir != "" {
		cfg.Persistence.LogDir = dir
	}
	if sync := os.Getenv("TORSIONSCAN_SYNC_WRITES"); sync == "true" {
		cfg.Persistence.SyncWrites = true
	}

	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSec <= 0 {
		return fmt.Errorf("invalid rate limit: %f (must be > 0)", c.RateLimit.RequestsPerSec)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but no JWT secret configured")
	}
	if c.Persistence.LogDir == "" {
		return fmt.Errorf("persistence log directory not specified")
	}
	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
