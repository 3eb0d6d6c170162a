// Package config provides application configuration.
//
// Configuration is loaded from environment variables with sensible defaults.
// All timeouts and operational parameters are configurable.
//
// Configuration categories:
//   - Network: HTTP and gRPC listen addresses, public origin
//   - Session: idle reaping, chunk batching, broadcast/update queue capacities
//   - Backend: periodic sync/ping intervals for the backend channel
//   - Dashboard: reaper sweep interval and idle threshold
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SessionConfig bounds the capacities and timeouts of every session's
// internal queues and buffers.
type SessionConfig struct {
	ChunkMaxChunks int           // Max chunks per subscription delivery (default: 16)
	ChunkMaxBytes  int           // Max bytes per subscription delivery (default: 64KiB)
	BusCapacity    int           // Broadcast bus ring capacity (default: 64)
	UpdateQueueLen int           // Backend update queue capacity (default: 16)
	IdleTimeout    time.Duration // Idle duration before a session is reaped (default: 4h)
	SweepInterval  time.Duration // Reaper sweep interval (default: 1m)
}

// BackendConfig controls the periodic tasks the relay runs on every
// connected backend channel.
type BackendConfig struct {
	SyncInterval time.Duration // Periodic SequenceNumbers push (default: 5s)
	PingInterval time.Duration // Periodic latency probe (default: 2s)
}

// DashboardConfig controls the registry of listing dashboards.
type DashboardConfig struct {
	ReapInterval time.Duration // How often stale dashboards are dropped (default: 1h)
	MaxIdle      time.Duration // Dashboard idle threshold before reaping (default: 24h)
}

// Config holds all application configuration.
type Config struct {
	Port         string // HTTP listen port (frontend/CLI/dashboard routes)
	GRPCPort     string // gRPC listen port (RelayService)
	PublicOrigin string // Public base origin; only consulted by IsDevelopment (session URLs use the Open request's origin)
	TokenSecret  []byte // HMAC secret for session auth tokens
	AllowOrigins []string

	Session   SessionConfig
	Backend   BackendConfig
	Dashboard DashboardConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	secret, err := loadTokenSecret()
	if err != nil {
		return nil, fmt.Errorf("load token secret: %w", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		GRPCPort:     getEnv("GRPC_PORT", "9051"),
		PublicOrigin: getEnv("PUBLIC_ORIGIN", ""),
		TokenSecret:  secret,
		AllowOrigins: splitCSV(getEnv("ALLOW_ORIGINS", "*")),

		Session: SessionConfig{
			ChunkMaxChunks: getEnvInt("SHSH_CHUNK_MAX_CHUNKS", 16),
			ChunkMaxBytes:  getEnvInt("SHSH_CHUNK_MAX_BYTES", 64*1024),
			BusCapacity:    getEnvInt("SHSH_BUS_CAPACITY", 64),
			UpdateQueueLen: getEnvInt("SHSH_UPDATE_QUEUE_LEN", 16),
			IdleTimeout:    getEnvDuration("SHSH_SESSION_IDLE_TIMEOUT", 4*time.Hour),
			SweepInterval:  getEnvDuration("SHSH_SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Backend: BackendConfig{
			SyncInterval: getEnvDuration("SHSH_BACKEND_SYNC_INTERVAL", 5*time.Second),
			PingInterval: getEnvDuration("SHSH_BACKEND_PING_INTERVAL", 2*time.Second),
		},
		Dashboard: DashboardConfig{
			ReapInterval: getEnvDuration("SHSH_DASHBOARD_REAP_INTERVAL", time.Hour),
			MaxIdle:      getEnvDuration("SHSH_DASHBOARD_MAX_IDLE", 24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.GRPCPort == "" {
		return fmt.Errorf("GRPC_PORT cannot be empty")
	}
	if len(c.TokenSecret) == 0 {
		return fmt.Errorf("token secret cannot be empty")
	}
	if c.Session.UpdateQueueLen <= 0 {
		return fmt.Errorf("SHSH_UPDATE_QUEUE_LEN must be > 0")
	}
	return nil
}

// IsDevelopment returns true if no public origin was configured, or it
// points at a local address.
func (c *Config) IsDevelopment() bool {
	return c.PublicOrigin == "" ||
		strings.Contains(c.PublicOrigin, "localhost") ||
		strings.Contains(c.PublicOrigin, "127.0.0.1")
}

// loadTokenSecret reads SHSH_TOKEN_SECRET, or derives a process-local random
// one. A random secret means tokens from a prior process become invalid on
// restart, fine for development but a production deployment should set
// SHSH_TOKEN_SECRET explicitly so restarts don't invalidate open sessions.
func loadTokenSecret() ([]byte, error) {
	if v, ok := os.LookupEnv("SHSH_TOKEN_SECRET"); ok && v != "" {
		return []byte(v), nil
	}
	return randomSecret(32)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
