package session

import (
	"context"
	"log/slog"
	"time"
)

// Registry is the subset of the relay's session registry the reaper needs:
// enough to list candidates and remove the ones it decides to terminate.
type Registry interface {
	Sessions() map[string]*Session
	Remove(name string)
}

// ReaperConfig controls how often the idle-termination sweep runs and how
// long a session may sit without activity before being closed.
type ReaperConfig struct {
	SweepInterval time.Duration
	IdleTimeout   time.Duration
}

// DefaultReaperConfig matches the relay's production idle policy.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{SweepInterval: time.Minute, IdleTimeout: 4 * time.Hour}
}

// StartReaper runs a background sweep that closes and removes sessions
// which have had no Access() call within the configured idle timeout. It
// stops when ctx is cancelled.
func StartReaper(ctx context.Context, reg Registry, cfg ReaperConfig) {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}

	ticker := time.NewTicker(cfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("session reaper started", "interval", cfg.SweepInterval, "idle_timeout", cfg.IdleTimeout)
		for {
			select {
			case <-ticker.C:
				sweepIdleSessions(reg, cfg.IdleTimeout)
			case <-ctx.Done():
				slog.Info("session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepIdleSessions(reg Registry, idleTimeout time.Duration) {
	now := time.Now()
	closed := 0
	for name, sess := range reg.Sessions() {
		if sess.Terminated() {
			reg.Remove(name)
			continue
		}
		if now.Sub(sess.LastAccessed()) < idleTimeout {
			continue
		}
		slog.Info("session reaper closing idle session", "name", name, "idle_for", now.Sub(sess.LastAccessed()))
		sess.Close()
		reg.Remove(name)
		closed++
	}
	if closed > 0 {
		slog.Info("session reaper sweep completed", "closed", closed)
	}
}
