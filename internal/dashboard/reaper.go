package dashboard

import (
	"context"
	"log/slog"
	"time"
)

// StartReaper runs a background sweep that drops dashboards with no
// registered sessions whose last access is older than maxIdle, by default
// hourly (spec.md §4.7). It stops when ctx is cancelled.
func StartReaper(ctx context.Context, reg *Registry, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("dashboard reaper started", "interval", interval, "max_idle", maxIdle)
		for {
			select {
			case <-ticker.C:
				if n := reg.ReapIdle(time.Now().UnixMilli(), maxIdle); n > 0 {
					slog.Info("dashboard reaper sweep completed", "removed", n)
				}
			case <-ctx.Done():
				slog.Info("dashboard reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
