package core

import (
	"context"
	"log/slog"
	"time"
)

// CleanupConfig controls the import history cleanup job.
type CleanupConfig struct {
	RetentionDays int           // finished runs older than this are purged (default: 90)
	Interval      time.Duration // how often to run (default: 24h)
}

func (c CleanupConfig) withDefaults() CleanupConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 90
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	return c
}

// StartCleanupScheduler purges old import history immediately and then every
// Interval until ctx is cancelled. Failures are logged, not returned.
func (s *Service) StartCleanupScheduler(ctx context.Context, cfg CleanupConfig) {
	if s.history == nil {
		return
	}
	cfg = cfg.withDefaults()
	slog.Info("import history cleanup started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.Interval,
	)

	s.runCleanup(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import history cleanup stopped")
			return
		case <-ticker.C:
			s.runCleanup(ctx, cfg)
		}
	}
}

func (s *Service) runCleanup(ctx context.Context, cfg CleanupConfig) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	purged, err := s.history.PurgeImportHistory(ctx, cutoff)
	if err != nil {
		slog.Error("purge import history failed", "error", err)
		return
	}
	slog.Info("purged import history",
		"runs_purged", purged,
		"cutoff", cutoff.Format(time.DateOnly),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
