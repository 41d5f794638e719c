package database

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes cache rows older than a cutoff.
type Pruner interface {
	PruneSearchHistory(ctx context.Context, olderThan time.Time) (int64, error)
	PrunePlaces(ctx context.Context, olderThan time.Time) (int64, error)
}

type RetentionPolicy struct {
	SearchRetention time.Duration
	PlaceRetention  time.Duration
}

// PruneOnce applies the policy a single time. A zero retention disables that table.
func PruneOnce(ctx context.Context, p Pruner, policy RetentionPolicy, logger *slog.Logger) error {
	now := time.Now().UTC()
	if policy.SearchRetention > 0 {
		n, err := p.PruneSearchHistory(ctx, now.Add(-policy.SearchRetention))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to prune search history", slog.Any("error", err))
			return err
		}
		logger.InfoContext(ctx, "Pruned search history", slog.Int64("rows", n))
	}
	if policy.PlaceRetention > 0 {
		n, err := p.PrunePlaces(ctx, now.Add(-policy.PlaceRetention))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to prune places cache", slog.Any("error", err))
			return err
		}
		logger.InfoContext(ctx, "Pruned superseded place records", slog.Int64("rows", n))
	}
	return nil
}

// RunRetention prunes immediately and then on every tick until ctx is done.
func RunRetention(ctx context.Context, p Pruner, policy RetentionPolicy, interval time.Duration, logger *slog.Logger) {
	_ = PruneOnce(ctx, p, policy, logger)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = PruneOnce(ctx, p, policy, logger)
		}
	}
}
