// Package reaper removes expired URL records on a timer, independent of
// request traffic. It is the eager half of expiry reclamation; the resolve
// path's lazy delete remains the correctness backstop, so a missed cycle
// is harmless.
package reaper

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is how often expired records are swept.
const DefaultInterval = 5 * time.Minute

// escalateAfter is the number of consecutive failed cycles after which
// failures are logged at error level instead of warn, so a persistently
// unreachable store doesn't stay buried in warnings.
const escalateAfter = 3

// Store is the slice of the repository the reaper needs.
type Store interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Reaper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
}

func New(store Store, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Reaper{
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps expired records every interval until ctx is done. A failed
// cycle is logged and swallowed; the loop never stops on error.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	failures := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := r.store.DeleteExpired(ctx, time.Now())
			if err != nil {
				failures++

				level := slog.LevelWarn
				if failures >= escalateAfter {
					level = slog.LevelError
				}
				r.logger.Log(ctx, level, "failed to delete expired urls",
					slog.Any("err", err),
					slog.Int("consecutive_failures", failures),
				)
				continue
			}

			failures = 0
			if deleted > 0 {
				r.logger.Info("deleted expired urls", slog.Int64("count", deleted))
			}
		}
	}
}
