package engine

import (
	"context"
	"time"

	"github.com/apischeduler/scheduler/internal/metrics"
)

// staleRunStore is the slice of store.RunStore the startup sweep needs.
type staleRunStore interface {
	SweepStale(ctx context.Context, cutoff time.Time) (int, error)
}

// SweepStale marks PENDING runs older than the grace period as FAILED.
// It is invoked once, before the first tick, to clean up runs left
// behind by a crash mid-execution — the in-flight set that would
// otherwise prevent double-dispatch does not survive a process restart.
func SweepStale(ctx context.Context, runs staleRunStore, pollInterval time.Duration) (int, error) {
	grace := 2 * pollInterval
	if grace < 5*time.Second {
		grace = 5 * time.Second
	}
	cutoff := time.Now().UTC().Add(-grace)
	n, err := runs.SweepStale(ctx, cutoff)
	if err == nil && n > 0 {
		metrics.RunsSweptTotal.Add(float64(n))
	}
	return n, err
}
