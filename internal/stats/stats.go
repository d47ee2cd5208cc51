// Package stats keeps running totals for the auto-close sweep.
package stats

import (
	"context"
	"time"
)

// Snapshot is the current statistics view.
type Snapshot struct {
	TotalClosed int64      `json:"total_closed"`
	LastRun     *time.Time `json:"last_run,omitempty"`
}

// AutoCloseStats records the outcome of sweeps.
type AutoCloseStats interface {
	AddClosed(ctx context.Context, n int64) (int64, error)
	MarkRun(ctx context.Context, at time.Time) error
	Snapshot(ctx context.Context) (Snapshot, error)
}
