package stats

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/settings"
)

// SettingsStats keeps the totals as system_config rows. It is used when Redis is not configured.
type SettingsStats struct {
	mu    sync.Mutex
	store *settings.Store
}

func NewSettingsStats(store *settings.Store) *SettingsStats {
	return &SettingsStats{store: store}
}

func (s *SettingsStats) AddClosed(ctx context.Context, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := int64(s.store.GetInt(ctx, settings.KeyAutoCloseTotal, 0)) + n
	if err := s.store.Set(ctx, settings.KeyAutoCloseTotal, strconv.FormatInt(total, 10)); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *SettingsStats) MarkRun(ctx context.Context, at time.Time) error {
	return s.store.Set(ctx, settings.KeyAutoCloseLastRun, at.UTC().Format(time.RFC3339))
}

func (s *SettingsStats) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{TotalClosed: int64(s.store.GetInt(ctx, settings.KeyAutoCloseTotal, 0))}
	if raw := s.store.GetString(ctx, settings.KeyAutoCloseLastRun, ""); raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			snap.LastRun = &at
		}
	}
	return snap, nil
}
