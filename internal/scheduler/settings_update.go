package scheduler

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/settings"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SettingsUpdate carries the schedule keys to change. Nil fields are left as stored.
type SettingsUpdate struct {
	Enabled   *bool      `json:"enabled,omitempty"`
	GraceDays *int       `json:"grace_days,omitempty"`
	Frequency *Frequency `json:"frequency,omitempty"`
	Hour      *int       `json:"hour,omitempty"`
	Minute    *int       `json:"minute,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u SettingsUpdate) Empty() bool {
	return u.Enabled == nil && u.GraceDays == nil && u.Frequency == nil && u.Hour == nil && u.Minute == nil
}

// Validate checks every field before anything is written.
func (u SettingsUpdate) Validate() error {
	details := map[string]any{}
	if u.GraceDays != nil && *u.GraceDays < 0 {
		details["grace_days"] = "must be zero or greater"
	}
	if u.Frequency != nil && !u.Frequency.Valid() {
		details["frequency"] = "must be one of CADA_HORA, CADA_6_HORAS, DIARIO"
	}
	if u.Hour != nil && (*u.Hour < 0 || *u.Hour > 23) {
		details["hour"] = "must be between 0 and 23"
	}
	if u.Minute != nil && (*u.Minute < 0 || *u.Minute > 59) {
		details["minute"] = "must be between 0 and 59"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid auto-close settings", details)
	}
	return nil
}

// values renders the update as settings keys in a fixed order.
func (u SettingsUpdate) values() [][2]string {
	var out [][2]string
	if u.Enabled != nil {
		out = append(out, [2]string{settings.KeyAutoCloseEnabled, strconv.FormatBool(*u.Enabled)})
	}
	if u.GraceDays != nil {
		out = append(out, [2]string{settings.KeyAutoCloseGraceDays, strconv.Itoa(*u.GraceDays)})
	}
	if u.Frequency != nil {
		out = append(out, [2]string{settings.KeyAutoCloseFrequency, string(*u.Frequency)})
	}
	if u.Hour != nil {
		out = append(out, [2]string{settings.KeyAutoCloseHour, strconv.Itoa(*u.Hour)})
	}
	if u.Minute != nil {
		out = append(out, [2]string{settings.KeyAutoCloseMinute, strconv.Itoa(*u.Minute)})
	}
	return out
}

// UpdateSettings validates u, stores it and rebuilds the cron entry from the
// result. Concurrent updates are applied one at a time so the armed entry
// always matches the last stored schedule.
func (s *Scheduler) UpdateSettings(ctx context.Context, u SettingsUpdate) (Status, error) {
	if u.Empty() {
		return Status{}, apperrors.NewValidationError("no auto-close settings given", nil)
	}
	if err := u.Validate(); err != nil {
		return Status{}, err
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	for _, kv := range u.values() {
		if err := s.settings.Set(ctx, kv[0], kv[1]); err != nil {
			return Status{}, apperrors.MapError(err)
		}
	}
	s.logger.Info("auto-close settings updated", zap.Any("update", u))

	if err := s.Reconfigure(ctx); err != nil {
		return Status{}, err
	}
	return s.Status(ctx)
}
