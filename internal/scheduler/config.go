package scheduler

import (
	"context"
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/settings"
)

// Frequency selects how often the auto-close sweep runs.
type Frequency string

const (
	FrequencyHourly    Frequency = "CADA_HORA"
	FrequencySixHourly Frequency = "CADA_6_HORAS"
	FrequencyDaily     Frequency = "DIARIO"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencySixHourly, FrequencyDaily:
		return true
	}
	return false
}

const (
	defaultEnabled   = true
	defaultGraceDays = 1
	defaultHour      = 9
	defaultMinute    = 0
)

// Config is the auto-close schedule derived from system_config.
type Config struct {
	Enabled   bool      `json:"enabled"`
	GraceDays int       `json:"grace_days"`
	Frequency Frequency `json:"frequency"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
}

// LoadConfig reads the schedule, substituting defaults for missing or malformed values.
func LoadConfig(ctx context.Context, store *settings.Store) Config {
	cfg := Config{
		Enabled:   store.GetBool(ctx, settings.KeyAutoCloseEnabled, defaultEnabled),
		GraceDays: store.GetInt(ctx, settings.KeyAutoCloseGraceDays, defaultGraceDays),
		Frequency: Frequency(store.GetString(ctx, settings.KeyAutoCloseFrequency, string(FrequencyDaily))),
		Hour:      store.GetInt(ctx, settings.KeyAutoCloseHour, defaultHour),
		Minute:    store.GetInt(ctx, settings.KeyAutoCloseMinute, defaultMinute),
	}
	if cfg.GraceDays < 0 {
		cfg.GraceDays = defaultGraceDays
	}
	cfg.Hour = min(max(cfg.Hour, 0), 23)
	cfg.Minute = min(max(cfg.Minute, 0), 59)
	return cfg
}

// CronSpec renders the standard five-field expression. Unknown frequencies run daily.
func (c Config) CronSpec() string {
	switch c.Frequency {
	case FrequencyHourly:
		return fmt.Sprintf("%d * * * *", c.Minute)
	case FrequencySixHourly:
		return fmt.Sprintf("%d */6 * * *", c.Minute)
	default:
		return fmt.Sprintf("%d %d * * *", c.Minute, c.Hour)
	}
}

// Describe renders the schedule for operators.
func (c Config) Describe() string {
	if !c.Enabled {
		return "disabled"
	}
	switch c.Frequency {
	case FrequencyHourly:
		return fmt.Sprintf("every hour at minute %02d", c.Minute)
	case FrequencySixHourly:
		return fmt.Sprintf("every 6 hours at minute %02d", c.Minute)
	default:
		return fmt.Sprintf("daily at %02d:%02d", c.Hour, c.Minute)
	}
}
