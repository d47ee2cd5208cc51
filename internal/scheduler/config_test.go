package scheduler

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/settings"
)

func TestCronSpec(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Frequency: FrequencyHourly, Minute: 15}, "15 * * * *"},
		{Config{Frequency: FrequencySixHourly, Minute: 5}, "5 */6 * * *"},
		{Config{Frequency: FrequencyDaily, Hour: 2, Minute: 30}, "30 2 * * *"},
		{Config{Frequency: "WEEKLY", Hour: 9, Minute: 0}, "0 9 * * *"},
	}
	for _, tc := range cases {
		if got := tc.cfg.CronSpec(); got != tc.want {
			t.Errorf("CronSpec(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{Enabled: false, Frequency: FrequencyDaily}, "disabled"},
		{Config{Enabled: true, Frequency: FrequencyHourly, Minute: 7}, "every hour at minute 07"},
		{Config{Enabled: true, Frequency: FrequencySixHourly, Minute: 45}, "every 6 hours at minute 45"},
		{Config{Enabled: true, Frequency: FrequencyDaily, Hour: 9, Minute: 5}, "daily at 09:05"},
	}
	for _, tc := range cases {
		if got := tc.cfg.Describe(); got != tc.want {
			t.Errorf("Describe(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	store := settings.NewStore(memory.NewStore().Settings(), nil)
	cfg := LoadConfig(context.Background(), store)

	want := Config{Enabled: true, GraceDays: 1, Frequency: FrequencyDaily, Hour: 9, Minute: 0}
	if cfg != want {
		t.Fatalf("defaults = %+v, want %+v", cfg, want)
	}
}

func TestLoadConfigClampsAndFallsBack(t *testing.T) {
	ctx := context.Background()
	store := settings.NewStore(memory.NewStore().Settings(), nil)
	values := map[string]string{
		settings.KeyAutoCloseEnabled:   "false",
		settings.KeyAutoCloseGraceDays: "-3",
		settings.KeyAutoCloseFrequency: "CADA_HORA",
		settings.KeyAutoCloseHour:      "31",
		settings.KeyAutoCloseMinute:    "-4",
	}
	for k, v := range values {
		if err := store.Set(ctx, k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	cfg := LoadConfig(ctx, store)
	want := Config{Enabled: false, GraceDays: 1, Frequency: FrequencyHourly, Hour: 23, Minute: 0}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}

	if err := store.Set(ctx, settings.KeyAutoCloseGraceDays, "zero"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, settings.KeyAutoCloseMinute, "75"); err != nil {
		t.Fatalf("set: %v", err)
	}
	cfg = LoadConfig(ctx, store)
	if cfg.GraceDays != 1 || cfg.Minute != 59 {
		t.Fatalf("grace=%d minute=%d", cfg.GraceDays, cfg.Minute)
	}

	if err := store.Set(ctx, settings.KeyAutoCloseGraceDays, "0"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := LoadConfig(ctx, store).GraceDays; got != 0 {
		t.Fatalf("zero grace days = %d", got)
	}
}
