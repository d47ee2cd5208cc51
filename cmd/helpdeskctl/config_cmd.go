package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spec-kit/helpdesk-service/internal/app"
	"github.com/spec-kit/helpdesk-service/internal/scheduler"
)

// configChange is a parsed `config set` invocation.
type configChange struct {
	autoClose scheduler.SettingsUpdate
	prefix    *string
	digits    *int
}

var configKeys = map[string]func(*configChange, string) error{
	"enabled": func(c *configChange, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("enabled: %q is not a boolean", v)
		}
		c.autoClose.Enabled = &b
		return nil
	},
	"grace-days": intKey("grace-days", func(c *configChange, n int) { c.autoClose.GraceDays = &n }),
	"hour":       intKey("hour", func(c *configChange, n int) { c.autoClose.Hour = &n }),
	"minute":     intKey("minute", func(c *configChange, n int) { c.autoClose.Minute = &n }),
	"frequency": func(c *configChange, v string) error {
		f := scheduler.Frequency(strings.ToUpper(v))
		c.autoClose.Frequency = &f
		return nil
	},
	"prefix": func(c *configChange, v string) error {
		c.prefix = &v
		return nil
	},
	"digits": intKey("digits", func(c *configChange, n int) { c.digits = &n }),
}

func intKey(name string, apply func(*configChange, int)) func(*configChange, string) error {
	return func(c *configChange, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", name, v)
		}
		apply(c, n)
		return nil
	}
}

// parseConfigArgs turns key=value pairs into a change set. Range checks are
// left to the services so the CLI and the API reject the same values.
func parseConfigArgs(args []string) (configChange, error) {
	var change configChange
	if len(args) == 0 {
		return change, fmt.Errorf("at least one key=value pair required (keys: %s)", strings.Join(configKeyNames(), ", "))
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return change, fmt.Errorf("%q is not key=value", arg)
		}
		apply, known := configKeys[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			return change, fmt.Errorf("unknown key %q (keys: %s)", key, strings.Join(configKeyNames(), ", "))
		}
		if err := apply(&change, strings.TrimSpace(value)); err != nil {
			return change, err
		}
	}
	return change, nil
}

func configKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Auto-close and numbering settings"}
	cfg.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Change auto-close or numbering settings",
		Long: `Keys: enabled, grace-days, frequency (CADA_HORA, CADA_6_HORAS, DIARIO),
hour, minute, prefix, digits. The process that owns the scheduler picks up
schedule changes on its next refresh.`,
		Example: "  helpdeskctl config set frequency=DIARIO hour=7 minute=30\n  helpdeskctl config set prefix=INC- digits=5",
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := parseConfigArgs(args)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				return applyConfig(ctx, c, change)
			})
		},
	})
	return cfg
}

func applyConfig(ctx context.Context, c *app.Container, change configChange) error {
	if !change.autoClose.Empty() {
		if err := change.autoClose.Validate(); err != nil {
			return err
		}
	}
	out := map[string]any{}
	if change.prefix != nil || change.digits != nil {
		format, err := c.Numbers.UpdateFormat(ctx, change.prefix, change.digits)
		if err != nil {
			return err
		}
		out["numbering"] = format
	}
	if !change.autoClose.Empty() {
		status, err := c.Scheduler.UpdateSettings(ctx, change.autoClose)
		if err != nil {
			return err
		}
		out["auto_close"] = status
	}
	if viper.GetBool("json") {
		return printJSON(out)
	}
	if format, ok := out["numbering"]; ok {
		fmt.Printf("numbering: %+v\n", format)
	}
	if status, ok := out["auto_close"].(scheduler.Status); ok {
		fmt.Printf("auto-close: %s, cron %q, grace %d days\n", status.Schedule, status.CronExpression, status.GraceDays)
	}
	return nil
}
