package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/app"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "helpdeskctl",
	Short: "Helpdesk administration CLI",
	Long: `helpdeskctl runs maintenance tasks against the helpdesk database:
manual auto-close sweeps, scheduler inspection, settings, ticket numbering, the
system account used for automatic changes and bearer tokens for testing.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("HELPDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("dsn", "", "postgres DSN (overrides POSTGRES_DSN)")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "command timeout")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func registerCommands() {
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(schedulerCmd())
	rootCmd.AddCommand(numberingCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(systemAccountCmd())
	rootCmd.AddCommand(tokenCmd())
}

func sweepCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Close resolved tickets now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				run := c.Scheduler.RunSweep
				if full {
					run = c.Scheduler.RunSweepFull
				}
				result, err := run(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(result)
				}
				printSweep(result)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "ignore the grace period and close every resolved ticket")
	return cmd
}

func schedulerCmd() *cobra.Command {
	sch := &cobra.Command{Use: "scheduler", Short: "Inspect the auto-close scheduler"}
	sch.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schedule derived from the current settings",
		Long: `Shows the schedule, grace period and statistics. The CLI never runs the
cron loop, so the next run is only reported by the API of the owning process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				if err := c.Scheduler.Reconfigure(ctx); err != nil {
					return err
				}
				status, err := c.Scheduler.Status(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(status)
				}
				lastRun := "-"
				if status.Stats.LastRun != nil {
					lastRun = status.Stats.LastRun.Format(time.RFC3339)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Setting", "Value"})
				tw.AppendRows([]table.Row{
					{"Enabled", status.Enabled},
					{"Schedule", status.Schedule},
					{"Cron", status.CronExpression},
					{"Grace days", status.GraceDays},
					{"Pending tickets", status.PendingTickets},
					{"Total auto-closed", status.Stats.TotalClosed},
					{"Last run", lastRun},
				})
				tw.Render()
				return nil
			})
		},
	})
	return sch
}

func numberingCmd() *cobra.Command {
	num := &cobra.Command{Use: "numbering", Short: "Ticket number correlative"}
	num.AddCommand(&cobra.Command{
		Use:   "last",
		Short: "Print the last issued correlative",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				last, err := c.Numbers.LastCorrelative(ctx)
				if err != nil {
					return err
				}
				return printValue("last_correlative", last)
			})
		},
	})
	num.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Record a correlative reset marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				last, err := c.Numbers.ResetCorrelative(ctx)
				if err != nil {
					return err
				}
				return printValue("last_correlative_before_reset", last)
			})
		},
	})
	return num
}

func systemAccountCmd() *cobra.Command {
	acct := &cobra.Command{Use: "system-account", Short: "Account used for automatic changes"}
	acct.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the system account when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				user, created, err := c.SystemAccount.Ensure(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": user.ID, "email": user.Email, "created": created})
				}
				state := "already present"
				if created {
					state = "created"
				}
				fmt.Printf("system account %s (id %d) %s\n", user.Email, user.ID, state)
				return nil
			})
		},
	})
	return acct
}

func tokenCmd() *cobra.Command {
	tok := &cobra.Command{Use: "token", Short: "Bearer tokens"}
	var userID int64
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id required")
			}
			return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
				user, err := c.Users.GetByID(ctx, userID)
				if err != nil {
					return fmt.Errorf("load user %d: %w", userID, err)
				}
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				token, expiresAt, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes).GenerateToken(user.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"token": token, "expires_at": expiresAt})
				}
				fmt.Println(token)
				return nil
			})
		},
	}
	issue.Flags().Int64Var(&userID, "user-id", 0, "user id")
	tok.AddCommand(issue)
	return tok
}

func withContainer(ctx context.Context, fn func(context.Context, *app.Container) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, viper.GetDuration("timeout"))
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dsn := viper.GetString("dsn"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres DSN required (--dsn or POSTGRES_DSN)")
	}
	cfg.Logger.Level = "warn"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Warn("migrations not applied", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	return fn(ctx, app.Build(cfg, pg.PoolHandle(), redis, logger))
}

func printSweep(result *scheduler.SweepResult) {
	if result.Skipped {
		fmt.Println("auto-close disabled; nothing done")
		return
	}
	fmt.Printf("mode %s: %d candidates, %d closed, %d changed since listing, %d failed\n",
		result.Mode, result.Candidates, len(result.Closed), len(result.Stale), len(result.Failures))
	if len(result.Failures) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Ticket", "Code", "Message"})
	for _, f := range result.Failures {
		tw.AppendRow(table.Row{f.TicketID, f.Code, f.Message})
	}
	tw.Render()
}

func printValue(key string, value any) error {
	if viper.GetBool("json") {
		return printJSON(map[string]any{key: value})
	}
	fmt.Printf("%s: %v\n", key, value)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
