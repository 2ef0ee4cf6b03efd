// Command remindctl is the reminder engine's operations CLI.
//
// Usage:
//
//	remindctl sweep --now 2026-05-01T08:58:00Z
//	remindctl migrate
//	remindctl defaults --service <id> --type REMINDER --type FOLLOW_UP
//	remindctl token --subject ops@example.com
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindly/internal/auth"
	"remindly/internal/config"
	"remindly/internal/database"
	"remindly/internal/logging"
	"remindly/internal/reminder"
	"remindly/internal/services"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "remindctl",
		Short:         "Reminder scheduling and dispatch operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(sweepCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(defaultsCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sweep command
// --------------------------------------------------------------------------

func sweepCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep cycle and exit (for an external cron runner)",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				now = parsed
			}

			return withStore(func(ctx context.Context, cfg *config.Config, store database.Store, log zerolog.Logger) error {
				deliverer, err := services.NewDeliverer(cfg, logging.Component(log, "delivery"))
				if err != nil {
					return err
				}
				worker := services.NewReminderWorker(store, deliverer, services.WorkerConfig{
					Schedule:        cfg.Sweep.Schedule,
					Window:          cfg.Sweep.Window,
					Workers:         cfg.Sweep.Workers,
					DeliveryTimeout: cfg.DeliveryTimeout,
					ClaimLease:      cfg.Sweep.ClaimLease,
				}, logging.Component(log, "reminder_worker"))

				report, err := worker.RunSweepCycle(ctx, now)
				if err != nil {
					return err
				}
				log.Info().Str("summary", report.Summary()).Msg("sweep finished")
				for _, f := range report.Failures {
					log.Error().Err(f.Err).Str("offset_id", f.OffsetID).Str("appointment_id", f.AppointmentID).Msg("offset failed")
				}
				if report.Failed() > 0 {
					return fmt.Errorf("%d offsets failed", report.Failed())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "now", "", "Evaluate the window at this RFC 3339 instant instead of the current time")
	return cmd
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs STORE_DRIVER=postgres, got %q", cfg.Database.Driver)
			}
			// InitDB migrates as part of opening the connection.
			db, err := database.InitDB(cfg.Database, logging.Component(log, "database"))
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// defaults command
// --------------------------------------------------------------------------

func defaultsCmd() *cobra.Command {
	var (
		serviceID string
		types     []string
	)
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Attach reminder templates with the 48h/24h/1h default offsets to a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serviceID == "" {
				return errors.New("--service is required")
			}
			var parsed []reminder.Type
			for _, raw := range types {
				t, ok := reminder.ParseType(raw)
				if !ok {
					return fmt.Errorf("unknown reminder type %q", raw)
				}
				parsed = append(parsed, t)
			}

			return withStore(func(ctx context.Context, cfg *config.Config, store database.Store, log zerolog.Logger) error {
				booking := services.NewBookingService(store, logging.Component(log, "booking"))
				for _, t := range parsed {
					tmpl, err := booking.CreateDefaultReminder(ctx, serviceID, t)
					if err != nil {
						return fmt.Errorf("create %s defaults: %w", t, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d offsets\n", tmpl.ID, tmpl.Type, len(tmpl.Offsets))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&serviceID, "service", "", "Service ID")
	cmd.Flags().StringSliceVar(&types, "type", []string{string(reminder.TypeReminder)}, "Reminder type (repeatable)")
	return cmd
}

// --------------------------------------------------------------------------
// token command
// --------------------------------------------------------------------------

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			if cfg.AdminSecret == "" {
				return errors.New("ADMIN_JWT_SECRET is not set")
			}
			if ttl <= 0 {
				ttl = cfg.AdminTokenTTL
			}
			token, err := auth.NewIssuer(cfg.AdminSecret, ttl).GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "remindctl", "Token subject, usually the operator's email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to ADMIN_TOKEN_TTL)")
	return cmd
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}

func withStore(fn func(ctx context.Context, cfg *config.Config, store database.Store, log zerolog.Logger) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, log, err := load()
	if err != nil {
		return err
	}
	store, err := database.Open(cfg.Database, logging.Component(log, "database"))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	return fn(ctx, cfg, store, log)
}
