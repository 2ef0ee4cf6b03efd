package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindly/internal/auth"
	"remindly/internal/config"
	"remindly/internal/database"
	"remindly/internal/handlers"
	"remindly/internal/logging"
	"remindly/internal/services"
	"remindly/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := database.Open(cfg.Database, logging.Component(log, "database"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	deliverer, err := services.NewDeliverer(cfg, logging.Component(log, "delivery"))
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Sweep.Timezone)
	if err != nil {
		return fmt.Errorf("load sweep timezone: %w", err)
	}
	worker := services.NewReminderWorker(store, deliverer, services.WorkerConfig{
		Schedule:        cfg.Sweep.Schedule,
		Location:        loc,
		Window:          cfg.Sweep.Window,
		Workers:         cfg.Sweep.Workers,
		DeliveryTimeout: cfg.DeliveryTimeout,
		ClaimLease:      cfg.Sweep.ClaimLease,
	}, logging.Component(log, "reminder_worker"))

	if cfg.Sweep.Enabled {
		if err := worker.Start(ctx); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("SWEEP_ENABLED=false; reminders are only sent by remindctl or POST /admin/sweep")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logging.Component(log, "http")))

	// Configure trusted proxies
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(cfg.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSAllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	var issuer *auth.Issuer
	if cfg.AdminSecret != "" {
		issuer = auth.NewIssuer(cfg.AdminSecret, cfg.AdminTokenTTL)
	}
	booking := services.NewBookingService(store, logging.Component(log, "booking"))
	handlers.New(booking, worker, logging.Component(log, "handlers")).Register(router, issuer)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DeliveryTimeout+10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	worker.Stop(shutdownCtx)
	log.Info().Msg("server stopped")
	return nil
}
