package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"remindly/internal/database"
	"remindly/internal/logging"
	"remindly/internal/reminder"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSweepInProgress is returned when a cycle is requested while one is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// WorkerConfig configures the reminder worker.
type WorkerConfig struct {
	Schedule        string // standard 5-field cron spec
	Location        *time.Location
	Window          time.Duration
	Workers         int
	DeliveryTimeout time.Duration
	ClaimLease      time.Duration // must exceed DeliveryTimeout
}

// ReminderWorker drives sweep cycles on a cron cadence. Cycles never overlap
// within a process; across processes the claim lease and the conditional
// sent update keep each offset to a single delivery.
type ReminderWorker struct {
	sweeper    *Sweeper
	dispatcher *Dispatcher
	cfg        WorkerConfig
	log        zerolog.Logger
	clock      func() time.Time

	running sync.Mutex

	mu     sync.Mutex
	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewReminderWorker(store database.Store, deliverer Deliverer, cfg WorkerConfig, log zerolog.Logger) *ReminderWorker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 20 * time.Second
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = 2 * time.Minute
	}
	if cfg.ClaimLease <= cfg.DeliveryTimeout {
		cfg.ClaimLease = cfg.DeliveryTimeout + time.Minute
	}
	return &ReminderWorker{
		sweeper:    NewSweeper(store, reminder.DefaultPolicy, logging.Component(log, "sweeper")),
		dispatcher: NewDispatcher(store, deliverer, reminder.DefaultPolicy, cfg.DeliveryTimeout, cfg.ClaimLease, logging.Component(log, "dispatcher")),
		cfg:        cfg,
		log:        log,
		clock:      time.Now,
	}
}

// RunSweepCycle collects the offsets due at now and dispatches them. It returns
// ErrSweepInProgress if another cycle is still running, and a non-nil error
// only when the due set could not be loaded; per-offset failures are in the
// report.
func (w *ReminderWorker) RunSweepCycle(ctx context.Context, now time.Time) (SweepReport, error) {
	if !w.running.TryLock() {
		return SweepReport{Now: now}, ErrSweepInProgress
	}
	defer w.running.Unlock()

	start := time.Now()
	due, report, err := w.sweeper.CollectDue(ctx, now, w.cfg.Window)
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("collect due offsets: %w", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(w.cfg.Workers)

	for _, item := range due {
		if ctx.Err() != nil {
			mu.Lock()
			report.Halted++
			mu.Unlock()
			continue
		}
		item := item
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Halted++
				mu.Unlock()
				return nil
			}
			// Once started, a dispatch runs to completion even if the worker stops.
			outcome, err := w.dispatcher.Dispatch(context.WithoutCancel(ctx), now, item)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeDelivered:
				report.Sent++
			case OutcomeSkipped:
				report.Skipped++
			case OutcomeConflict:
				report.Conflicts++
			default:
				report.addFailure(item.Offset, item.Appointment.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	return report, nil
}

// Start registers the sweep on the cron schedule and starts triggering.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c != nil {
		return nil
	}

	cl := cronLogger{log: w.log}
	c := cron.New(
		cron.WithLocation(w.cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	w.runCtx, w.cancel = context.WithCancel(ctx)
	if _, err := c.AddFunc(w.cfg.Schedule, w.tick); err != nil {
		w.cancel()
		w.runCtx, w.cancel = nil, nil
		return fmt.Errorf("register sweep schedule %q: %w", w.cfg.Schedule, err)
	}
	w.c = c
	c.Start()

	w.log.Info().
		Str("schedule", w.cfg.Schedule).
		Str("tz", w.cfg.Location.String()).
		Dur("window", w.cfg.Window).
		Int("workers", w.cfg.Workers).
		Msg("reminder worker started")
	return nil
}

// Stop halts new dispatches and waits for in-flight ones, or for ctx.
func (w *ReminderWorker) Stop(ctx context.Context) {
	w.mu.Lock()
	c, cancel := w.c, w.cancel
	w.c, w.cancel = nil, nil
	w.mu.Unlock()
	if c == nil {
		return
	}

	start := time.Now()
	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		w.log.Warn().Msg("reminder worker stop timed out; in-flight dispatches abandoned")
	}
	w.log.Info().Dur("took", time.Since(start)).Msg("reminder worker stopped")
}

func (w *ReminderWorker) tick() {
	w.mu.Lock()
	ctx := w.runCtx
	w.mu.Unlock()

	report, err := w.RunSweepCycle(ctx, w.clock())
	w.logReport(report, err)
}

func (w *ReminderWorker) logReport(report SweepReport, err error) {
	switch {
	case errors.Is(err, ErrSweepInProgress):
		w.log.Warn().Msg("previous sweep still running; skipping")
	case err != nil:
		w.log.Error().Err(err).Msg("sweep failed")
	case report.Failed() > 0:
		w.log.Warn().Err(report.Err()).Str("summary", report.Summary()).Msg("sweep finished with failures")
	case report.Due > 0 || report.Corrected > 0:
		w.log.Info().Str("summary", report.Summary()).Msg("sweep finished")
	default:
		w.log.Debug().Str("summary", report.Summary()).Msg("sweep finished")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
