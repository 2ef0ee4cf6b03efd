package services

import (
	"errors"
	"fmt"
	"time"

	"remindly/internal/models"
)

// OffsetError is a failure isolated to one offset.
type OffsetError struct {
	OffsetID      string
	AppointmentID string
	Err           error
}

func (e OffsetError) Error() string {
	return fmt.Sprintf("offset %s (appointment %s): %v", e.OffsetID, e.AppointmentID, e.Err)
}

func (e OffsetError) Unwrap() error { return e.Err }

// SweepReport summarizes one sweep cycle.
type SweepReport struct {
	Now      time.Time
	Duration time.Duration

	Pending    int // unsent offsets loaded
	Corrected  int // fire_at rewritten to match the current anchor
	InWindow   int // fire_at inside the evaluation window
	Ineligible int // in window but blocked by lifecycle policy
	Due        int // handed to dispatch
	Sent       int
	Skipped    int // no recipient, or incomplete data; retried next cycle
	Conflicts  int // another run already handled the offset
	Halted     int // not started because the worker was stopping
	Failures   []OffsetError
}

func (r *SweepReport) addFailure(o models.ScheduledOffset, appointmentID string, err error) {
	r.Failures = append(r.Failures, OffsetError{OffsetID: o.ID, AppointmentID: appointmentID, Err: err})
}

// Failed is the number of offsets whose processing failed.
func (r SweepReport) Failed() int {
	return len(r.Failures)
}

// Err joins every per-offset failure, or returns nil.
func (r SweepReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Summary returns a one-line human-readable summary.
func (r SweepReport) Summary() string {
	return fmt.Sprintf("pending=%d corrected=%d due=%d sent=%d skipped=%d conflicts=%d failed=%d halted=%d (%s)",
		r.Pending, r.Corrected, r.Due, r.Sent, r.Skipped, r.Conflicts, r.Failed(), r.Halted,
		r.Duration.Round(time.Millisecond))
}
