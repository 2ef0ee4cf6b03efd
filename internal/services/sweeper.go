package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/rs/zerolog"
)

// DueOffset is an unsent offset selected for dispatch, with the appointment
// and templates it was evaluated against.
type DueOffset struct {
	Offset      models.ScheduledOffset
	Appointment models.Appointment
	Reminder    models.ReminderTemplate
	Template    models.OffsetTemplate
}

// Sweeper selects the offsets that are due in the current evaluation window.
// It is also the only place fire_at is brought back in line with a
// rescheduled appointment.
type Sweeper struct {
	store  database.Store
	policy reminder.Policy
	log    zerolog.Logger
}

func NewSweeper(store database.Store, policy reminder.Policy, log zerolog.Logger) *Sweeper {
	if policy == nil {
		policy = reminder.DefaultPolicy
	}
	return &Sweeper{store: store, policy: policy, log: log}
}

// CollectDue loads every unsent offset, corrects stale fire times, and returns
// those inside [now, now+window] that the lifecycle policy lets fire. The
// report carries counters for everything that was looked at.
func (s *Sweeper) CollectDue(ctx context.Context, now time.Time, window time.Duration) ([]DueOffset, SweepReport, error) {
	report := SweepReport{Now: now}

	pending, err := s.store.PendingOffsets(ctx)
	if err != nil {
		return nil, report, err
	}
	report.Pending = len(pending)

	var due []DueOffset
	for _, o := range pending {
		if o.Appointment == nil || o.OffsetTemplate == nil || o.OffsetTemplate.Reminder == nil {
			s.log.Warn().Str("offset_id", o.ID).Msg("offset missing appointment or template; skipping")
			report.Skipped++
			continue
		}
		appt := *o.Appointment
		tmpl := *o.OffsetTemplate
		rem := *tmpl.Reminder

		fireAt := tmpl.FireAt(appt.SelectedDate)
		if !fireAt.Equal(o.FireAt) {
			err := s.store.UpdateFireAt(ctx, o.ID, o.FireAt, fireAt)
			switch {
			case errors.Is(err, database.ErrConflict):
				// Sent or corrected by a concurrent run; it is no longer ours to judge.
				report.Conflicts++
				continue
			case err != nil:
				report.addFailure(o, appt.ID, fmt.Errorf("correct fire_at: %w", err))
				s.log.Error().Err(err).Str("offset_id", o.ID).Msg("failed to persist corrected fire_at")
			default:
				report.Corrected++
				s.log.Debug().Str("offset_id", o.ID).Time("from", o.FireAt).Time("to", fireAt).Msg("fire_at corrected")
			}
			o.FireAt = fireAt
		}

		if !reminder.InWindow(o.FireAt, now, window) {
			continue
		}
		report.InWindow++

		rule, ok := s.policy.Rule(rem.Type, tmpl.Direction)
		if !ok || !s.policy.IsEligible(rem.Type, tmpl.Direction, appt.Status) {
			report.Ineligible++
			continue
		}
		if rule.SinceChange && !reminder.RecentlyChanged(appt.UpdatedAt, now, window) {
			// Missed its window; it simply stops being due and is never retried.
			report.Ineligible++
			continue
		}

		o.Appointment = nil
		o.OffsetTemplate = nil
		due = append(due, DueOffset{Offset: o, Appointment: appt, Reminder: rem, Template: tmpl})
	}
	report.Due = len(due)
	return due, report, nil
}
