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

// Notification is one rendered message ready for delivery.
type Notification struct {
	OffsetID        string
	AppointmentID   string
	Email           string
	Name            string
	Category        reminder.Type
	Subject         string
	Message         string
	AppointmentTime time.Time
}

// Deliverer sends a notification. A nil error means the transport confirmed it.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// DeliveryError wraps a transport failure for one offset.
type DeliveryError struct {
	OffsetID string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver offset %s: %v", e.OffsetID, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{reminder.ErrDeliveryFailed, e.Err}
}

// Outcome classifies how a dispatch attempt ended.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeSkipped
	OutcomeConflict
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeConflict:
		return "conflict"
	default:
		return "failed"
	}
}

// Dispatcher delivers a due offset and records it as sent. MarkSent is only
// called after the deliverer confirms, and nothing else sets sent.
type Dispatcher struct {
	store     database.Store
	deliverer Deliverer
	policy    reminder.Policy
	timeout   time.Duration
	lease     time.Duration
	log       zerolog.Logger
	clock     func() time.Time
}

func NewDispatcher(store database.Store, deliverer Deliverer, policy reminder.Policy, timeout, lease time.Duration, log zerolog.Logger) *Dispatcher {
	if policy == nil {
		policy = reminder.DefaultPolicy
	}
	return &Dispatcher{
		store:     store,
		deliverer: deliverer,
		policy:    policy,
		timeout:   timeout,
		lease:     lease,
		log:       log,
		clock:     time.Now,
	}
}

// Dispatch claims, delivers and marks one offset. now is the instant the due
// set was evaluated at and is only logged; the claim lease and the sent
// timestamp always come from the wall clock.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time, due DueOffset) (Outcome, error) {
	log := d.log.With().Str("offset_id", due.Offset.ID).Str("appointment_id", due.Appointment.ID).
		Str("type", string(due.Reminder.Type)).Time("evaluated_at", now).Logger()

	email, name, err := due.Appointment.Recipient()
	if err != nil {
		log.Warn().Err(err).Msg("no recipient; will retry next cycle")
		return OutcomeSkipped, err
	}

	n := Notification{
		OffsetID:        due.Offset.ID,
		AppointmentID:   due.Appointment.ID,
		Email:           email,
		Name:            name,
		Category:        due.Reminder.Type,
		Subject:         reminder.Subject(due.Reminder.Type),
		Message:         d.policy.RenderMessage(due.Reminder.Type, due.Template.Direction, due.Template.Magnitude()),
		AppointmentTime: due.Appointment.SelectedDate,
	}

	if err := d.store.ClaimOffset(ctx, due.Offset.ID, d.clock(), d.lease); err != nil {
		if errors.Is(err, database.ErrConflict) {
			log.Debug().Msg("offset claimed or sent elsewhere")
			return OutcomeConflict, nil
		}
		return OutcomeFailed, fmt.Errorf("claim: %w", err)
	}

	if err := d.deliver(ctx, n); err != nil {
		derr := &DeliveryError{OffsetID: due.Offset.ID, Err: err}
		if rerr := d.store.ReleaseOffset(ctx, due.Offset.ID, err.Error()); rerr != nil {
			log.Error().Err(rerr).Msg("failed to release claim after delivery failure")
		}
		log.Warn().Err(err).Msg("delivery failed; offset stays unsent")
		return OutcomeFailed, derr
	}

	err = d.store.MarkSent(ctx, due.Offset.ID, models.ReminderSent{
		AppointmentID: due.Appointment.ID,
		ReminderType:  due.Reminder.Type,
		Recipient:     email,
		SentAt:        d.clock(),
	})
	if errors.Is(err, database.ErrConflict) {
		log.Warn().Msg("delivered but offset was already marked sent")
		return OutcomeConflict, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("delivered but not recorded: %w", err)
	}
	log.Info().Str("recipient", email).Msg("reminder sent")
	return OutcomeDelivered, nil
}

// deliver bounds the deliverer by the configured timeout. A deliverer that
// ignores its context is abandoned at the deadline and counted as failed.
func (d *Dispatcher) deliver(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.deliverer.Deliver(ctx, n)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("delivery timed out after %s: %w", d.timeout, ctx.Err())
	}
}
