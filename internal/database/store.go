package database

import (
	"context"
	"errors"
	"time"

	"remindly/internal/models"
	"remindly/internal/reminder"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional update matched no row: another
	// run already handled the offset, or holds its claim.
	ErrConflict = errors.New("conditional update lost")
)

// Store is the persistence API the reminder engine and booking layer use.
//
// All offset mutations are conditional. Implementations must never set Sent
// back to false.
type Store interface {
	// PendingOffsets returns every offset with sent=false with Appointment
	// (and its User), OffsetTemplate and OffsetTemplate.Reminder populated.
	PendingOffsets(ctx context.Context) ([]models.ScheduledOffset, error)
	// UpdateFireAt replaces fire_at if the offset is unsent and still holds prev.
	UpdateFireAt(ctx context.Context, offsetID string, prev, next time.Time) error
	// ClaimOffset leases an unsent, unclaimed (or expired-claim) offset until
	// at+lease. at must be the wall-clock time of the claim, never a cycle's
	// evaluation instant.
	ClaimOffset(ctx context.Context, offsetID string, at time.Time, lease time.Duration) error
	// MarkSent flips sent to true if it is still false and records the delivery.
	MarkSent(ctx context.Context, offsetID string, delivery models.ReminderSent) error
	// ReleaseOffset drops the claim on an unsent offset and records the failure.
	ReleaseOffset(ctx context.Context, offsetID string, reason string) error

	CreateService(ctx context.Context, svc *models.Service) error
	GetService(ctx context.Context, id string) (*models.Service, error)
	CreateReminder(ctx context.Context, serviceID string, tmpl *models.ReminderTemplate) error
	RemindersForService(ctx context.Context, serviceID string) ([]models.ReminderTemplate, error)

	// CreateAppointment persists the appointment together with its offsets.
	CreateAppointment(ctx context.Context, appt *models.Appointment, offsets []models.ScheduledOffset) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status reminder.Status, at time.Time) error
	RescheduleAppointment(ctx context.Context, id string, selectedDate, at time.Time) error
	OffsetsForAppointment(ctx context.Context, appointmentID string) ([]models.ScheduledOffset, error)

	Close() error
}
