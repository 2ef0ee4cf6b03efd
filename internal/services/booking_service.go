package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// ErrInvalidInput marks a request the booking layer refuses to persist.
var ErrInvalidInput = errors.New("invalid input")

// BookingService owns services, reminder templates and appointments. It
// creates scheduled offsets when an appointment is booked; the sweeper keeps
// them in line with later changes.
type BookingService struct {
	store database.Store
	log   zerolog.Logger
	clock func() time.Time
}

func NewBookingService(store database.Store, log zerolog.Logger) *BookingService {
	return &BookingService{store: store, log: log, clock: time.Now}
}

func (s *BookingService) CreateService(ctx context.Context, name string) (*models.Service, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: service name is required", ErrInvalidInput)
	}
	svc := &models.Service{Name: name, CreatedAt: s.clock()}
	if err := s.store.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// CreateReminder validates and attaches a reminder template to a service.
func (s *BookingService) CreateReminder(ctx context.Context, serviceID string, spec reminder.TemplateSpec, title, description string) (*models.ReminderTemplate, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	tmpl := &models.ReminderTemplate{
		Type:        spec.Type,
		Title:       title,
		Description: description,
		CreatedAt:   s.clock(),
	}
	for i, o := range spec.Offsets {
		tmpl.Offsets = append(tmpl.Offsets, models.OffsetTemplate{
			Minutes:   o.Minutes,
			Direction: o.Direction,
			Position:  i,
		})
	}
	if err := s.store.CreateReminder(ctx, serviceID, tmpl); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	s.log.Info().Str("service_id", serviceID).Str("reminder_id", tmpl.ID).Str("type", string(tmpl.Type)).
		Int("offsets", len(tmpl.Offsets)).Msg("reminder template created")
	return tmpl, nil
}

// CreateDefaultReminder attaches a template with the 48h/24h/1h default offsets.
func (s *BookingService) CreateDefaultReminder(ctx context.Context, serviceID string, t reminder.Type) (*models.ReminderTemplate, error) {
	spec := reminder.TemplateSpec{Type: t, Offsets: reminder.DefaultOffsets(t)}
	title := fmt.Sprintf("%s Reminder", t)
	description := fmt.Sprintf("Default %s notification", strings.ToLower(strings.ReplaceAll(string(t), "_", " ")))
	return s.CreateReminder(ctx, serviceID, spec, title, description)
}

func (s *BookingService) ListReminders(ctx context.Context, serviceID string) ([]models.ReminderTemplate, error) {
	return s.store.RemindersForService(ctx, serviceID)
}

// CreateAppointment books an appointment and schedules one offset per offset
// template of every reminder attached to the service.
func (s *BookingService) CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (*models.Appointment, []models.ScheduledOffset, error) {
	if req.SelectedDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: selected_date is required", ErrInvalidInput)
	}
	answers := datatypes.JSON(req.Answers)
	if err := models.ValidateAnswers(answers); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !req.IsForSelf && strings.TrimSpace(req.Email) == "" {
		s.log.Warn().Str("service_id", req.ServiceID).Msg("appointment booked without a contact email; reminders will be held")
	}

	reminders, err := s.store.RemindersForService(ctx, req.ServiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("load reminders: %w", err)
	}

	now := s.clock()
	appt := &models.Appointment{
		ServiceID:    req.ServiceID,
		UserID:       req.UserID,
		IsForSelf:    req.IsForSelf,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        req.Phone,
		SelectedDate: req.SelectedDate,
		Status:       reminder.StatusScheduled,
		Answers:      answers,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var offsets []models.ScheduledOffset
	for _, r := range reminders {
		for _, t := range r.Offsets {
			offsets = append(offsets, models.ScheduledOffset{
				OffsetTemplateID: t.ID,
				FireAt:           t.FireAt(req.SelectedDate),
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		}
	}

	if err := s.store.CreateAppointment(ctx, appt, offsets); err != nil {
		return nil, nil, fmt.Errorf("create appointment: %w", err)
	}
	s.log.Info().Str("appointment_id", appt.ID).Str("service_id", appt.ServiceID).
		Time("selected_date", appt.SelectedDate).Int("offsets", len(offsets)).Msg("appointment booked")
	return appt, offsets, nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}

// UpdateStatus moves an appointment to a new lifecycle status. The change time
// is what the cancellation confirmation is measured against.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status reminder.Status) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.store.UpdateAppointmentStatus(ctx, id, status, s.clock()); err != nil {
		return nil, err
	}
	s.log.Info().Str("appointment_id", id).Str("status", string(status)).Msg("appointment status changed")
	return s.store.GetAppointment(ctx, id)
}

// Reschedule moves the anchor. Stored offsets are left alone and corrected by
// the next sweep.
func (s *BookingService) Reschedule(ctx context.Context, id string, selectedDate time.Time) (*models.Appointment, error) {
	if selectedDate.IsZero() {
		return nil, fmt.Errorf("%w: selected_date is required", ErrInvalidInput)
	}
	if err := s.store.RescheduleAppointment(ctx, id, selectedDate, s.clock()); err != nil {
		return nil, err
	}
	s.log.Info().Str("appointment_id", id).Time("selected_date", selectedDate).Msg("appointment rescheduled")
	return s.store.GetAppointment(ctx, id)
}

func (s *BookingService) Offsets(ctx context.Context, appointmentID string) ([]models.ScheduledOffset, error) {
	if _, err := s.store.GetAppointment(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.store.OffsetsForAppointment(ctx, appointmentID)
}
