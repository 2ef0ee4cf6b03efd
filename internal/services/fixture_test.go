package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/rs/zerolog"
)

// anchor is the selected date of every booked test appointment.
var anchor = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     *database.MemoryStore
	booking   *BookingService
	serviceID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	booking := NewBookingService(store, zerolog.Nop())
	booking.clock = func() time.Time { return anchor.Add(-72 * time.Hour) }

	svc, err := booking.CreateService(context.Background(), "Consultation")
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	return &fixture{store: store, booking: booking, serviceID: svc.ID}
}

func (f *fixture) addReminder(t *testing.T, typ reminder.Type, minutes int, dir reminder.Direction) *models.ReminderTemplate {
	t.Helper()
	spec := reminder.TemplateSpec{Type: typ, Offsets: []reminder.OffsetSpec{{Minutes: minutes, Direction: dir}}}
	tmpl, err := f.booking.CreateReminder(context.Background(), f.serviceID, spec, string(typ), "")
	if err != nil {
		t.Fatalf("CreateReminder(%s %d %s): %v", typ, minutes, dir, err)
	}
	return tmpl
}

func (f *fixture) book(t *testing.T, email string) (*models.Appointment, []models.ScheduledOffset) {
	t.Helper()
	appt, offsets, err := f.booking.CreateAppointment(context.Background(), models.CreateAppointmentRequest{
		ServiceID:    f.serviceID,
		CustomerName: "Ana",
		Email:        email,
		SelectedDate: anchor,
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return appt, offsets
}

func (f *fixture) setStatus(t *testing.T, id string, status reminder.Status, at time.Time) {
	t.Helper()
	if err := f.store.UpdateAppointmentStatus(context.Background(), id, status, at); err != nil {
		t.Fatalf("UpdateAppointmentStatus: %v", err)
	}
}

func (f *fixture) offset(t *testing.T, id string) models.ScheduledOffset {
	t.Helper()
	o, ok := f.store.Offset(id)
	if !ok {
		t.Fatalf("offset %s not found", id)
	}
	return o
}

// recordingDeliverer records confirmed notifications. With release set,
// Deliver blocks until it is closed; with ignoreCtx it also ignores the
// deadline.
type recordingDeliverer struct {
	mu   sync.Mutex
	sent []Notification
	err  error

	started   chan struct{}
	release   chan struct{}
	ignoreCtx bool
}

func (d *recordingDeliverer) Deliver(ctx context.Context, n Notification) error {
	if d.started != nil {
		select {
		case d.started <- struct{}{}:
		default:
		}
	}
	if d.release != nil {
		if d.ignoreCtx {
			<-d.release
		} else {
			select {
			case <-d.release:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordingDeliverer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *recordingDeliverer) notifications() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notification(nil), d.sent...)
}

func newTestWorker(store database.Store, d Deliverer, opts ...func(*WorkerConfig)) *ReminderWorker {
	cfg := WorkerConfig{
		Schedule:        "* * * * *",
		Window:          15 * time.Minute,
		Workers:         4,
		DeliveryTimeout: 5 * time.Second,
		ClaimLease:      2 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewReminderWorker(store, d, cfg, zerolog.Nop())
}
