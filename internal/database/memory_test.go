package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"remindly/internal/models"
	"remindly/internal/reminder"
)

func seedOffset(t *testing.T, s *MemoryStore) (models.Appointment, models.ScheduledOffset) {
	t.Helper()
	ctx := context.Background()
	svc := &models.Service{Name: "Consultation"}
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	tmpl := &models.ReminderTemplate{
		Type:    reminder.TypeReminder,
		Offsets: []models.OffsetTemplate{{Minutes: 60, Direction: reminder.Before}},
	}
	if err := s.CreateReminder(ctx, svc.ID, tmpl); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	anchor := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	appt := &models.Appointment{ServiceID: svc.ID, CustomerName: "Ana", Email: "ana@example.com", SelectedDate: anchor}
	offsets := []models.ScheduledOffset{{
		OffsetTemplateID: tmpl.Offsets[0].ID,
		FireAt:           tmpl.Offsets[0].FireAt(anchor),
	}}
	if err := s.CreateAppointment(ctx, appt, offsets); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return *appt, offsets[0]
}

func TestMemoryStorePendingOffsetsPopulatesAssociations(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	appt, _ := seedOffset(t, s)

	pending, err := s.PendingOffsets(context.Background())
	if err != nil {
		t.Fatalf("PendingOffsets: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	o := pending[0]
	if o.Appointment == nil || o.Appointment.ID != appt.ID {
		t.Fatalf("Appointment not populated: %+v", o.Appointment)
	}
	if o.OffsetTemplate == nil || o.OffsetTemplate.Reminder == nil {
		t.Fatal("OffsetTemplate.Reminder not populated")
	}
	if o.OffsetTemplate.Reminder.Type != reminder.TypeReminder {
		t.Fatalf("Reminder.Type = %s", o.OffsetTemplate.Reminder.Type)
	}
	if appt.Status != reminder.StatusScheduled {
		t.Fatalf("default status = %s, want SCHEDULED", appt.Status)
	}
}

func TestMemoryStoreMarkSentIsCompareAndSet(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	appt, off := seedOffset(t, s)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	if err := s.MarkSent(ctx, off.ID, models.ReminderSent{AppointmentID: appt.ID, SentAt: at}); err != nil {
		t.Fatalf("first MarkSent: %v", err)
	}
	err := s.MarkSent(ctx, off.ID, models.ReminderSent{AppointmentID: appt.ID, SentAt: at})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second MarkSent error = %v, want ErrConflict", err)
	}
	if err := s.ReleaseOffset(ctx, off.ID, "boom"); !errors.Is(err, ErrConflict) {
		t.Fatalf("ReleaseOffset on sent offset error = %v, want ErrConflict", err)
	}
	if err := s.UpdateFireAt(ctx, off.ID, off.FireAt, off.FireAt.Add(time.Hour)); !errors.Is(err, ErrConflict) {
		t.Fatalf("UpdateFireAt on sent offset error = %v, want ErrConflict", err)
	}
	stored, _ := s.Offset(off.ID)
	if !stored.Sent {
		t.Fatal("sent flipped back to false")
	}
	if got := len(s.Deliveries()); got != 1 {
		t.Fatalf("deliveries = %d, want 1", got)
	}
	pending, _ := s.PendingOffsets(ctx)
	if len(pending) != 0 {
		t.Fatalf("sent offset still pending")
	}
}

func TestMemoryStoreConcurrentMarkSentSingleWinner(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	appt, off := seedOffset(t, s)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.MarkSent(context.Background(), off.ID, models.ReminderSent{AppointmentID: appt.ID, SentAt: time.Now()}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("winners = %d, want 1", wins.Load())
	}
}

func TestMemoryStoreClaimLease(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	_, off := seedOffset(t, s)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	if err := s.ClaimOffset(ctx, off.ID, now, time.Minute); err != nil {
		t.Fatalf("ClaimOffset: %v", err)
	}
	if err := s.ClaimOffset(ctx, off.ID, now.Add(30*time.Second), time.Minute); !errors.Is(err, ErrConflict) {
		t.Fatalf("claim while leased error = %v, want ErrConflict", err)
	}
	if err := s.ClaimOffset(ctx, off.ID, now.Add(2*time.Minute), time.Minute); err != nil {
		t.Fatalf("claim after lease expiry: %v", err)
	}
	if err := s.ReleaseOffset(ctx, off.ID, "smtp down"); err != nil {
		t.Fatalf("ReleaseOffset: %v", err)
	}
	stored, _ := s.Offset(off.ID)
	if stored.ClaimedUntil != nil || stored.Attempts != 1 || stored.LastError != "smtp down" || stored.Sent {
		t.Fatalf("after release: %+v", stored)
	}
	if err := s.ClaimOffset(ctx, off.ID, now.Add(2*time.Minute), time.Minute); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
}

func TestMemoryStoreUpdateFireAtRequiresPrevious(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	_, off := seedOffset(t, s)
	ctx := context.Background()
	next := off.FireAt.Add(time.Hour)

	if err := s.UpdateFireAt(ctx, off.ID, off.FireAt.Add(time.Minute), next); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale prev error = %v, want ErrConflict", err)
	}
	if err := s.UpdateFireAt(ctx, off.ID, off.FireAt, next); err != nil {
		t.Fatalf("UpdateFireAt: %v", err)
	}
	stored, _ := s.Offset(off.ID)
	if !stored.FireAt.Equal(next) {
		t.Fatalf("FireAt = %v, want %v", stored.FireAt, next)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.GetAppointment(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetAppointment error = %v", err)
	}
	if err := s.CreateReminder(ctx, "missing", &models.ReminderTemplate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CreateReminder error = %v", err)
	}
	if err := s.UpdateAppointmentStatus(ctx, "missing", reminder.StatusCancelled, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateAppointmentStatus error = %v", err)
	}
}
