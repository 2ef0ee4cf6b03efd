package services

import (
	"context"
	"testing"
	"time"

	"remindly/internal/database"
	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/rs/zerolog"
)

func TestCollectDueClassifiesOffsets(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addReminder(t, reminder.TypeReminder, 60, reminder.Before)
	f.addReminder(t, reminder.TypeFollowUp, 30, reminder.After)
	f.addReminder(t, reminder.TypeCustom, 50, reminder.Before)
	f.book(t, "ana@example.com")

	s := NewSweeper(f.store, nil, zerolog.Nop())
	now := anchor.Add(-62 * time.Minute)
	due, report, err := s.CollectDue(context.Background(), now, 15*time.Minute)
	if err != nil {
		t.Fatalf("CollectDue: %v", err)
	}

	if report.Pending != 3 {
		t.Fatalf("Pending = %d, want 3", report.Pending)
	}
	// REMINDER at 09:00 and CUSTOM at 09:10 are in window; FOLLOW_UP at 10:30 is not.
	if report.InWindow != 2 || report.Due != 2 || len(due) != 2 {
		t.Fatalf("report = %+v, want 2 in window and due", report)
	}
	for _, d := range due {
		if d.Offset.Appointment != nil || d.Offset.OffsetTemplate != nil {
			t.Fatal("due offset still carries associations")
		}
		if d.Template.ReminderID != d.Reminder.ID {
			t.Fatalf("template %s does not belong to reminder %s", d.Template.ID, d.Reminder.ID)
		}
	}
}

func TestCollectDueFollowUpNeedsCompletedAppointment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status reminder.Status
		want   int
	}{
		{reminder.StatusScheduled, 0},
		{reminder.StatusCompleted, 1},
		{reminder.StatusCancelled, 0},
		{reminder.StatusMissed, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.addReminder(t, reminder.TypeFollowUp, 60, reminder.After)
			appt, _ := f.book(t, "ana@example.com")
			now := anchor.Add(55 * time.Minute)
			f.setStatus(t, appt.ID, tt.status, now.Add(-time.Hour))

			due, _, err := NewSweeper(f.store, nil, zerolog.Nop()).CollectDue(context.Background(), now, 15*time.Minute)
			if err != nil {
				t.Fatalf("CollectDue: %v", err)
			}
			if len(due) != tt.want {
				t.Fatalf("len(due) = %d, want %d", len(due), tt.want)
			}
		})
	}
}

func TestCollectDueSkipsOffsetWithoutTemplate(t *testing.T) {
	t.Parallel()
	store := database.NewMemoryStore()
	appt := &models.Appointment{Email: "ana@example.com", SelectedDate: anchor}
	offsets := []models.ScheduledOffset{{OffsetTemplateID: "gone", FireAt: anchor}}
	if err := store.CreateAppointment(context.Background(), appt, offsets); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}

	due, report, err := NewSweeper(store, nil, zerolog.Nop()).CollectDue(context.Background(), anchor.Add(-time.Minute), 15*time.Minute)
	if err != nil {
		t.Fatalf("CollectDue: %v", err)
	}
	if len(due) != 0 || report.Skipped != 1 {
		t.Fatalf("due=%d report=%+v, want orphan skipped", len(due), report)
	}
}

// sentUnderneathStore marks an offset sent just before the sweeper tries to
// correct its fire time, as a concurrent driver would.
type sentUnderneathStore struct {
	*database.MemoryStore
}

func (s sentUnderneathStore) UpdateFireAt(ctx context.Context, offsetID string, prev, next time.Time) error {
	if err := s.MarkSent(ctx, offsetID, models.ReminderSent{SentAt: prev}); err != nil {
		return err
	}
	return s.MemoryStore.UpdateFireAt(ctx, offsetID, prev, next)
}

func TestCollectDueCorrectionLosesToConcurrentSend(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addReminder(t, reminder.TypeReminder, 60, reminder.Before)
	appt, offsets := f.book(t, "ana@example.com")
	moved := anchor.Add(30 * time.Minute)
	if _, err := f.booking.Reschedule(context.Background(), appt.ID, moved); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	s := NewSweeper(sentUnderneathStore{f.store}, nil, zerolog.Nop())
	due, report, err := s.CollectDue(context.Background(), moved.Add(-62*time.Minute), 15*time.Minute)
	if err != nil {
		t.Fatalf("CollectDue: %v", err)
	}
	if len(due) != 0 || report.Conflicts != 1 || report.Corrected != 0 {
		t.Fatalf("due=%d report=%+v, want a single conflict", len(due), report)
	}
	if o := f.offset(t, offsets[0].ID); !o.FireAt.Equal(anchor.Add(-time.Hour)) {
		t.Fatalf("sent offset FireAt rewritten to %v", o.FireAt)
	}
}
