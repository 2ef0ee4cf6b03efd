package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"remindly/internal/models"
	"remindly/internal/reminder"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-local Store for development and tests. It applies
// the same conditional-update rules as GormStore under a single mutex.
type MemoryStore struct {
	mu sync.Mutex

	users        map[string]models.User
	services     map[string]models.Service
	serviceRems  map[string][]string
	reminders    map[string]models.ReminderTemplate
	appointments map[string]models.Appointment
	offsets      map[string]models.ScheduledOffset
	deliveries   []models.ReminderSent
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        map[string]models.User{},
		services:     map[string]models.Service{},
		serviceRems:  map[string][]string{},
		reminders:    map[string]models.ReminderTemplate{},
		appointments: map[string]models.Appointment{},
		offsets:      map[string]models.ScheduledOffset{},
	}
}

// PutUser inserts or replaces a user
func (s *MemoryStore) PutUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u
}

// Deliveries returns every recorded delivery in insertion order
func (s *MemoryStore) Deliveries() []models.ReminderSent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReminderSent(nil), s.deliveries...)
}

// Offset returns a stored offset without associations
func (s *MemoryStore) Offset(id string) (models.ScheduledOffset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offsets[id]
	return o, ok
}

func (s *MemoryStore) PendingOffsets(ctx context.Context) ([]models.ScheduledOffset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScheduledOffset, 0, len(s.offsets))
	for _, o := range s.offsets {
		if o.Sent {
			continue
		}
		out = append(out, s.populateLocked(o, true))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (s *MemoryStore) UpdateFireAt(ctx context.Context, offsetID string, prev, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offsets[offsetID]
	if !ok || o.Sent || !o.FireAt.Equal(prev) {
		return fmt.Errorf("update fire_at: %w", ErrConflict)
	}
	o.FireAt = next
	o.UpdatedAt = time.Now()
	s.offsets[offsetID] = o
	return nil
}

func (s *MemoryStore) ClaimOffset(ctx context.Context, offsetID string, at time.Time, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offsets[offsetID]
	if !ok || o.Sent || (o.ClaimedUntil != nil && !o.ClaimedUntil.Before(at)) {
		return fmt.Errorf("claim offset: %w", ErrConflict)
	}
	until := at.Add(lease)
	o.ClaimedUntil = &until
	s.offsets[offsetID] = o
	return nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, offsetID string, delivery models.ReminderSent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offsets[offsetID]
	if !ok || o.Sent {
		return fmt.Errorf("mark sent: %w", ErrConflict)
	}
	at := delivery.SentAt
	o.Sent = true
	o.SentAt = &at
	o.ClaimedUntil = nil
	o.LastError = ""
	o.UpdatedAt = time.Now()
	s.offsets[offsetID] = o

	delivery.ID = uint(len(s.deliveries) + 1)
	delivery.ScheduledOffsetID = offsetID
	s.deliveries = append(s.deliveries, delivery)
	return nil
}

func (s *MemoryStore) ReleaseOffset(ctx context.Context, offsetID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offsets[offsetID]
	if !ok || o.Sent {
		return fmt.Errorf("release offset: %w", ErrConflict)
	}
	o.ClaimedUntil = nil
	o.Attempts++
	o.LastError = reason
	o.UpdatedAt = time.Now()
	s.offsets[offsetID] = o
	return nil
}

func (s *MemoryStore) CreateService(ctx context.Context, svc *models.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now()
	}
	stored := *svc
	stored.Reminders = nil
	s.services[svc.ID] = stored
	return nil
}

func (s *MemoryStore) GetService(ctx context.Context, id string) (*models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, fmt.Errorf("get service: %w", ErrNotFound)
	}
	return &svc, nil
}

func (s *MemoryStore) CreateReminder(ctx context.Context, serviceID string, tmpl *models.ReminderTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[serviceID]; !ok {
		return fmt.Errorf("get service: %w", ErrNotFound)
	}
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = time.Now()
	}
	for i := range tmpl.Offsets {
		if tmpl.Offsets[i].ID == "" {
			tmpl.Offsets[i].ID = uuid.NewString()
		}
		tmpl.Offsets[i].ReminderID = tmpl.ID
	}
	stored := *tmpl
	stored.Offsets = append([]models.OffsetTemplate(nil), tmpl.Offsets...)
	s.reminders[tmpl.ID] = stored
	s.serviceRems[serviceID] = append(s.serviceRems[serviceID], tmpl.ID)
	return nil
}

func (s *MemoryStore) RemindersForService(ctx context.Context, serviceID string) ([]models.ReminderTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[serviceID]; !ok {
		return nil, fmt.Errorf("load reminders: %w", ErrNotFound)
	}
	var out []models.ReminderTemplate
	for _, id := range s.serviceRems[serviceID] {
		r := s.reminders[id]
		r.Offsets = append([]models.OffsetTemplate(nil), r.Offsets...)
		sort.SliceStable(r.Offsets, func(i, j int) bool { return r.Offsets[i].Position < r.Offsets[j].Position })
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) CreateAppointment(ctx context.Context, appt *models.Appointment, offsets []models.ScheduledOffset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	appt.PrepareNew(now)
	stored := *appt
	stored.User = nil
	s.appointments[appt.ID] = stored

	for i := range offsets {
		o := offsets[i]
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		o.AppointmentID = appt.ID
		o.Appointment = nil
		o.OffsetTemplate = nil
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		o.UpdatedAt = now
		offsets[i].ID = o.ID
		offsets[i].AppointmentID = appt.ID
		s.offsets[o.ID] = o
	}
	return nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("get appointment: %w", ErrNotFound)
	}
	a = s.withUserLocked(a)
	return &a, nil
}

// UpdateAppointmentStatus and RescheduleAppointment stand in for the booking
// layer mutating appointments underneath the sweeper.
func (s *MemoryStore) UpdateAppointmentStatus(ctx context.Context, id string, status reminder.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("update status: %w", ErrNotFound)
	}
	a.Status = status
	a.UpdatedAt = at
	s.appointments[id] = a
	return nil
}

func (s *MemoryStore) RescheduleAppointment(ctx context.Context, id string, selectedDate, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return fmt.Errorf("reschedule: %w", ErrNotFound)
	}
	a.SelectedDate = selectedDate
	a.UpdatedAt = at
	s.appointments[id] = a
	return nil
}

func (s *MemoryStore) OffsetsForAppointment(ctx context.Context, appointmentID string) ([]models.ScheduledOffset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduledOffset
	for _, o := range s.offsets {
		if o.AppointmentID == appointmentID {
			out = append(out, s.populateLocked(o, false))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) populateLocked(o models.ScheduledOffset, withAppointment bool) models.ScheduledOffset {
	if withAppointment {
		if a, ok := s.appointments[o.AppointmentID]; ok {
			a = s.withUserLocked(a)
			o.Appointment = &a
		}
	}
	for _, r := range s.reminders {
		for _, t := range r.Offsets {
			t := t
			if t.ID != o.OffsetTemplateID {
				continue
			}
			rem := r
			rem.Offsets = nil
			t.Reminder = &rem
			o.OffsetTemplate = &t
		}
	}
	return o
}

func (s *MemoryStore) withUserLocked(a models.Appointment) models.Appointment {
	a.User = nil
	if a.UserID != nil {
		if u, ok := s.users[*a.UserID]; ok {
			a.User = &u
		}
	}
	return a
}
