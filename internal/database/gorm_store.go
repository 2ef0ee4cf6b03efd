package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindly/internal/models"
	"remindly/internal/reminder"

	"gorm.io/gorm"
)

var _ Store = (*GormStore)(nil)

// GormStore is the postgres-backed Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying connection for migrations and tooling
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) PendingOffsets(ctx context.Context) ([]models.ScheduledOffset, error) {
	var offsets []models.ScheduledOffset
	err := s.db.WithContext(ctx).
		Preload("Appointment").
		Preload("Appointment.User").
		Preload("OffsetTemplate").
		Preload("OffsetTemplate.Reminder").
		Where("sent = ?", false).
		Find(&offsets).Error
	if err != nil {
		return nil, fmt.Errorf("load pending offsets: %w", err)
	}
	return offsets, nil
}

func (s *GormStore) UpdateFireAt(ctx context.Context, offsetID string, prev, next time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.ScheduledOffset{}).
		Where("id = ? AND sent = ? AND fire_at = ?", offsetID, false, prev).
		Updates(map[string]any{"fire_at": next, "updated_at": time.Now()})
	return conditional(res, "update fire_at")
}

func (s *GormStore) ClaimOffset(ctx context.Context, offsetID string, at time.Time, lease time.Duration) error {
	res := s.db.WithContext(ctx).Model(&models.ScheduledOffset{}).
		Where("id = ? AND sent = ? AND (claimed_until IS NULL OR claimed_until < ?)", offsetID, false, at).
		Updates(map[string]any{"claimed_until": at.Add(lease), "updated_at": time.Now()})
	return conditional(res, "claim offset")
}

func (s *GormStore) MarkSent(ctx context.Context, offsetID string, delivery models.ReminderSent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScheduledOffset{}).
			Where("id = ? AND sent = ?", offsetID, false).
			Updates(map[string]any{
				"sent":          true,
				"sent_at":       delivery.SentAt,
				"claimed_until": nil,
				"last_error":    "",
				"updated_at":    time.Now(),
			})
		if err := conditional(res, "mark sent"); err != nil {
			return err
		}
		delivery.ScheduledOffsetID = offsetID
		if err := tx.Create(&delivery).Error; err != nil {
			return fmt.Errorf("record delivery: %w", err)
		}
		return nil
	})
}

func (s *GormStore) ReleaseOffset(ctx context.Context, offsetID string, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.ScheduledOffset{}).
		Where("id = ? AND sent = ?", offsetID, false).
		Updates(map[string]any{
			"claimed_until": nil,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    reason,
			"updated_at":    time.Now(),
		})
	return conditional(res, "release offset")
}

func (s *GormStore) CreateService(ctx context.Context, svc *models.Service) error {
	if err := s.db.WithContext(ctx).Create(svc).Error; err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

func (s *GormStore) GetService(ctx context.Context, id string) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error; err != nil {
		return nil, notFound(err, "get service")
	}
	return &svc, nil
}

func (s *GormStore) CreateReminder(ctx context.Context, serviceID string, tmpl *models.ReminderTemplate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.Where("id = ?", serviceID).First(&svc).Error; err != nil {
			return notFound(err, "get service")
		}
		if err := tx.Create(tmpl).Error; err != nil {
			return fmt.Errorf("create reminder: %w", err)
		}
		if err := tx.Model(&svc).Association("Reminders").Append(tmpl); err != nil {
			return fmt.Errorf("attach reminder: %w", err)
		}
		return nil
	})
}

func (s *GormStore) RemindersForService(ctx context.Context, serviceID string) ([]models.ReminderTemplate, error) {
	var svc models.Service
	err := s.db.WithContext(ctx).
		Preload("Reminders.Offsets", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", serviceID).
		First(&svc).Error
	if err != nil {
		return nil, notFound(err, "load reminders")
	}
	return svc.Reminders, nil
}

func (s *GormStore) CreateAppointment(ctx context.Context, appt *models.Appointment, offsets []models.ScheduledOffset) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(appt).Error; err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		if len(offsets) == 0 {
			return nil
		}
		for i := range offsets {
			offsets[i].AppointmentID = appt.ID
		}
		if err := tx.Omit("Appointment", "OffsetTemplate").Create(&offsets).Error; err != nil {
			return fmt.Errorf("create scheduled offsets: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&appt).Error; err != nil {
		return nil, notFound(err, "get appointment")
	}
	return &appt, nil
}

func (s *GormStore) UpdateAppointmentStatus(ctx context.Context, id string, status reminder.Status, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at})
	return found(res, "update status")
}

func (s *GormStore) RescheduleAppointment(ctx context.Context, id string, selectedDate, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]any{"selected_date": selectedDate, "updated_at": at})
	return found(res, "reschedule")
}

func (s *GormStore) OffsetsForAppointment(ctx context.Context, appointmentID string) ([]models.ScheduledOffset, error) {
	var offsets []models.ScheduledOffset
	err := s.db.WithContext(ctx).
		Preload("OffsetTemplate").
		Preload("OffsetTemplate.Reminder").
		Where("appointment_id = ?", appointmentID).
		Order("fire_at ASC").
		Find(&offsets).Error
	if err != nil {
		return nil, fmt.Errorf("load offsets: %w", err)
	}
	return offsets, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// conditional maps a zero-row conditional update to ErrConflict
func conditional(res *gorm.DB, op string) error {
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return nil
}

// found maps a zero-row update by id to ErrNotFound
func found(res *gorm.DB, op string) error {
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
