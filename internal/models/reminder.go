package models

import (
	"time"

	"remindly/internal/reminder"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is a bookable offering. Its reminder templates decide which offsets
// every new appointment gets.
type Service struct {
	ID        string             `gorm:"primaryKey;size:36" json:"id"`
	Name      string             `gorm:"size:255;not null" json:"name"`
	Reminders []ReminderTemplate `gorm:"many2many:service_reminder" json:"reminders,omitempty"`
	CreatedAt time.Time          `gorm:"not null" json:"created_at"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ReminderTemplate is a reminder variant with its ordered offsets
type ReminderTemplate struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	Type        reminder.Type    `gorm:"size:20;not null" json:"type"`
	Title       string           `gorm:"size:255" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Offsets     []OffsetTemplate `gorm:"foreignKey:ReminderID" json:"offsets"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
}

func (r *ReminderTemplate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// OffsetTemplate is a magnitude in minutes and a direction relative to the anchor
type OffsetTemplate struct {
	ID         string             `gorm:"primaryKey;size:36" json:"id"`
	ReminderID string             `gorm:"size:36;not null;index" json:"reminder_id"`
	Reminder   *ReminderTemplate  `gorm:"foreignKey:ReminderID" json:"-"`
	Minutes    int                `gorm:"not null" json:"minutes"`
	Direction  reminder.Direction `gorm:"size:10;not null" json:"direction"`
	Position   int                `gorm:"not null;default:0" json:"position"`
}

func (o *OffsetTemplate) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Magnitude is the offset as a duration
func (o OffsetTemplate) Magnitude() time.Duration {
	return reminder.Minutes(o.Minutes)
}

// FireAt computes the fire time for the given anchor
func (o OffsetTemplate) FireAt(anchor time.Time) time.Time {
	return reminder.ComputeFireAt(anchor, o.Magnitude(), o.Direction)
}

// ScheduledOffset is one appointment x offset template. Sent only ever moves
// from false to true, and only after a confirmed delivery.
type ScheduledOffset struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	AppointmentID    string          `gorm:"size:36;not null;uniqueIndex:idx_offset_appointment_template" json:"appointment_id"`
	Appointment      *Appointment    `gorm:"foreignKey:AppointmentID" json:"-"`
	OffsetTemplateID string          `gorm:"size:36;not null;uniqueIndex:idx_offset_appointment_template" json:"offset_template_id"`
	OffsetTemplate   *OffsetTemplate `gorm:"foreignKey:OffsetTemplateID" json:"-"`
	FireAt           time.Time       `gorm:"not null;index" json:"fire_at"`
	Sent             bool            `gorm:"not null;default:false;index" json:"sent"`
	SentAt           *time.Time      `json:"sent_at,omitempty"`
	ClaimedUntil     *time.Time      `json:"-"`
	Attempts         int             `gorm:"not null;default:0" json:"attempts"`
	LastError        string          `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (s *ScheduledOffset) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// CreateServiceRequest is the body of POST /services
type CreateServiceRequest struct {
	Name string `json:"name" binding:"required"`
}

// OffsetRequest is one authored offset
type OffsetRequest struct {
	Minutes   int    `json:"minutes"`
	Direction string `json:"direction"`
}

// CreateReminderRequest is the body of POST /services/:id/reminders. With
// Defaults set, Offsets are ignored and the 48h/24h/1h defaults are used.
type CreateReminderRequest struct {
	Type        string          `json:"type" binding:"required"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Defaults    bool            `json:"defaults"`
	Offsets     []OffsetRequest `json:"offsets"`
}
