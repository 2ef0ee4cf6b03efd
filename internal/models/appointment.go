package models

import (
	"encoding/json"
	"fmt"
	"time"

	"remindly/internal/reminder"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a registered customer an appointment can be linked to
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Appointment is a booked slot. SelectedDate is the anchor every offset is
// computed from, and UpdatedAt doubles as the cancellation clock.
type Appointment struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	ServiceID    string          `gorm:"size:36;not null;index" json:"service_id"`
	UserID       *string         `gorm:"size:36;index" json:"user_id,omitempty"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	IsForSelf    bool            `gorm:"not null;default:false" json:"is_for_self"`
	CustomerName string          `gorm:"size:255" json:"customer_name"`
	Email        string          `gorm:"size:255" json:"email"`
	Phone        string          `gorm:"size:50" json:"phone"`
	SelectedDate time.Time       `gorm:"not null;index" json:"selected_date"`
	Status       reminder.Status `gorm:"size:20;not null;default:SCHEDULED;index" json:"status"`
	Answers      datatypes.JSON  `gorm:"type:jsonb" json:"answers,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

// BeforeCreate fills identity, default status and timestamps
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	a.applyDefaults(time.Now())
	return nil
}

func (a *Appointment) applyDefaults(now time.Time) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = reminder.StatusScheduled
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
}

// PrepareNew is BeforeCreate for stores that do not run gorm hooks.
func (a *Appointment) PrepareNew(now time.Time) {
	a.applyDefaults(now)
}

// Recipient resolves who receives notifications: the linked user's email for
// self-booked appointments, otherwise the contact stored on the appointment.
func (a *Appointment) Recipient() (email, name string, err error) {
	name = a.CustomerName
	if a.IsForSelf && a.User != nil && a.User.Email != "" {
		email = a.User.Email
		if name == "" {
			name = a.User.Name
		}
	} else {
		email = a.Email
	}
	if email == "" {
		return "", "", reminder.ErrNoRecipient
	}
	return email, name, nil
}

// ValidateAnswers accepts only a JSON object (or nothing) for custom answers.
func ValidateAnswers(raw datatypes.JSON) error {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("answers must be a JSON object: %w", err)
	}
	return nil
}

// CreateAppointmentRequest is the body of POST /appointments
type CreateAppointmentRequest struct {
	ServiceID    string          `json:"service_id" binding:"required"`
	UserID       *string         `json:"user_id"`
	IsForSelf    bool            `json:"is_for_self"`
	CustomerName string          `json:"customer_name" binding:"required"`
	Email        string          `json:"email" binding:"omitempty,email"`
	Phone        string          `json:"phone"`
	SelectedDate time.Time       `json:"selected_date" binding:"required"`
	Answers      json.RawMessage `json:"answers"`
}

// UpdateStatusRequest is the body of PATCH /appointments/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RescheduleRequest is the body of PATCH /appointments/:id/schedule
type RescheduleRequest struct {
	SelectedDate time.Time `json:"selected_date" binding:"required"`
}
