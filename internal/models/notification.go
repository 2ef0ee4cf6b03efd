package models

import (
	"time"

	"remindly/internal/reminder"
)

// ReminderSent records a confirmed delivery. It is written in the same
// transaction that flips ScheduledOffset.Sent.
type ReminderSent struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	ScheduledOffsetID string        `gorm:"size:36;not null;uniqueIndex" json:"scheduled_offset_id"`
	AppointmentID     string        `gorm:"size:36;not null;index" json:"appointment_id"`
	ReminderType      reminder.Type `gorm:"size:20;not null" json:"reminder_type"`
	Recipient         string        `gorm:"size:255;not null" json:"recipient"`
	SentAt            time.Time     `gorm:"not null" json:"sent_at"`
}
