// Package reminder holds the pure rules of the reminder engine: how fire times are
// derived from offset templates, which reminder variants may fire for which
// appointment states, and how notifications are worded.
//
// Nothing in this package performs I/O.
package reminder

import "strings"

// Type is the variant of a reminder template.
type Type string

const (
	TypeReminder     Type = "REMINDER"
	TypeFollowUp     Type = "FOLLOW_UP"
	TypeCancellation Type = "CANCELLATION"
	TypeMissed       Type = "MISSED"
	TypeCustom       Type = "CUSTOM"
)

// Types lists every known reminder variant.
var Types = []Type{TypeReminder, TypeFollowUp, TypeCancellation, TypeMissed, TypeCustom}

// Valid reports whether t is a known reminder variant.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType normalizes user input such as "follow_up" into a Type.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Direction places an offset before or after the appointment anchor.
type Direction string

const (
	Before Direction = "BEFORE"
	After  Direction = "AFTER"
)

// Valid reports whether d is BEFORE or AFTER.
func (d Direction) Valid() bool {
	return d == Before || d == After
}

// ParseDirection normalizes user input such as "before" into a Direction.
func ParseDirection(raw string) (Direction, bool) {
	d := Direction(strings.ToUpper(strings.TrimSpace(raw)))
	return d, d.Valid()
}

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusMissed    Status = "MISSED"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusMissed:
		return true
	}
	return false
}

// ParseStatus normalizes user input such as "cancelled" into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}
