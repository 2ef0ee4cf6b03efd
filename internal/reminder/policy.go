package reminder

import (
	"fmt"
	"time"
)

// Rule is one row of the lifecycle policy: a reminder variant firing in a
// direction is allowed while the appointment is in one of Statuses.
type Rule struct {
	Type      Type
	Direction Direction
	Statuses  []Status
	// Theme is the message format. A %s verb, when present, receives the
	// rendered magnitude ("24-hour").
	Theme string
	// SinceChange additionally requires the appointment to have changed
	// state within the sweep window (cancellation is an event, not a slot).
	SinceChange bool
}

func (r Rule) allows(s Status) bool {
	for _, st := range r.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Policy is an ordered list of rules. Any (type, direction) combination it does
// not list is ineligible.
type Policy []Rule

// DefaultPolicy is the lifecycle table every sweep applies.
var DefaultPolicy = Policy{
	{Type: TypeReminder, Direction: Before, Statuses: []Status{StatusScheduled},
		Theme: "%s reminder before your appointment"},
	{Type: TypeFollowUp, Direction: After, Statuses: []Status{StatusCompleted},
		Theme: "%s follow-up after your appointment"},
	{Type: TypeCancellation, Direction: After, Statuses: []Status{StatusCancelled},
		Theme: "Cancellation confirmation", SinceChange: true},
	{Type: TypeMissed, Direction: After, Statuses: []Status{StatusMissed},
		Theme: "%s notice after missed appointment"},
	{Type: TypeCustom, Direction: Before, Statuses: []Status{StatusScheduled},
		Theme: "%s custom reminder before appointment"},
	{Type: TypeCustom, Direction: After, Statuses: []Status{StatusCompleted, StatusCancelled, StatusMissed},
		Theme: "%s custom notice after appointment"},
}

// Rule returns the row for a reminder variant and direction.
func (p Policy) Rule(t Type, d Direction) (Rule, bool) {
	for _, r := range p {
		if r.Type == t && r.Direction == d {
			return r, true
		}
	}
	return Rule{}, false
}

// IsEligible reports whether an offset of type t firing in direction d may fire
// while the appointment is in status s. Recency gating for cancellation is
// applied separately by the sweeper.
func (p Policy) IsEligible(t Type, d Direction, s Status) bool {
	r, ok := p.Rule(t, d)
	return ok && r.allows(s)
}

// RenderMessage words the notification for an eligible offset. It returns an
// empty string for combinations the policy does not list.
func (p Policy) RenderMessage(t Type, d Direction, magnitude time.Duration) string {
	r, ok := p.Rule(t, d)
	if !ok {
		return ""
	}
	if !r.SinceChange {
		return fmt.Sprintf(r.Theme, FormatMagnitude(magnitude))
	}
	return r.Theme
}

// IsEligible applies DefaultPolicy.
func IsEligible(t Type, d Direction, s Status) bool {
	return DefaultPolicy.IsEligible(t, d, s)
}

// RenderMessage applies DefaultPolicy.
func RenderMessage(t Type, d Direction, magnitude time.Duration) string {
	return DefaultPolicy.RenderMessage(t, d, magnitude)
}

// FormatMagnitude renders whole hours as "N-hour" and anything else as
// "N-minute".
func FormatMagnitude(magnitude time.Duration) string {
	if magnitude%time.Hour == 0 {
		return fmt.Sprintf("%d-hour", int64(magnitude/time.Hour))
	}
	return fmt.Sprintf("%d-minute", int64(magnitude/time.Minute))
}

var subjects = map[Type]string{
	TypeReminder:     "Upcoming Appointment Reminder",
	TypeFollowUp:     "We Hope Your Appointment Went Well!",
	TypeCancellation: "Appointment Cancellation Confirmation",
	TypeMissed:       "You Missed Your Appointment",
	TypeCustom:       "Custom Notification Regarding Your Appointment",
}

// Subject is the email subject line for a reminder variant.
func Subject(t Type) string {
	if s, ok := subjects[t]; ok {
		return s
	}
	return "Appointment Reminder"
}
