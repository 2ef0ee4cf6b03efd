package reminder

import "fmt"

// OffsetSpec is an offset as authored: a magnitude in minutes and a direction.
type OffsetSpec struct {
	Minutes   int
	Direction Direction
}

// TemplateSpec is a reminder template as authored, before it is persisted.
type TemplateSpec struct {
	Type    Type
	Offsets []OffsetSpec
}

// Validate rejects templates the sweep could never fire correctly. It is called
// once at ingestion so the sweep can trust stored templates.
func (s TemplateSpec) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTemplate, s.Type)
	}
	if len(s.Offsets) == 0 {
		return fmt.Errorf("%w: at least one offset required", ErrInvalidTemplate)
	}
	for i, o := range s.Offsets {
		if !o.Direction.Valid() {
			return fmt.Errorf("%w: offset %d: unknown direction %q", ErrInvalidTemplate, i, o.Direction)
		}
		if o.Minutes <= 0 {
			return fmt.Errorf("%w: offset %d: magnitude must be positive, got %d", ErrInvalidTemplate, i, o.Minutes)
		}
		if _, ok := DefaultPolicy.Rule(s.Type, o.Direction); !ok {
			return fmt.Errorf("%w: offset %d: %s reminders never fire %s the appointment",
				ErrInvalidTemplate, i, s.Type, o.Direction)
		}
	}
	return nil
}

// DefaultOffsets returns the 48h, 24h and 1h offsets seeded for a new reminder.
// Only REMINDER offsets point before the appointment.
func DefaultOffsets(t Type) []OffsetSpec {
	d := After
	if t == TypeReminder {
		d = Before
	}
	return []OffsetSpec{
		{Minutes: 48 * 60, Direction: d},
		{Minutes: 24 * 60, Direction: d},
		{Minutes: 1 * 60, Direction: d},
	}
}
