package reminder

import "errors"

var (
	// ErrNoRecipient means neither the linked user nor the appointment carries an
	// email address. The offset stays unsent and is retried next cycle.
	ErrNoRecipient = errors.New("no recipient email resolvable")

	// ErrDeliveryFailed marks transport failures. The offset stays unsent.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrInvalidTemplate rejects malformed reminder templates at authoring time.
	ErrInvalidTemplate = errors.New("invalid reminder template")
)
