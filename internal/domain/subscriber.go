// internal/domain/subscriber.go
//
// Subscriber aggregate and lifecycle states.
//
// Context
// -------
// A Subscriber row is created once per valid submission and mutated only by
// the confirm operation, which flips Status from pending_confirmation to
// confirmed exactly once.  Email and Name are stored as plain strings on
// the read model because they were validated on the way in.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the persisted subscriber state.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

// NewSubscriber is the validated input for an insert.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// Subscriber mirrors one row in the `subscriptions` table.
type Subscriber struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Status       Status    `db:"status"`
	SubscribedAt time.Time `db:"subscribed_at"`
}

// Confirmed reports whether the subscriber finished double opt-in.
func (s Subscriber) Confirmed() bool { return s.Status == StatusConfirmed }
