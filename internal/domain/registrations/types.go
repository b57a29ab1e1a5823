package registrations

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrEventFull         = errors.New("event is at capacity")
	ErrOwnEvent          = errors.New("organizer cannot register for their own event")
	ErrNotFound          = errors.New("registration not found")
)

type Registration struct {
	ID           int64
	EventID      string
	EventULID    string
	EventTitle   string
	UserID       string
	Username     string
	RegisteredAt time.Time
}

type CreateParams struct {
	EventID string
	UserID  string
}

// Repository persists the ledger. Create is the race authority: the unique
// (event_id, user_id) constraint and the capacity check both live behind it.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Registration, error)
	Delete(ctx context.Context, eventID, userID string) error
	ListByEvent(ctx context.Context, eventID string) ([]Registration, error)
	ListByUser(ctx context.Context, userID string) ([]Registration, error)
}

// Confirmation describes a registration-confirmation email to dispatch.
type Confirmation struct {
	RegistrationID int64     `json:"registration_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	EventTitle     string    `json:"event_title"`
	EventDate      time.Time `json:"event_date"`
	EventLocation  string    `json:"event_location"`
}

// ConfirmationEnqueuer hands a confirmation off for asynchronous delivery.
type ConfirmationEnqueuer interface {
	EnqueueConfirmation(ctx context.Context, confirmation Confirmation) error
}
