package events

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("event not found")
	ErrForbidden = errors.New("caller is not the event organizer")
)

type Event struct {
	ID                string
	ULID              string
	Title             string
	Description       string
	Date              time.Time
	Location          string
	Capacity          *int
	OrganizerID       string
	OrganizerUsername string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CreateParams struct {
	ULID        string
	Title       string
	Description string
	Date        time.Time
	Location    string
	Capacity    *int
	OrganizerID string
}

type UpdateParams struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Capacity    *int
}

type Filters struct {
	Organizer string
	DateFrom  *time.Time
	DateTo    *time.Time
	Location  string
	Query     string
}

type Pagination struct {
	Limit int
	After string
}

type ListResult struct {
	Events     []Event
	NextCursor string
}

type Repository interface {
	List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error)
	GetByULID(ctx context.Context, ulid string) (*Event, error)
	Create(ctx context.Context, params CreateParams) (*Event, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Event, error)
	Delete(ctx context.Context, id string) error
}
