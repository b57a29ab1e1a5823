package events

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meetgrid/server/internal/domain/ids"
)

// Service implements event CRUD with organizer-only mutation.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// EventInput is the request payload for create and full update.
type EventInput struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required,max=255"`
	Capacity    *int      `json:"capacity,omitempty" validate:"omitempty,gt=0"`
}

func (s *Service) List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error) {
	return s.repo.List(ctx, filters, pagination)
}

func (s *Service) GetByULID(ctx context.Context, ulid string) (*Event, error) {
	return s.repo.GetByULID(ctx, ulid)
}

// Create mints a ULID and stores a new event owned by organizerID.
func (s *Service) Create(ctx context.Context, organizerID string, input EventInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	ulid, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint event id: %w", err)
	}

	return s.repo.Create(ctx, CreateParams{
		ULID:        ulid,
		Title:       input.Title,
		Description: input.Description,
		Date:        input.Date,
		Location:    input.Location,
		Capacity:    input.Capacity,
		OrganizerID: organizerID,
	})
}

// Update replaces the mutable fields of an event. Only the organizer may
// update; anyone else gets ErrForbidden.
func (s *Service) Update(ctx context.Context, ulid, callerID string, input EventInput) (*Event, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	event, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != callerID {
		return nil, ErrForbidden
	}

	return s.repo.Update(ctx, event.ID, UpdateParams{
		Title:       input.Title,
		Description: input.Description,
		Date:        input.Date,
		Location:    input.Location,
		Capacity:    input.Capacity,
	})
}

// Delete removes an event and, via the store's cascade, its registrations.
func (s *Service) Delete(ctx context.Context, ulid, callerID string) error {
	event, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return err
	}
	if event.OrganizerID != callerID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, event.ID)
}

type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ParseFilters builds Filters and Pagination from list query parameters.
func ParseFilters(values url.Values) (Filters, Pagination, error) {
	filters := Filters{}
	pagination := Pagination{Limit: 50}

	dateFrom, err := parseDate("date_from", values.Get("date_from"))
	if err != nil {
		return filters, pagination, err
	}
	dateTo, err := parseDate("date_to", values.Get("date_to"))
	if err != nil {
		return filters, pagination, err
	}
	if dateFrom != nil && dateTo != nil && dateTo.Before(*dateFrom) {
		return filters, pagination, FilterError{Field: "date_to", Message: "must be on or after date_from"}
	}
	filters.DateFrom = dateFrom
	filters.DateTo = dateTo

	filters.Organizer = strings.TrimSpace(values.Get("organizer"))
	filters.Location = strings.TrimSpace(values.Get("location_contains"))
	filters.Query = strings.TrimSpace(values.Get("search"))

	limit, err := parseLimit(values)
	if err != nil {
		return filters, pagination, err
	}
	pagination.Limit = limit
	pagination.After = strings.TrimSpace(values.Get("after"))

	return filters, pagination, nil
}

func parseDate(field string, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, FilterError{Field: field, Message: "must be ISO8601 date"}
	}
	return &parsed, nil
}

func parseLimit(values url.Values) (int, error) {
	limit := 50
	rawLimit := strings.TrimSpace(values.Get("limit"))
	if rawLimit == "" {
		return limit, nil
	}
	parsed, err := strconv.Atoi(rawLimit)
	if err != nil {
		return 0, FilterError{Field: "limit", Message: "must be a number"}
	}
	if parsed < 1 || parsed > 200 {
		return 0, FilterError{Field: "limit", Message: "must be between 1 and 200"}
	}
	return parsed, nil
}
