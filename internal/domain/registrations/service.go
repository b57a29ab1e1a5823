package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/metrics"
)

// Caller identifies the authenticated user performing an operation.
type Caller struct {
	ID       string
	Username string
	Email    string
}

// Service implements the registration ledger on top of the event store.
type Service struct {
	events   events.Repository
	repo     Repository
	notifier ConfirmationEnqueuer
	logger   zerolog.Logger
}

func NewService(eventsRepo events.Repository, repo Repository, notifier ConfirmationEnqueuer, logger zerolog.Logger) *Service {
	return &Service{
		events:   eventsRepo,
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("component", "registrations").Logger(),
	}
}

// Register records caller's intent to attend the event and queues a
// confirmation email. A failed enqueue is logged and swallowed: the
// registration outcome never depends on notification delivery.
func (s *Service) Register(ctx context.Context, eventULID string, caller Caller) (*Registration, error) {
	event, err := s.events.GetByULID(ctx, eventULID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID == caller.ID {
		metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrOwnEvent
	}

	registration, err := s.repo.Create(ctx, CreateParams{EventID: event.ID, UserID: caller.ID})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerOutcome(err)).Inc()
		return nil, err
	}
	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	registration.EventULID = event.ULID
	registration.EventTitle = event.Title
	registration.Username = caller.Username

	if s.notifier != nil {
		confirmation := Confirmation{
			RegistrationID: registration.ID,
			Username:       caller.Username,
			Email:          caller.Email,
			EventTitle:     event.Title,
			EventDate:      event.Date,
			EventLocation:  event.Location,
		}
		if err := s.notifier.EnqueueConfirmation(ctx, confirmation); err != nil {
			s.logger.Error().Err(err).
				Str("event", event.ULID).
				Str("username", caller.Username).
				Msg("failed to enqueue confirmation email")
		}
	}

	s.logger.Info().Str("event", event.ULID).Str("username", caller.Username).Msg("registration created")
	return registration, nil
}

// Unregister withdraws caller from the event.
func (s *Service) Unregister(ctx context.Context, eventULID string, caller Caller) error {
	event, err := s.events.GetByULID(ctx, eventULID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, event.ID, caller.ID); err != nil {
		return err
	}
	s.logger.Info().Str("event", event.ULID).Str("username", caller.Username).Msg("registration withdrawn")
	return nil
}

// ListForEvent returns an event's registrations, visible to the organizer only.
func (s *Service) ListForEvent(ctx context.Context, eventULID, callerID string) ([]Registration, error) {
	event, err := s.events.GetByULID(ctx, eventULID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != callerID {
		return nil, events.ErrForbidden
	}

	items, err := s.repo.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return items, nil
}

func registerOutcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		return "conflict"
	case errors.Is(err, ErrEventFull):
		return "full"
	default:
		return "error"
	}
}

// ListForUser returns the caller's own registrations.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Registration, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return items, nil
}
