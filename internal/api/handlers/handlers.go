// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meetgrid/server/internal/api/pagination"
	"github.com/meetgrid/server/internal/api/problem"
	"github.com/meetgrid/server/internal/auth"
	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/registrations"
	"github.com/meetgrid/server/internal/domain/users"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// validationDetails flattens validator errors into a field → message map.
func validationDetails(errs validator.ValidationErrors) map[string]any {
	details := make(map[string]any, len(errs))
	for _, fieldErr := range errs {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			details[field] = "required"
		case "email":
			details[field] = "must be a valid email address"
		case "min":
			details[field] = fmt.Sprintf("must be at least %s characters", fieldErr.Param())
		case "max":
			details[field] = fmt.Sprintf("must be at most %s characters", fieldErr.Param())
		case "gt":
			details[field] = fmt.Sprintf("must be greater than %s", fieldErr.Param())
		default:
			details[field] = "invalid value"
		}
	}
	return details
}

// respondError maps domain errors onto problem responses.
func respondError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var validationErrs validator.ValidationErrors
	var filterErr events.FilterError

	switch {
	case errors.As(err, &validationErrs):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Validation failed", err, env, problem.WithErrors(validationDetails(validationErrs)))
	case errors.As(err, &filterErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Invalid query parameter", err, env,
			problem.WithErrors(map[string]any{filterErr.Field: filterErr.Message}))
	case errors.Is(err, pagination.ErrInvalidCursor):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Invalid cursor", err, env)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized,
			"Authentication failed", err, env)
	case errors.Is(err, events.ErrForbidden):
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden,
			"Not the event organizer", err, env)
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound,
			"Event not found", err, env)
	case errors.Is(err, users.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound,
			"User not found", err, env)
	case errors.Is(err, registrations.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound,
			"Registration not found", err, env)
	case errors.Is(err, users.ErrUsernameTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict,
			"Username already taken", err, env)
	case errors.Is(err, users.ErrEmailTaken):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict,
			"Email already taken", err, env)
	case errors.Is(err, registrations.ErrAlreadyRegistered):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict,
			"Already registered for this event", err, env)
	case errors.Is(err, registrations.ErrEventFull):
		problem.Write(w, r, http.StatusConflict, problem.TypeEventFull,
			"Event is at capacity", err, env)
	case errors.Is(err, registrations.ErrOwnEvent):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Organizers cannot register for their own event", err, env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal,
			"Internal server error", err, env)
	}
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user *users.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

type eventResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Capacity    *int      `json:"capacity,omitempty"`
	Organizer   string    `json:"organizer"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newEventResponse(event *events.Event) eventResponse {
	return eventResponse{
		ID:          event.ULID,
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date,
		Location:    event.Location,
		Capacity:    event.Capacity,
		Organizer:   event.OrganizerUsername,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

type registrationResponse struct {
	ID           int64     `json:"id"`
	Event        string    `json:"event"`
	EventTitle   string    `json:"event_title"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registered_at"`
}

func newRegistrationResponse(registration *registrations.Registration) registrationResponse {
	return registrationResponse{
		ID:           registration.ID,
		Event:        registration.EventULID,
		EventTitle:   registration.EventTitle,
		Username:     registration.Username,
		RegisteredAt: registration.RegisteredAt,
	}
}

func newRegistrationList(items []registrations.Registration) []registrationResponse {
	out := make([]registrationResponse, 0, len(items))
	for i := range items {
		out = append(out, newRegistrationResponse(&items[i]))
	}
	return out
}
