package handlers

import (
	"net/http"

	"github.com/meetgrid/server/internal/api/middleware"
	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/ids"
	"github.com/meetgrid/server/internal/domain/registrations"
)

// RegistrationsHandler serves the registration ledger endpoints.
type RegistrationsHandler struct {
	registrations *registrations.Service
	env           string
}

func NewRegistrationsHandler(registrationsService *registrations.Service, env string) *RegistrationsHandler {
	return &RegistrationsHandler{registrations: registrationsService, env: env}
}

// Register handles POST /api/events/{id}/register/.
func (h *RegistrationsHandler) Register(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	caller := registrations.Caller{
		ID:       session.UserID,
		Username: session.Username,
		Email:    session.Email,
	}
	registration, err := h.registrations.Register(r.Context(), ulid, caller)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, newRegistrationResponse(registration))
}

// Unregister handles DELETE /api/events/{id}/register/.
func (h *RegistrationsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	caller := registrations.Caller{
		ID:       session.UserID,
		Username: session.Username,
		Email:    session.Email,
	}
	if err := h.registrations.Unregister(r.Context(), ulid, caller); err != nil {
		respondError(w, r, err, h.env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListForEvent handles GET /api/events/{id}/registrations/. Organizer only.
func (h *RegistrationsHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	items, err := h.registrations.ListForEvent(r.Context(), ulid, session.UserID)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"registrations": newRegistrationList(items)})
}

// ListForUser handles GET /api/user/registrations/.
func (h *RegistrationsHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	items, err := h.registrations.ListForUser(r.Context(), session.UserID)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"registrations": newRegistrationList(items)})
}

func (h *RegistrationsHandler) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ulid := r.PathValue("id")
	if err := ids.ValidateULID(ulid); err != nil {
		respondError(w, r, events.ErrNotFound, h.env)
		return "", false
	}
	return ulid, true
}
