package handlers

import (
	"net/http"

	"github.com/meetgrid/server/internal/api/middleware"
	"github.com/meetgrid/server/internal/api/problem"
	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/ids"
	"github.com/meetgrid/server/internal/domain/users"
)

// EventsHandler serves event CRUD and organizer listings.
type EventsHandler struct {
	events *events.Service
	users  *users.Service
	env    string
}

func NewEventsHandler(eventsService *events.Service, usersService *users.Service, env string) *EventsHandler {
	return &EventsHandler{events: eventsService, users: usersService, env: env}
}

type eventListResponse struct {
	Events     []eventResponse `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// List handles GET /api/events/.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, pagination, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	result, err := h.events.List(r.Context(), filters, pagination)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, newEventListResponse(result))
}

// Create handles POST /api/events/.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	var input events.EventInput
	if err := decodeJSON(w, r, &input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Malformed request body", err, h.env)
		return
	}

	event, err := h.events.Create(r.Context(), session.UserID, input)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusCreated, newEventResponse(event))
}

// Get handles GET /api/events/{id}/.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := h.events.GetByULID(r.Context(), ulid)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, newEventResponse(event))
}

// Update handles PUT /api/events/{id}/.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var input events.EventInput
	if err := decodeJSON(w, r, &input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation,
			"Malformed request body", err, h.env)
		return
	}

	event, err := h.events.Update(r.Context(), ulid, session.UserID, input)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, newEventResponse(event))
}

// Delete handles DELETE /api/events/{id}/.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	ulid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), ulid, session.UserID); err != nil {
		respondError(w, r, err, h.env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByOrganizer handles GET /api/events/organizer/{username}/.
func (h *EventsHandler) ListByOrganizer(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	if _, err := h.users.GetByUsername(r.Context(), username); err != nil {
		respondError(w, r, err, h.env)
		return
	}

	filters, pagination, err := events.ParseFilters(r.URL.Query())
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}
	filters.Organizer = username

	result, err := h.events.List(r.Context(), filters, pagination)
	if err != nil {
		respondError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, newEventListResponse(result))
}

func (h *EventsHandler) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ulid := r.PathValue("id")
	if err := ids.ValidateULID(ulid); err != nil {
		respondError(w, r, events.ErrNotFound, h.env)
		return "", false
	}
	return ulid, true
}

func newEventListResponse(result events.ListResult) eventListResponse {
	response := eventListResponse{
		Events:     make([]eventResponse, 0, len(result.Events)),
		NextCursor: result.NextCursor,
	}
	for i := range result.Events {
		response.Events = append(response.Events, newEventResponse(&result.Events[i]))
	}
	return response
}
