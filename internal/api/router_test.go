package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/meetgrid/server/internal/auth"
	"github.com/meetgrid/server/internal/config"
	"github.com/meetgrid/server/internal/domain/events"
	"github.com/meetgrid/server/internal/domain/registrations"
	"github.com/meetgrid/server/internal/domain/users"
)

type memUsers struct {
	mu     sync.Mutex
	byName map[string]*users.User
	nextID int
}

func newMemUsers() *memUsers {
	return &memUsers{byName: make(map[string]*users.User)}
}

func (m *memUsers) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user := &users.User{
		ID:           fmt.Sprintf("u%d", m.nextID),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now(),
	}
	m.byName[user.Username] = user
	return user, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byName {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.byName[username]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byName {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, users.ErrNotFound
}

type memSessions struct {
	mu     sync.Mutex
	byHash map[string]*auth.Session
	users  *memUsers
	nextID int
}

func newMemSessions(u *memUsers) *memSessions {
	return &memSessions{byHash: make(map[string]*auth.Session), users: u}
}

func (m *memSessions) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*auth.Session, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	session := &auth.Session{
		ID:        fmt.Sprintf("s%d", m.nextID),
		UserID:    userID,
		Username:  user.Username,
		Email:     user.Email,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	m.byHash[tokenHash] = session
	return session, nil
}

func (m *memSessions) LookupByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.byHash[tokenHash]; ok {
		return session, nil
	}
	return nil, auth.ErrInvalidToken
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byHash, tokenHash)
	return nil
}

func (m *memSessions) DeleteExpired(context.Context) (int64, error) { return 0, nil }

type memEvents struct {
	mu     sync.Mutex
	byULID map[string]*events.Event
	order  []string
	users  *memUsers
	ledger *memLedger
	nextID int
}

func newMemEvents(u *memUsers) *memEvents {
	return &memEvents{byULID: make(map[string]*events.Event), users: u}
}

func (m *memEvents) List(ctx context.Context, filters events.Filters, _ events.Pagination) (events.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := events.ListResult{}
	for _, ulid := range m.order {
		event := m.byULID[ulid]
		if filters.Organizer != "" && event.OrganizerUsername != filters.Organizer {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(event.Title), strings.ToLower(filters.Query)) &&
			!strings.Contains(strings.ToLower(event.Description), strings.ToLower(filters.Query)) {
			continue
		}
		result.Events = append(result.Events, *event)
	}
	return result, nil
}

func (m *memEvents) GetByULID(_ context.Context, ulid string) (*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event, ok := m.byULID[ulid]; ok {
		copied := *event
		return &copied, nil
	}
	return nil, events.ErrNotFound
}

func (m *memEvents) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	organizer, err := m.users.GetByID(ctx, params.OrganizerID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	event := &events.Event{
		ID:                fmt.Sprintf("e%d", m.nextID),
		ULID:              params.ULID,
		Title:             params.Title,
		Description:       params.Description,
		Date:              params.Date,
		Location:          params.Location,
		Capacity:          params.Capacity,
		OrganizerID:       params.OrganizerID,
		OrganizerUsername: organizer.Username,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	m.byULID[event.ULID] = event
	m.order = append(m.order, event.ULID)
	return event, nil
}

func (m *memEvents) Update(_ context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, event := range m.byULID {
		if event.ID == id {
			event.Title = params.Title
			event.Description = params.Description
			event.Date = params.Date
			event.Location = params.Location
			event.Capacity = params.Capacity
			event.UpdatedAt = time.Now()
			copied := *event
			return &copied, nil
		}
	}
	return nil, events.ErrNotFound
}

func (m *memEvents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	found := false
	for ulid, event := range m.byULID {
		if event.ID == id {
			delete(m.byULID, ulid)
			for i, u := range m.order {
				if u == ulid {
					m.order = append(m.order[:i], m.order[i+1:]...)
					break
				}
			}
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return events.ErrNotFound
	}
	// Mirrors the registrations FK ON DELETE CASCADE.
	if m.ledger != nil {
		m.ledger.deleteByEvent(id)
	}
	return nil
}

type memLedgerKey struct{ eventID, userID string }

type memLedger struct {
	mu     sync.Mutex
	rows   map[memLedgerKey]*registrations.Registration
	users  *memUsers
	events *memEvents
	nextID int64
}

func newMemLedger(u *memUsers, e *memEvents) *memLedger {
	return &memLedger{rows: make(map[memLedgerKey]*registrations.Registration), users: u, events: e}
}

func (m *memLedger) Create(ctx context.Context, params registrations.CreateParams) (*registrations.Registration, error) {
	user, err := m.users.GetByID(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	var event *events.Event
	m.events.mu.Lock()
	for _, candidate := range m.events.byULID {
		if candidate.ID == params.EventID {
			copied := *candidate
			event = &copied
			break
		}
	}
	m.events.mu.Unlock()
	if event == nil {
		return nil, events.ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := memLedgerKey{eventID: params.EventID, userID: params.UserID}
	if _, ok := m.rows[key]; ok {
		return nil, registrations.ErrAlreadyRegistered
	}
	m.nextID++
	registration := &registrations.Registration{
		ID:           m.nextID,
		EventID:      params.EventID,
		EventULID:    event.ULID,
		EventTitle:   event.Title,
		UserID:       params.UserID,
		Username:     user.Username,
		RegisteredAt: time.Now(),
	}
	m.rows[key] = registration
	return registration, nil
}

func (m *memLedger) deleteByEvent(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.rows {
		if key.eventID == eventID {
			delete(m.rows, key)
		}
	}
}

func (m *memLedger) Delete(_ context.Context, eventID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memLedgerKey{eventID: eventID, userID: userID}
	if _, ok := m.rows[key]; !ok {
		return registrations.ErrNotFound
	}
	delete(m.rows, key)
	return nil
}

func (m *memLedger) ListByEvent(_ context.Context, eventID string) ([]registrations.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []registrations.Registration
	for key, registration := range m.rows {
		if key.eventID == eventID {
			out = append(out, *registration)
		}
	}
	return out, nil
}

func (m *memLedger) ListByUser(_ context.Context, userID string) ([]registrations.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []registrations.Registration
	for key, registration := range m.rows {
		if key.userID == userID {
			out = append(out, *registration)
		}
	}
	return out, nil
}

type memEnqueuer struct {
	mu            sync.Mutex
	confirmations []registrations.Confirmation
}

func (m *memEnqueuer) EnqueueConfirmation(_ context.Context, confirmation registrations.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, confirmation)
	return nil
}

type testServer struct {
	handler  http.Handler
	enqueuer *memEnqueuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	usersRepo := newMemUsers()
	sessions := newMemSessions(usersRepo)
	eventsRepo := newMemEvents(usersRepo)
	ledger := newMemLedger(usersRepo, eventsRepo)
	eventsRepo.ledger = ledger
	enqueuer := &memEnqueuer{}

	cfg := config.Config{
		Auth: config.AuthConfig{
			BcryptCost:    4,
			SessionExpiry: time.Hour,
		},
		Environment: "test",
	}

	handler := NewRouter(cfg, zerolog.Nop(), Deps{
		Users:         usersRepo,
		Sessions:      sessions,
		Events:        eventsRepo,
		Registrations: ledger,
		Enqueuer:      enqueuer,
	})
	return &testServer{handler: handler, enqueuer: enqueuer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.RemoteAddr = "198.51.100.7:4000"
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func (s *testServer) registerAndLogin(t *testing.T, username, email string) string {
	t.Helper()
	response := s.do(t, "POST", "/api/auth/register/", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "sw0rdfish-long",
	})
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	response = s.do(t, "POST", "/api/auth/login/", "", map[string]string{
		"username": username,
		"password": "sw0rdfish-long",
	})
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func (s *testServer) createEvent(t *testing.T, token, title string) string {
	t.Helper()
	response := s.do(t, "POST", "/api/events/", token, map[string]any{
		"title":       title,
		"description": "annual gathering",
		"date":        "2026-09-12T09:00:00Z",
		"location":    "Lisbon",
	})
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	var event struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &event))
	require.Len(t, event.ID, 26)
	return event.ID
}

func TestAuthFlow(t *testing.T) {
	server := newTestServer(t)

	token := server.registerAndLogin(t, "alice", "alice@example.com")

	// Duplicate username conflicts.
	response := server.do(t, "POST", "/api/auth/register/", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "sw0rdfish-long",
	})
	require.Equal(t, http.StatusConflict, response.Code)

	// Bad credentials are a uniform 401.
	response = server.do(t, "POST", "/api/auth/login/", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, response.Code)

	// Logout revokes the token.
	response = server.do(t, "POST", "/api/auth/logout/", token, nil)
	require.Equal(t, http.StatusNoContent, response.Code)

	response = server.do(t, "POST", "/api/events/", token, map[string]any{
		"title":       "after logout",
		"description": "x",
		"date":        "2026-09-12T09:00:00Z",
		"location":    "x",
	})
	require.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestEventCRUD(t *testing.T) {
	server := newTestServer(t)
	alice := server.registerAndLogin(t, "alice", "alice@example.com")
	bob := server.registerAndLogin(t, "bob", "bob@example.com")

	eventID := server.createEvent(t, alice, "Conf2026")

	// Anonymous read works.
	response := server.do(t, "GET", "/api/events/"+eventID+"/", "", nil)
	require.Equal(t, http.StatusOK, response.Code)

	response = server.do(t, "GET", "/api/events/", "", nil)
	require.Equal(t, http.StatusOK, response.Code)
	require.Contains(t, response.Body.String(), "Conf2026")

	// Anonymous create does not.
	response = server.do(t, "POST", "/api/events/", "", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, response.Code)

	update := map[string]any{
		"title":       "Conf2026 (moved)",
		"description": "annual gathering",
		"date":        "2026-09-13T09:00:00Z",
		"location":    "Porto",
	}

	// Only the organizer may mutate.
	response = server.do(t, "PUT", "/api/events/"+eventID+"/", bob, update)
	require.Equal(t, http.StatusForbidden, response.Code)

	response = server.do(t, "PUT", "/api/events/"+eventID+"/", alice, update)
	require.Equal(t, http.StatusOK, response.Code)
	require.Contains(t, response.Body.String(), "Porto")

	// Validation failures carry field errors.
	response = server.do(t, "POST", "/api/events/", alice, map[string]any{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, response.Code)
	require.Contains(t, response.Body.String(), "title")

	response = server.do(t, "DELETE", "/api/events/"+eventID+"/", bob, nil)
	require.Equal(t, http.StatusForbidden, response.Code)

	response = server.do(t, "DELETE", "/api/events/"+eventID+"/", alice, nil)
	require.Equal(t, http.StatusNoContent, response.Code)

	response = server.do(t, "GET", "/api/events/"+eventID+"/", "", nil)
	require.Equal(t, http.StatusNotFound, response.Code)
}

func TestRegistrationFlow(t *testing.T) {
	server := newTestServer(t)
	alice := server.registerAndLogin(t, "alice", "alice@example.com")
	bob := server.registerAndLogin(t, "bob", "bob@example.com")

	eventID := server.createEvent(t, alice, "Conf2026")

	// Organizers cannot register for their own event.
	response := server.do(t, "POST", "/api/events/"+eventID+"/register/", alice, nil)
	require.Equal(t, http.StatusBadRequest, response.Code)

	response = server.do(t, "POST", "/api/events/"+eventID+"/register/", bob, nil)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())
	require.Contains(t, response.Body.String(), "Conf2026")

	// One confirmation email queued for bob.
	require.Len(t, server.enqueuer.confirmations, 1)
	require.Equal(t, "bob@example.com", server.enqueuer.confirmations[0].Email)

	// Registering twice conflicts.
	response = server.do(t, "POST", "/api/events/"+eventID+"/register/", bob, nil)
	require.Equal(t, http.StatusConflict, response.Code)

	// The attendee list is organizer-only.
	response = server.do(t, "GET", "/api/events/"+eventID+"/registrations/", bob, nil)
	require.Equal(t, http.StatusForbidden, response.Code)

	response = server.do(t, "GET", "/api/events/"+eventID+"/registrations/", alice, nil)
	require.Equal(t, http.StatusOK, response.Code)
	require.Contains(t, response.Body.String(), "bob")

	response = server.do(t, "GET", "/api/user/registrations/", bob, nil)
	require.Equal(t, http.StatusOK, response.Code)
	require.Contains(t, response.Body.String(), "Conf2026")

	// Withdrawal frees the slot.
	response = server.do(t, "DELETE", "/api/events/"+eventID+"/register/", bob, nil)
	require.Equal(t, http.StatusNoContent, response.Code)

	response = server.do(t, "GET", "/api/user/registrations/", bob, nil)
	require.Equal(t, http.StatusOK, response.Code)
	require.NotContains(t, response.Body.String(), "Conf2026")
}

func TestEventDeleteCascadesRegistrations(t *testing.T) {
	server := newTestServer(t)
	alice := server.registerAndLogin(t, "alice", "alice@example.com")
	bob := server.registerAndLogin(t, "bob", "bob@example.com")

	eventID := server.createEvent(t, alice, "Conf2026")

	response := server.do(t, "POST", "/api/events/"+eventID+"/register/", bob, nil)
	require.Equal(t, http.StatusCreated, response.Code, response.Body.String())

	response = server.do(t, "DELETE", "/api/events/"+eventID+"/", alice, nil)
	require.Equal(t, http.StatusNoContent, response.Code)

	// No orphaned ledger rows survive the event.
	response = server.do(t, "GET", "/api/user/registrations/", bob, nil)
	require.Equal(t, http.StatusOK, response.Code)

	var payload struct {
		Registrations []json.RawMessage `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &payload))
	require.Empty(t, payload.Registrations)
}

func TestOrganizerListing(t *testing.T) {
	server := newTestServer(t)
	alice := server.registerAndLogin(t, "alice", "alice@example.com")
	bob := server.registerAndLogin(t, "bob", "bob@example.com")

	server.createEvent(t, alice, "Alice Conf")
	server.createEvent(t, bob, "Bob Conf")

	response := server.do(t, "GET", "/api/events/organizer/alice/", "", nil)
	require.Equal(t, http.StatusOK, response.Code)
	require.Contains(t, response.Body.String(), "Alice Conf")
	require.NotContains(t, response.Body.String(), "Bob Conf")

	response = server.do(t, "GET", "/api/events/organizer/nobody/", "", nil)
	require.Equal(t, http.StatusNotFound, response.Code)
}

func TestUnknownEventIs404(t *testing.T) {
	server := newTestServer(t)

	response := server.do(t, "GET", "/api/events/01HQZX3Y4K6F7G8H9J0K1M2N3P/", "", nil)
	require.Equal(t, http.StatusNotFound, response.Code)

	// Non-ULID ids are treated as unknown events too.
	response = server.do(t, "GET", "/api/events/not-a-ulid/", "", nil)
	require.Equal(t, http.StatusNotFound, response.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	response := server.do(t, "PATCH", "/api/events/", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, response.Code)
	require.Equal(t, "GET, POST", response.Header().Get("Allow"))
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	response := server.do(t, "GET", "/healthz", "", nil)
	require.Equal(t, http.StatusOK, response.Code)

	// No database wired: readiness still passes with a nil pinger.
	response = server.do(t, "GET", "/readyz", "", nil)
	require.Equal(t, http.StatusOK, response.Code)

	response = server.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, response.Code)
}
