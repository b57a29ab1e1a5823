package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meetgrid/server/internal/auth"
)

type stubSessionStore struct {
	sessions map[string]*auth.Session
}

func (s *stubSessionStore) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time) (*auth.Session, error) {
	session := &auth.Session{ID: "s1", UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	s.sessions[tokenHash] = session
	return session, nil
}

func (s *stubSessionStore) LookupByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	if session, ok := s.sessions[tokenHash]; ok {
		return session, nil
	}
	return nil, auth.ErrInvalidToken
}

func (s *stubSessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	delete(s.sessions, tokenHash)
	return nil
}

func (s *stubSessionStore) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func TestRequireAuth(t *testing.T) {
	store := &stubSessionStore{sessions: make(map[string]*auth.Session)}
	token, err := auth.NewSessionToken()
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "user-1", auth.HashToken(token), time.Now().Add(time.Hour))
	require.NoError(t, err)

	var captured *auth.Session
	handler := RequireAuth(store, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest("GET", "/api/user/registrations/", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.NotNil(t, captured)
	require.Equal(t, "user-1", captured.UserID)
}

func TestRequireAuthRejects(t *testing.T) {
	store := &stubSessionStore{sessions: make(map[string]*auth.Session)}
	handler := RequireAuth(store, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	cases := map[string]string{
		"no header":     "",
		"wrong scheme":  "Basic dXNlcjpwYXNz",
		"unknown token": "Bearer bogus-token",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/api/user/registrations/", nil)
			if header != "" {
				request.Header.Set("Authorization", header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			require.Equal(t, http.StatusUnauthorized, recorder.Code)
			require.Equal(t, "application/problem+json", recorder.Header().Get("Content-Type"))
		})
	}
}

func TestRequireAuthRejectsExpiredSession(t *testing.T) {
	store := &stubSessionStore{sessions: make(map[string]*auth.Session)}
	token, err := auth.NewSessionToken()
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "user-1", auth.HashToken(token), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	handler := RequireAuth(store, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	request := httptest.NewRequest("GET", "/api/user/registrations/", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}
