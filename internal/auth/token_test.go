package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubSessionStore struct {
	sessions map[string]*Session
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*Session)}
}

func (s *stubSessionStore) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time) (*Session, error) {
	session := &Session{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	s.sessions[tokenHash] = session
	return session, nil
}

func (s *stubSessionStore) LookupByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	if session, ok := s.sessions[tokenHash]; ok {
		return session, nil
	}
	return nil, ErrInvalidToken
}

func (s *stubSessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	delete(s.sessions, tokenHash)
	return nil
}

func (s *stubSessionStore) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func TestNewSessionToken(t *testing.T) {
	first, err := NewSessionToken()
	require.NoError(t, err)
	require.Len(t, first, 43)

	second, err := NewSessionToken()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestHashTokenDeterministic(t *testing.T) {
	require.Equal(t, HashToken("abc"), HashToken("abc"))
	require.NotEqual(t, HashToken("abc"), HashToken("abd"))
}

func TestTokenFromHeader(t *testing.T) {
	token, err := TokenFromHeader("Bearer sometoken")
	require.NoError(t, err)
	require.Equal(t, "sometoken", token)

	token, err = TokenFromHeader("bearer sometoken")
	require.NoError(t, err)
	require.Equal(t, "sometoken", token)

	_, err = TokenFromHeader("")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = TokenFromHeader("Basic dXNlcjpwYXNz")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = TokenFromHeader("Bearer")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()
	store := newStubSessionStore()

	token, err := NewSessionToken()
	require.NoError(t, err)
	_, err = store.Create(ctx, "user-1", HashToken(token), time.Now().Add(time.Hour))
	require.NoError(t, err)

	session, err := ValidateSession(ctx, store, "Bearer "+token)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)

	_, err = ValidateSession(ctx, store, "Bearer wrong-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateSession(ctx, store, "")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = ValidateSession(ctx, nil, "Bearer "+token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateSessionExpired(t *testing.T) {
	ctx := context.Background()
	store := newStubSessionStore()

	token, err := NewSessionToken()
	require.NoError(t, err)
	_, err = store.Create(ctx, "user-1", HashToken(token), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = ValidateSession(ctx, store, "Bearer "+token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
