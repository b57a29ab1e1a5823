package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Session is an opaque bearer token bound to one user. Only the SHA-256
// hash of the token is stored; the plaintext is handed out once at login.
type Session struct {
	ID        string
	UserID    string
	Username  string
	Email     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type SessionStore interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*Session, error)
	LookupByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// NewSessionToken generates a cryptographically secure random token.
// Returns a 32-byte token encoded as URL-safe base64 (43 characters).
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken hashes a session token using SHA-256 for storage at rest.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// TokenFromHeader extracts the bearer token from an Authorization header.
func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" || !utf8.ValidString(token) {
		return "", ErrInvalidToken
	}
	return token, nil
}

// ValidateSession resolves a bearer header to a live session.
func ValidateSession(ctx context.Context, store SessionStore, authHeader string) (*Session, error) {
	if store == nil {
		return nil, ErrInvalidToken
	}

	token, err := TokenFromHeader(authHeader)
	if err != nil {
		return nil, err
	}

	session, err := store.LookupByTokenHash(ctx, HashToken(token))
	if err != nil || session == nil {
		return nil, ErrInvalidToken
	}
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(time.Now()) {
		return nil, ErrInvalidToken
	}
	return session, nil
}
