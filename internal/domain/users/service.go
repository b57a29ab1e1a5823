package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/meetgrid/server/internal/auth"
)

// DefaultSessionExpiry is the time until an issued session token expires.
const DefaultSessionExpiry = 168 * time.Hour // 7 days

// Service handles user registration and session lifecycle.
type Service struct {
	repo          Repository
	sessions      auth.SessionStore
	validate      *validator.Validate
	bcryptCost    int
	sessionExpiry time.Duration
	logger        zerolog.Logger
}

func NewService(repo Repository, sessions auth.SessionStore, bcryptCost int, sessionExpiry time.Duration, logger zerolog.Logger) *Service {
	if sessionExpiry <= 0 {
		sessionExpiry = DefaultSessionExpiry
	}
	return &Service{
		repo:          repo,
		sessions:      sessions,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost:    bcryptCost,
		sessionExpiry: sessionExpiry,
		logger:        logger.With().Str("component", "users").Logger(),
	}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token is an issued session credential. Value is only populated at login.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Register creates a new account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByUsername(ctx, input.Username); err == nil && existing != nil {
		return nil, ErrUsernameTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	if existing, err := s.repo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues an opaque session token. Only the
// token's SHA-256 hash is persisted.
func (s *Service) Login(ctx context.Context, input LoginInput) (*User, *Token, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, nil, auth.ErrInvalidCredentials
	}

	user, err := s.repo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, auth.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := auth.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		return nil, nil, auth.ErrInvalidCredentials
	}

	value, err := auth.NewSessionToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}

	expiresAt := time.Now().Add(s.sessionExpiry)
	if _, err := s.sessions.Create(ctx, user.ID, auth.HashToken(value), expiresAt); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("user logged in")
	return user, &Token{Value: value, ExpiresAt: expiresAt}, nil
}

// Logout invalidates the presented session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return auth.ErrMissingToken
	}
	if err := s.sessions.DeleteByTokenHash(ctx, auth.HashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetByUsername resolves a user by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}
