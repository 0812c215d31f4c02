// internal/auth/service.go
//
// Account operations: registration and credential checks.
// Passwords are stored through Hash; session tokens come from Tokens.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/notwordle/internal/store"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Service registers users and checks their credentials.
type Service struct {
	store      store.Store
	tokens     *Tokens
	iterations int
}

// NewService builds a Service. iterations <= 0 uses DefaultIterations.
func NewService(st store.Store, tokens *Tokens, iterations int) *Service {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Service{store: st, tokens: tokens, iterations: iterations}
}

// Tokens exposes the signer used for sessions.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Register creates a user. Duplicate usernames yield ErrUserExists.
func (s *Service) Register(ctx context.Context, username, password string) (*store.User, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, password); err != nil {
		return nil, err
	}
	hash, err := Hash(password, "", s.iterations)
	if err != nil {
		return nil, err
	}
	u, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Info().Int64("userId", u.ID).Str("username", u.Username).Msg("user registered")
	return u, nil
}

// CheckCredentials looks up username and verifies password.
//
// An unknown user is reported as store.ErrNotFound; a wrong password as
// ErrInvalidCredentials together with the user, so callers can tell the two
// apart.
func (s *Service) CheckCredentials(ctx context.Context, username, password string) (*store.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	u, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}
	if !Verify(password, u.PasswordHash) {
		return u, ErrInvalidCredentials
	}
	return u, nil
}

// Authenticate resolves a session token to its user, which must still exist.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d gone", ErrInvalidToken, claims.UserID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if u == "" || len(u) > 64 {
		return fmt.Errorf("%w: username must be 1–64 chars", ErrInvalidInput)
	}
	for _, r := range u {
		if !(r == '_' || r == '-' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: username: letters, numbers, '_', '-', '.' only", ErrInvalidInput)
		}
	}
	if p == "" || len(p) > 1024 {
		return fmt.Errorf("%w: password must be 1–1024 chars", ErrInvalidInput)
	}
	return nil
}
