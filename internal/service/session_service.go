package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/pkg/crypto"
	"github.com/singboard/singboard/internal/repository"
)

// SessionService handles login sessions.
type SessionService struct {
	sessionRepo repository.SessionRepository
	users       *UserService
	ttl         time.Duration
	rememberTTL time.Duration
	logger      zerolog.Logger
}

// SessionServiceConfig contains the dependencies for a SessionService.
type SessionServiceConfig struct {
	SessionRepo repository.SessionRepository
	Users       *UserService
	TTL         time.Duration
	RememberTTL time.Duration
	Logger      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(cfg SessionServiceConfig) *SessionService {
	return &SessionService{
		sessionRepo: cfg.SessionRepo,
		users:       cfg.Users,
		ttl:         cfg.TTL,
		rememberTTL: cfg.RememberTTL,
		logger:      cfg.Logger.With().Str("service", "session").Logger(),
	}
}

// LoginInput contains the data for establishing a session.
type LoginInput struct {
	Username  string
	Password  string
	Remember  bool
	IPAddress string
	UserAgent string
}

// LoginOutput contains the established session and its user.
type LoginOutput struct {
	Session *domain.Session
	User    *domain.User
}

// Login authenticates the credentials and establishes a session.
// With Remember set the session uses the long-lived TTL.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	user, err := s.users.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	token, err := crypto.GenerateSessionToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate session token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ttl := s.ttl
	if input.Remember {
		ttl = s.rememberTTL
	}

	now := time.Now().UTC()
	session := &domain.Session{
		Token:     token,
		UserID:    user.ID,
		Remember:  input.Remember,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Bool("remember", input.Remember).
		Msg("session established")

	return &LoginOutput{Session: session, User: user}, nil
}

// Logout destroys the session. Unknown tokens are a no-op.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if err := s.sessionRepo.Delete(ctx, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Msg("session destroyed")
	return nil
}

// ValidateSession checks a session token and returns the session and its user.
// Expired sessions are deleted on sight.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if session.IsExpired() {
		_ = s.sessionRepo.Delete(ctx, token)
		return nil, nil, domain.ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}

	if !user.IsActive {
		return nil, nil, domain.ErrUserInactive
	}

	return session, user, nil
}

// PurgeExpired removes expired sessions. Intended for periodic cleanup.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	deleted, err := s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("purged expired sessions")
	}
	return deleted, nil
}
