package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/repository"
)

// MockSessionRepository is a mock implementation of repository.SessionRepository.
type MockSessionRepository struct {
	sessions  map[string]*domain.Session
	createErr error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[session.Token] = session
	return nil
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if s, exists := m.sessions[token]; exists {
		copied := *s
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if _, exists := m.sessions[token]; !exists {
		return repository.ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	for token, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func newSessionTestService(userRepo *MockUserRepository, sessionRepo *MockSessionRepository) *SessionService {
	users := NewUserService(userRepo, zerolog.Nop())
	return NewSessionService(SessionServiceConfig{
		SessionRepo: sessionRepo,
		Users:       users,
		TTL:         24 * time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
		Logger:      zerolog.Nop(),
	})
}

// =============================================================================
// Tests
// =============================================================================

func TestSessionService_Login(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		remember bool
		wantErr  error
	}{
		{name: "success", username: "alice", password: "longenough1", wantErr: nil},
		{name: "success with remember", username: "alice", password: "longenough1", remember: true, wantErr: nil},
		{name: "wrong password", username: "alice", password: "wrongwrong1", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", username: "nobody", password: "longenough1", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := NewMockUserRepository()
			userRepo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
			sessionRepo := NewMockSessionRepository()
			svc := newSessionTestService(userRepo, sessionRepo)

			output, err := svc.Login(context.Background(), LoginInput{
				Username: tt.username,
				Password: tt.password,
				Remember: tt.remember,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(output.Session.Token) != 64 {
				t.Errorf("expected 64-char token, got %d chars", len(output.Session.Token))
			}
			if output.User.Username != tt.username {
				t.Errorf("expected user %s, got %s", tt.username, output.User.Username)
			}

			lifetime := output.Session.ExpiresAt.Sub(output.Session.CreatedAt)
			if tt.remember && lifetime != 30*24*time.Hour {
				t.Errorf("expected remember lifetime, got %v", lifetime)
			}
			if !tt.remember && lifetime != 24*time.Hour {
				t.Errorf("expected standard lifetime, got %v", lifetime)
			}

			if _, err := sessionRepo.GetByToken(context.Background(), output.Session.Token); err != nil {
				t.Error("session must be persisted")
			}
		})
	}
}

func TestSessionService_Logout(t *testing.T) {
	userRepo := NewMockUserRepository()
	userRepo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
	sessionRepo := NewMockSessionRepository()
	svc := newSessionTestService(userRepo, sessionRepo)

	output, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "longenough1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.Logout(context.Background(), output.Session.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := svc.ValidateSession(context.Background(), output.Session.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}

	// Logging out twice is a no-op, not an error.
	if err := svc.Logout(context.Background(), output.Session.Token); err != nil {
		t.Errorf("repeated logout must not fail: %v", err)
	}
}

func TestSessionService_ValidateSession(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		userRepo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		sessionRepo := NewMockSessionRepository()
		svc := newSessionTestService(userRepo, sessionRepo)

		output, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "longenough1"})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}

		session, user, err := svc.ValidateSession(context.Background(), output.Session.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Token != output.Session.Token {
			t.Error("expected the same session back")
		}
		if user.Username != "alice" {
			t.Errorf("expected user alice, got %s", user.Username)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := newSessionTestService(NewMockUserRepository(), NewMockSessionRepository())

		_, _, err := svc.ValidateSession(context.Background(), "deadbeef")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("expired session deleted on sight", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		user := userRepo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		sessionRepo := NewMockSessionRepository()
		svc := newSessionTestService(userRepo, sessionRepo)

		now := time.Now().UTC()
		sessionRepo.sessions["expiredtoken"] = &domain.Session{
			Token:     "expiredtoken",
			UserID:    user.ID,
			CreatedAt: now.Add(-48 * time.Hour),
			ExpiresAt: now.Add(-24 * time.Hour),
		}

		_, _, err := svc.ValidateSession(context.Background(), "expiredtoken")
		if !errors.Is(err, domain.ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
		if _, exists := sessionRepo.sessions["expiredtoken"]; exists {
			t.Error("expired session must be deleted")
		}
	})

	t.Run("inactive user rejected", func(t *testing.T) {
		userRepo := NewMockUserRepository()
		user := userRepo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		sessionRepo := NewMockSessionRepository()
		svc := newSessionTestService(userRepo, sessionRepo)

		output, err := svc.Login(context.Background(), LoginInput{Username: "alice", Password: "longenough1"})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}

		userRepo.users[user.ID].IsActive = false

		_, _, err = svc.ValidateSession(context.Background(), output.Session.Token)
		if !errors.Is(err, domain.ErrUserInactive) {
			t.Errorf("expected ErrUserInactive, got %v", err)
		}
	})
}

func TestSessionService_PurgeExpired(t *testing.T) {
	userRepo := NewMockUserRepository()
	user := userRepo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
	sessionRepo := NewMockSessionRepository()
	svc := newSessionTestService(userRepo, sessionRepo)

	now := time.Now().UTC()
	sessionRepo.sessions["live"] = &domain.Session{
		Token: "live", UserID: user.ID,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	sessionRepo.sessions["dead1"] = &domain.Session{
		Token: "dead1", UserID: user.ID,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	sessionRepo.sessions["dead2"] = &domain.Session{
		Token: "dead2", UserID: user.ID,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Minute),
	}

	deleted, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	if _, exists := sessionRepo.sessions["live"]; !exists {
		t.Error("live session must survive the purge")
	}
}
