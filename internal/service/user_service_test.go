package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/pkg/crypto"
	"github.com/singboard/singboard/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users     map[int64]*domain.User
	nextID    int64
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	listErr   error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, exists := m.users[id]; exists {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.users[user.ID]; !exists {
		return repository.ErrNotFound
	}
	for _, u := range m.users {
		if u.ID != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return domain.ErrUserAlreadyExists
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.users[id]; !exists {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copied := *u
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockUserRepository) ListActive(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var active []*domain.User
	for _, u := range m.users {
		if u.IsActive {
			copied := *u
			active = append(active, &copied)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	total := int64(len(active))
	if opts.Offset > len(active) {
		active = nil
	} else {
		active = active[opts.Offset:]
	}
	if opts.Limit > 0 && len(active) > opts.Limit {
		active = active[:opts.Limit]
	}
	return &repository.ListResult[domain.User]{
		Items:  active,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

// Helper to add a user directly, bypassing the service.
func (m *MockUserRepository) AddUser(user *domain.User) *domain.User {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user
}

func newTestUser(username, email, password string) *domain.User {
	hash := ""
	if password != "" {
		hash, _ = crypto.HashPassword(password)
	}
	user := domain.NewUser(username, email, hash)
	user.IsActive = true
	return user
}

// =============================================================================
// Tests
// =============================================================================

func TestUserService_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     CreateUserInput
		wantErr   error
		setupRepo func(*MockUserRepository)
	}{
		{
			name: "success",
			input: CreateUserInput{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "longenough1",
				IsActive: true,
			},
			wantErr: nil,
		},
		{
			name: "success without password",
			input: CreateUserInput{
				Username: "nopassword",
				Email:    "nopassword@example.com",
				IsActive: true,
			},
			wantErr: nil,
		},
		{
			name: "invalid username - too short",
			input: CreateUserInput{
				Username: "a",
				Email:    "a@example.com",
				Password: "longenough1",
			},
			wantErr: domain.ErrInvalidUsername,
		},
		{
			name: "invalid email",
			input: CreateUserInput{
				Username: "alice",
				Email:    "not-an-email",
				Password: "longenough1",
			},
			wantErr: domain.ErrInvalidEmail,
		},
		{
			name: "password too short",
			input: CreateUserInput{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "short",
			},
			wantErr: domain.ErrInvalidPassword,
		},
		{
			name: "duplicate username",
			input: CreateUserInput{
				Username: "alice",
				Email:    "other@example.com",
				Password: "longenough1",
			},
			wantErr: domain.ErrUserAlreadyExists,
			setupRepo: func(m *MockUserRepository) {
				m.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
			},
		},
		{
			name: "duplicate email",
			input: CreateUserInput{
				Username: "other",
				Email:    "alice@example.com",
				Password: "longenough1",
			},
			wantErr: domain.ErrUserAlreadyExists,
			setupRepo: func(m *MockUserRepository) {
				m.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}

			svc := NewUserService(repo, zerolog.Nop())
			user, err := svc.Create(context.Background(), tt.input)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
				} else if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if user.ID == 0 {
				t.Error("expected assigned user ID")
			}
			if user.Username != tt.input.Username {
				t.Errorf("expected username %s, got %s", tt.input.Username, user.Username)
			}
			if tt.input.Password == "" && user.CanAuthenticate() {
				t.Error("user without password must not be able to authenticate")
			}
		})
	}
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name: "success",
			input: RegisterInput{
				Username:             "bob",
				Email:                "bob@x.com",
				Password:             "longenough1",
				PasswordConfirmation: "longenough1",
			},
			wantErr: nil,
		},
		{
			name: "password mismatch",
			input: RegisterInput{
				Username:             "bob",
				Email:                "bob@x.com",
				Password:             "longenough1",
				PasswordConfirmation: "different99",
			},
			wantErr: domain.ErrPasswordMismatch,
		},
		{
			name: "password too short",
			input: RegisterInput{
				Username:             "bob",
				Email:                "bob@x.com",
				Password:             "short",
				PasswordConfirmation: "short",
			},
			wantErr: domain.ErrInvalidPassword,
		},
		{
			name: "empty password",
			input: RegisterInput{
				Username: "bob",
				Email:    "bob@x.com",
			},
			wantErr: domain.ErrInvalidPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			svc := NewUserService(repo, zerolog.Nop())

			user, err := svc.Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if user.IsAdmin {
				t.Error("registered user must not be admin")
			}
			if !user.IsActive {
				t.Error("registered user must be active")
			}
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := NewMockUserRepository()
	repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
	inactive := newTestUser("carol", "carol@example.com", "longenough1")
	inactive.IsActive = false
	repo.AddUser(inactive)
	repo.AddUser(newTestUser("nopass", "nopass@example.com", ""))

	svc := NewUserService(repo, zerolog.Nop())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "success", username: "alice", password: "longenough1", wantErr: nil},
		{name: "wrong password", username: "alice", password: "wrongwrong1", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", username: "nobody", password: "longenough1", wantErr: domain.ErrInvalidCredentials},
		{name: "inactive user", username: "carol", password: "longenough1", wantErr: domain.ErrUserInactive},
		{name: "no password set always fails", username: "nopass", password: "", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), tt.username, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if user.Username != tt.username {
				t.Errorf("expected username %s, got %s", tt.username, user.Username)
			}
		})
	}
}

func TestUserService_Update(t *testing.T) {
	strPtr := func(s string) *string { return &s }
	boolPtr := func(b bool) *bool { return &b }

	t.Run("not found", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := NewUserService(repo, zerolog.Nop())

		_, err := svc.Update(context.Background(), 42, UpdateUserInput{Email: strPtr("x@example.com")})
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("blank password preserves credential", func(t *testing.T) {
		repo := NewMockUserRepository()
		user := repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		empty := ""
		updated, err := svc.Update(context.Background(), user.ID, UpdateUserInput{
			Email:    strPtr("new@example.com"),
			Password: &empty,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Email != "new@example.com" {
			t.Errorf("expected updated email, got %s", updated.Email)
		}
		if !crypto.CheckPassword(updated.PasswordHash, "longenough1") {
			t.Error("old password must still verify after blank-password update")
		}
	})

	t.Run("new password replaces credential", func(t *testing.T) {
		repo := NewMockUserRepository()
		user := repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		updated, err := svc.Update(context.Background(), user.ID, UpdateUserInput{
			Password: strPtr("brandnewpass2"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !crypto.CheckPassword(updated.PasswordHash, "brandnewpass2") {
			t.Error("new password must verify")
		}
		if crypto.CheckPassword(updated.PasswordHash, "longenough1") {
			t.Error("old password must no longer verify")
		}
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		repo := NewMockUserRepository()
		repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		user := repo.AddUser(newTestUser("bob", "bob@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		_, err := svc.Update(context.Background(), user.ID, UpdateUserInput{Username: strPtr("alice")})
		if !errors.Is(err, domain.ErrUserAlreadyExists) {
			t.Errorf("expected ErrUserAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		repo := NewMockUserRepository()
		user := repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		_, err := svc.Update(context.Background(), user.ID, UpdateUserInput{Email: strPtr("not-an-email")})
		if !errors.Is(err, domain.ErrInvalidEmail) {
			t.Errorf("expected ErrInvalidEmail, got %v", err)
		}
	})

	t.Run("flags updated", func(t *testing.T) {
		repo := NewMockUserRepository()
		user := repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		updated, err := svc.Update(context.Background(), user.ID, UpdateUserInput{
			IsAdmin:  boolPtr(true),
			IsActive: boolPtr(false),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated.IsAdmin || updated.IsActive {
			t.Errorf("expected admin=true active=false, got admin=%t active=%t", updated.IsAdmin, updated.IsActive)
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := NewMockUserRepository()
		user := repo.AddUser(newTestUser("alice", "alice@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		if err := svc.Delete(context.Background(), user.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := repo.GetByID(context.Background(), user.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Error("expected user to be gone")
		}
	})

	t.Run("reserved admin refused", func(t *testing.T) {
		repo := NewMockUserRepository()
		admin := repo.AddUser(newTestUser("admin", "admin@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		err := svc.Delete(context.Background(), admin.ID)
		if !errors.Is(err, domain.ErrReservedUser) {
			t.Errorf("expected ErrReservedUser, got %v", err)
		}
		if _, err := repo.GetByID(context.Background(), admin.ID); err != nil {
			t.Error("reserved admin must remain in the store")
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := NewUserService(repo, zerolog.Nop())

		if err := svc.Delete(context.Background(), 42); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserService_ListActivePage(t *testing.T) {
	repo := NewMockUserRepository()
	for i := 0; i < 150; i++ {
		repo.AddUser(newTestUser(
			"user"+string(rune('a'+i%26))+string(rune('a'+i/26)),
			"user"+string(rune('a'+i%26))+string(rune('a'+i/26))+"@example.com",
			"",
		))
	}
	inactive := newTestUser("inactive", "inactive@example.com", "")
	inactive.IsActive = false
	repo.AddUser(inactive)

	svc := NewUserService(repo, zerolog.Nop())

	tests := []struct {
		name      string
		input     ListActivePageInput
		wantCount int
		wantPage  int
		wantPer   int
		wantTotal int64
	}{
		{
			name:      "defaults",
			input:     ListActivePageInput{},
			wantCount: DefaultPageSize,
			wantPage:  1,
			wantPer:   DefaultPageSize,
			wantTotal: 150,
		},
		{
			name:      "per_page capped at maximum",
			input:     ListActivePageInput{PerPage: 1000},
			wantCount: MaxPageSize,
			wantPage:  1,
			wantPer:   MaxPageSize,
			wantTotal: 150,
		},
		{
			name:      "page below one clamps to one",
			input:     ListActivePageInput{Page: -3, PerPage: 10},
			wantCount: 10,
			wantPage:  1,
			wantPer:   10,
			wantTotal: 150,
		},
		{
			name:      "last partial page",
			input:     ListActivePageInput{Page: 2, PerPage: 100},
			wantCount: 50,
			wantPage:  2,
			wantPer:   100,
			wantTotal: 150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := svc.ListActivePage(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(output.Users) != tt.wantCount {
				t.Errorf("expected %d users, got %d", tt.wantCount, len(output.Users))
			}
			if output.Page != tt.wantPage {
				t.Errorf("expected page %d, got %d", tt.wantPage, output.Page)
			}
			if output.PerPage != tt.wantPer {
				t.Errorf("expected per_page %d, got %d", tt.wantPer, output.PerPage)
			}
			if output.Total != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, output.Total)
			}
			for _, u := range output.Users {
				if !u.IsActive {
					t.Errorf("inactive user %s in active listing", u.Username)
				}
			}
		})
	}
}

func TestUserService_SeedAdminUser(t *testing.T) {
	t.Run("seeds admin on empty database", func(t *testing.T) {
		repo := NewMockUserRepository()
		svc := NewUserService(repo, zerolog.Nop())

		created, err := svc.SeedAdminUser(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !created {
			t.Fatal("expected seed to create the sample account")
		}

		user, err := repo.GetByUsername(context.Background(), "admin")
		if err != nil {
			t.Fatalf("seeded account not found: %v", err)
		}
		if !user.IsAdmin {
			t.Error("seeded account should be an admin")
		}
		if !user.IsActive {
			t.Error("seeded account should be active")
		}

		// The well-known password is below the form minimum but must
		// still authenticate.
		if _, err := svc.Authenticate(context.Background(), "admin", "admin"); err != nil {
			t.Errorf("seeded credential failed to authenticate: %v", err)
		}
	})

	t.Run("skips when users exist", func(t *testing.T) {
		repo := NewMockUserRepository()
		repo.AddUser(newTestUser("existing", "existing@example.com", "longenough1"))
		svc := NewUserService(repo, zerolog.Nop())

		created, err := svc.SeedAdminUser(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created {
			t.Fatal("seed should be a no-op on a populated database")
		}
		if count, _ := repo.Count(context.Background()); count != 1 {
			t.Errorf("expected 1 user after no-op seed, got %d", count)
		}
	})
}
