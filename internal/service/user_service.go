// Package service provides business logic services for Singboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/rs/zerolog"

	"github.com/singboard/singboard/internal/domain"
	"github.com/singboard/singboard/internal/pkg/crypto"
	"github.com/singboard/singboard/internal/repository"
)

// Pagination bounds for the public user listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// UserService handles user management operations.
type UserService struct {
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// CreateUserInput contains the data needed to create a new user.
type CreateUserInput struct {
	Username string
	Email    string
	// Password may be empty: the user is created without a credential and
	// cannot log in until an admin sets one.
	Password string
	IsAdmin  bool
	IsActive bool
}

// Create creates a new user account.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if err := s.validateCreateInput(input); err != nil {
		return nil, err
	}

	// Check if username already exists
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: username '%s'", domain.ErrUserAlreadyExists, input.Username)
	}

	// Check if email already exists
	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email '%s'", domain.ErrUserAlreadyExists, input.Email)
	}

	var passwordHash string
	if input.Password != "" {
		passwordHash, err = crypto.HashPassword(input.Password)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash password")
			return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
		}
	}

	user := domain.NewUser(input.Username, input.Email, passwordHash)
	user.IsAdmin = input.IsAdmin
	user.IsActive = input.IsActive

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			// Raced with a concurrent create; surface as a normal duplicate.
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Bool("is_admin", user.IsAdmin).
		Msg("user created")

	return user, nil
}

// RegisterInput contains the data for self-registration.
type RegisterInput struct {
	Username             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Register creates a non-admin, active user from a self-registration request.
// Password is mandatory and must match its confirmation.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Password == "" || len(input.Password) < crypto.MinPasswordLength {
		return nil, domain.ErrInvalidPassword
	}
	if input.Password != input.PasswordConfirmation {
		return nil, domain.ErrPasswordMismatch
	}

	return s.Create(ctx, CreateUserInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		IsAdmin:  false,
		IsActive: true,
	})
}

// Authenticate verifies user credentials and returns the user.
// A missing user and a wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		// Log but don't expose whether the username exists.
		s.logger.Debug().Str("username", username).Msg("user not found during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Debug().Str("username", username).Msg("inactive user attempted authentication")
		return nil, domain.ErrUserInactive
	}

	if !crypto.CheckPassword(user.PasswordHash, password) {
		s.logger.Debug().Str("username", username).Msg("invalid password during authentication")
		return nil, domain.ErrInvalidCredentials
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user authenticated")

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// UpdateUserInput contains a partial update of user fields.
// Nil fields are left unchanged. An empty (non-nil) Password is also left
// unchanged: blank means "keep the existing credential".
type UpdateUserInput struct {
	Username *string
	Email    *string
	IsAdmin  *bool
	IsActive *bool
	Password *string
}

// Update applies a partial update to the user with the given ID.
func (s *UserService) Update(ctx context.Context, id int64, input UpdateUserInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if input.Username != nil {
		if len(*input.Username) < domain.UsernameMinLength || len(*input.Username) > domain.UsernameMaxLength {
			return nil, domain.ErrInvalidUsername
		}
		if *input.Username != user.Username {
			exists, err := s.userRepo.ExistsByUsername(ctx, *input.Username)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			if exists {
				return nil, fmt.Errorf("%w: username '%s'", domain.ErrUserAlreadyExists, *input.Username)
			}
		}
		user.Username = *input.Username
	}

	if input.Email != nil {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			return nil, domain.ErrInvalidEmail
		}
		if *input.Email != user.Email {
			exists, err := s.userRepo.ExistsByEmail(ctx, *input.Email)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			if exists {
				return nil, fmt.Errorf("%w: email '%s'", domain.ErrUserAlreadyExists, *input.Email)
			}
		}
		user.Email = *input.Email
	}

	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	// Blank password preserves the existing credential.
	if input.Password != nil && *input.Password != "" {
		if len(*input.Password) < crypto.MinPasswordLength {
			return nil, domain.ErrInvalidPassword
		}
		hash, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user updated")
	return user, nil
}

// Delete deletes a user account. The reserved admin account is refused.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if user.IsReserved() {
		s.logger.Warn().Int64("user_id", id).Msg("refused to delete reserved admin account")
		return domain.ErrReservedUser
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", id).Str("username", user.Username).Msg("user deleted")
	return nil
}

// Sample account created on an empty database.
const (
	seedUsername = domain.ReservedAdminUsername
	seedEmail    = "admin@example.com"
	seedPassword = "admin"
)

// SeedAdminUser creates the sample admin/admin account when the database
// has no users yet. The well-known password is below the form minimum, so
// the credential is hashed and stored directly rather than going through
// Create. Returns true when the account was created.
func (s *UserService) SeedAdminUser(ctx context.Context) (bool, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count users")
		return false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := crypto.HashPassword(seedPassword)
	if err != nil {
		return false, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(seedUsername, seedEmail, hash)
	user.IsAdmin = true
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("failed to seed admin account")
		return false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("seeded sample admin account")
	return true, nil
}

// List returns all users ordered by ID ascending.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

// ListActivePageInput contains pagination options for the public listing.
type ListActivePageInput struct {
	Page    int
	PerPage int
}

// ListActivePageOutput contains one page of active users plus paging metadata.
type ListActivePageOutput struct {
	Users   []*domain.User
	Total   int64
	Page    int
	Pages   int
	PerPage int
}

// ListActivePage returns a page of active users.
// PerPage defaults to DefaultPageSize and is capped at MaxPageSize.
func (s *UserService) ListActivePage(ctx context.Context, input ListActivePageInput) (*ListActivePageOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PerPage <= 0 {
		input.PerPage = DefaultPageSize
	}
	if input.PerPage > MaxPageSize {
		input.PerPage = MaxPageSize
	}

	result, err := s.userRepo.ListActive(ctx, repository.ListOptions{
		Limit:  input.PerPage,
		Offset: (input.Page - 1) * input.PerPage,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list active users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	pages := int((result.Total + int64(input.PerPage) - 1) / int64(input.PerPage))

	return &ListActivePageOutput{
		Users:   result.Items,
		Total:   result.Total,
		Page:    input.Page,
		Pages:   pages,
		PerPage: input.PerPage,
	}, nil
}

// validateCreateInput validates the input for creating a user.
func (s *UserService) validateCreateInput(input CreateUserInput) error {
	if len(input.Username) < domain.UsernameMinLength || len(input.Username) > domain.UsernameMaxLength {
		return domain.ErrInvalidUsername
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return domain.ErrInvalidEmail
	}

	// Password is optional at creation; when present it must meet the minimum.
	if input.Password != "" && len(input.Password) < crypto.MinPasswordLength {
		return domain.ErrInvalidPassword
	}

	return nil
}
