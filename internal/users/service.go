package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"loandesk-backend/internal/shared/auth"
	"loandesk-backend/internal/shared/telemetry"
)

// Service contains business logic for user accounts.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// CreateInput is the caller-facing shape for account creation; the password
// arrives plaintext and is hashed here.
type CreateInput struct {
	Username   string
	Password   string
	FullName   string
	Role       string
	Email      string
	Phone      string
	LoanAccess []string
}

// Create registers a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	if in.Username == "" {
		return User{}, errors.New("username is required")
	}
	if in.Password == "" {
		return User{}, errors.New("password is required")
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if role != RoleAdmin && role != RoleUser {
		return User{}, errors.New("role must be admin or user")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         role,
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		Phone:        strings.TrimSpace(in.Phone),
		LoanAccess:   in.LoanAccess,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	telemetry.Info("user.created", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

// Authenticate checks credentials and issues a session token. A missing user
// and a wrong password both collapse to ErrBadCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return User{}, "", ErrBadCredentials
	}

	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrBadCredentials
		}
		return User{}, "", err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return User{}, "", ErrBadCredentials
	}

	token, err := auth.SignToken(auth.Claims{
		Username: user.Username,
		Name:     user.FullName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
	})
	if err != nil {
		return User{}, "", err
	}

	telemetry.Info("user.login", map[string]any{"user_id": user.ID, "username": user.Username})
	return user, token, nil
}

// GetByID returns a user by id.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.Repo.List(ctx)
}

// UpdateLoanAccess replaces a user's loan access set.
func (s *Service) UpdateLoanAccess(ctx context.Context, id string, loanAccess []string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("user id is required")
	}
	return s.Repo.UpdateLoanAccess(ctx, id, loanAccess)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("user id is required")
	}
	return s.Repo.Delete(ctx, id)
}

// AuthenticateByEmail issues a session token for an already-provisioned
// account matched by verified email. Used by the SSO callback; accounts are
// never auto-created from an SSO profile.
func (s *Service) AuthenticateByEmail(ctx context.Context, email string) (User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return User{}, "", ErrNotFound
	}

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return User{}, "", err
	}

	token, err := auth.SignToken(auth.Claims{
		Username: user.Username,
		Name:     user.FullName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
		},
	})
	if err != nil {
		return User{}, "", err
	}

	telemetry.Info("user.login.sso", map[string]any{"user_id": user.ID, "username": user.Username})
	return user, token, nil
}

// CanAccessLoan implements the loan access check consumed by the documents
// service.
func (s *Service) CanAccessLoan(ctx context.Context, username, loanID string) (bool, error) {
	user, err := s.Repo.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.HasLoanAccess(loanID), nil
}
