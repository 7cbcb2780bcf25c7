package users

import (
	"context"
	"errors"
	"testing"
)

func TestCreateHashesPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewService(NewMemoryRepo())

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "Clerk1",
		Password: "secret123",
		FullName: "Clerk One",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Username != "clerk1" {
		t.Fatalf("username must normalize to lowercase, got %q", user.Username)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Fatalf("password must be hashed, got %q", user.PasswordHash)
	}
	if user.Role != RoleUser {
		t.Fatalf("expected default role user, got %q", user.Role)
	}
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Username: "clerk1", Password: "a-password"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, CreateInput{Username: "CLERK1", Password: "b-password"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Username: "x", Password: "p", Role: "superuser"})
	if err == nil {
		t.Fatal("expected role validation error")
	}
}

func TestAuthenticateIssuesToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Username: "clerk1", Password: "secret123", FullName: "Clerk One"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	user, token, err := svc.Authenticate(ctx, "clerk1", "secret123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if user.Username != "clerk1" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestAuthenticateCollapsesFailures(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Username: "clerk1", Password: "secret123"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Wrong password and unknown user produce the same error.
	if _, _, err := svc.Authenticate(ctx, "clerk1", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, "nobody", "secret123"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestCanAccessLoan(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{
		Username:   "clerk1",
		Password:   "secret123",
		LoanAccess: []string{"BIZLN-1", "BIZLN-2"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{
		Username: "boss",
		Password: "secret123",
		Role:     RoleAdmin,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		username string
		loanID   string
		want     bool
	}{
		{"clerk1", "BIZLN-1", true},
		{"clerk1", "BIZLN-3", false},
		{"boss", "BIZLN-3", true}, // admin sees everything
		{"nobody", "BIZLN-1", false},
	}
	for _, tc := range cases {
		ok, err := svc.CanAccessLoan(ctx, tc.username, tc.loanID)
		if err != nil {
			t.Fatalf("CanAccessLoan(%s, %s): %v", tc.username, tc.loanID, err)
		}
		if ok != tc.want {
			t.Fatalf("CanAccessLoan(%s, %s) = %v, want %v", tc.username, tc.loanID, ok, tc.want)
		}
	}
}

func TestAuthenticateByEmailRequiresProvisionedAccount(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{
		Username: "clerk1",
		Password: "secret123",
		Email:    "clerk1@example.com",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, token, err := svc.AuthenticateByEmail(ctx, "Clerk1@Example.com")
	if err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	if _, _, err := svc.AuthenticateByEmail(ctx, "stranger@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unprovisioned email, got %v", err)
	}
}
