package users

import "context"

// Repo persists user accounts.
type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateLoanAccess(ctx context.Context, id string, loanAccess []string) error
	Delete(ctx context.Context, id string) error
}
