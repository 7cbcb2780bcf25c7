package documents

import "context"

// Repo defines persistence operations for document records. Implementations
// never update a record after insert except for the IsActive soft-delete flag.
type Repo interface {
	// Insert persists a new record. It always inserts; there is no upsert.
	Insert(ctx context.Context, doc Document) error
	// FindByLoan returns active records whose loan identifier matches,
	// tolerating both the historical loanId field and the loanNumber field
	// used at different times.
	FindByLoan(ctx context.Context, loanID string) ([]Document, error)
	FindByID(ctx context.Context, id string) (Document, error)
	FindByStorageKey(ctx context.Context, storageKey string) (Document, error)
	// Search returns active records whose search terms contain the given
	// lowercase term.
	Search(ctx context.Context, term string) ([]Document, error)
	// Deactivate flips the soft-delete flag; inactive records are excluded
	// from default listings.
	Deactivate(ctx context.Context, id string) error
}
