package documents

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo used in dev mode and
// tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Insert appends a new record.
func (r *MemoryRepo) Insert(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.docs {
		if existing.StorageKey == doc.StorageKey {
			return fmt.Errorf("duplicate storage key %s", doc.StorageKey)
		}
	}
	r.docs = append(r.docs, doc)
	return nil
}

// FindByLoan returns active records for the loan in insertion order.
func (r *MemoryRepo) FindByLoan(ctx context.Context, loanID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.docs {
		if doc.IsActive && doc.LoanID == loanID {
			out = append(out, doc)
		}
	}
	return out, nil
}

// FindByID returns a record by id.
func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// FindByStorageKey returns a record by its storage key.
func (r *MemoryRepo) FindByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs {
		if doc.StorageKey == storageKey {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// Search returns active records whose search terms contain term.
func (r *MemoryRepo) Search(ctx context.Context, term string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.docs {
		if !doc.IsActive {
			continue
		}
		for _, t := range doc.SearchTerms {
			if t == term {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

// Deactivate flips the soft-delete flag.
func (r *MemoryRepo) Deactivate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.docs {
		if r.docs[i].ID == id {
			r.docs[i].IsActive = false
			return nil
		}
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
