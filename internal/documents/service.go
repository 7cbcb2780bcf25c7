package documents

import (
	"context"
	"fmt"
	"io"
	"time"

	"loandesk-backend/internal/shared/metrics"
	"loandesk-backend/internal/shared/storage/object"
	"loandesk-backend/internal/shared/telemetry"
)

// LoanAccessChecker answers whether a user may touch a loan's documents.
// Admins bypass the check at the handler layer.
type LoanAccessChecker interface {
	CanAccessLoan(ctx context.Context, username, loanID string) (bool, error)
}

// ErrLoanForbidden is returned when a non-admin user touches a loan outside
// their access list.
var ErrLoanForbidden = fmt.Errorf("loan access denied")

// Service contains business logic for documents.
type Service struct {
	Orchestrator *Orchestrator
	Locator      *Locator
	Repo         Repo
	Store        object.Store
	Access       LoanAccessChecker
}

// NewService wires the document pipeline components.
func NewService(orc *Orchestrator, loc *Locator, repo Repo, store object.Store, access LoanAccessChecker) *Service {
	return &Service{
		Orchestrator: orc,
		Locator:      loc,
		Repo:         repo,
		Store:        store,
		Access:       access,
	}
}

// Authorize checks loan access for a non-admin user. A nil checker allows
// everything (dev mode).
func (s *Service) Authorize(ctx context.Context, username, role, loanID string) error {
	if role == "admin" || s.Access == nil || username == "" {
		return nil
	}
	ok, err := s.Access.CanAccessLoan(ctx, username, loanID)
	if err != nil {
		return fmt.Errorf("check loan access: %w", err)
	}
	if !ok {
		return ErrLoanForbidden
	}
	return nil
}

// Upload runs the batch pipeline and records metrics for the batch.
func (s *Service) Upload(ctx context.Context, req BatchRequest) BatchResult {
	start := time.Now()
	result := s.Orchestrator.ProcessBatch(ctx, req)

	metrics.IncUploadBatch()
	metrics.IncUploadFiles(uint64(len(result.Successful)), uint64(len(result.Failed)))
	metrics.ObserveUploadBatchDurationMs(float64(time.Since(start).Milliseconds()))
	return result
}

// ListByLoan returns the merged two-convention view for a loan.
func (s *Service) ListByLoan(ctx context.Context, loanID string) ([]LocatedDocument, error) {
	metrics.IncLocateRequests()
	return s.Locator.FindByLoan(ctx, loanID)
}

// Download resolves a record and opens its blob for streaming.
func (s *Service) Download(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if !doc.IsActive {
		return Document{}, nil, ErrNotFound
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("open blob %s: %w", doc.StorageKey, err)
	}
	return doc, body, nil
}

// Search returns active records matching a lowercase search term.
func (s *Service) Search(ctx context.Context, term string) ([]Document, error) {
	return s.Repo.Search(ctx, term)
}

// Deactivate soft-deletes a record; the blob stays in place.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	doc, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Deactivate(ctx, id); err != nil {
		return err
	}
	telemetry.Info("document.deactivated", map[string]any{
		"document_id": id,
		"loan_id":     doc.LoanID,
		"storage_key": doc.StorageKey,
	})
	return nil
}
