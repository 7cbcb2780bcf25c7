package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loandesk-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, loan_id, file_name, original_name, mime_type, file_size, storage_key,
	folder_path, document_type, description, uploaded_by, uploader_name, uploaded_at, is_active, search_terms`

// Insert persists a new record.
func (r *PGRepo) Insert(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
	id, loan_id, file_name, original_name, mime_type, file_size, storage_key,
	folder_path, document_type, description, uploaded_by, uploader_name, uploaded_at, is_active, search_terms
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID, doc.LoanID, doc.FileName, doc.OriginalName, doc.MimeType, doc.FileSize,
		doc.StorageKey, nullIfEmpty(doc.FolderPath), nullIfEmpty(doc.DocumentType),
		nullIfEmpty(doc.Description), doc.UploadedBy, doc.UploaderName, doc.UploadedAt,
		doc.IsActive, db.TextArray(doc.SearchTerms),
	)
	if err != nil {
		return fmt.Errorf("insert document storage_key=%s: %w", doc.StorageKey, err)
	}
	return nil
}

// FindByLoan matches active records on either the current loan_id column or
// the loan_number column written by earlier versions.
func (r *PGRepo) FindByLoan(ctx context.Context, loanID string) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE (loan_id = $1 OR loan_number = $1) AND is_active
ORDER BY uploaded_at`
	rows, err := r.DB.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("find documents loan=%s: %w", loanID, err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// FindByID returns a record by id.
func (r *PGRepo) FindByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// FindByStorageKey returns a record by its storage key.
func (r *PGRepo) FindByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE storage_key = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, storageKey))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// Search matches active records whose search_terms array contains the term.
func (r *PGRepo) Search(ctx context.Context, term string) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE $1 = ANY(search_terms) AND is_active
ORDER BY uploaded_at`
	rows, err := r.DB.QueryContext(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("search documents term=%s: %w", term, err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Deactivate flips the soft-delete flag; the row itself stays.
func (r *PGRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE documents SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate document id=%s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var folderPath, documentType, description sql.NullString
	var terms db.TextArray
	err := row.Scan(
		&doc.ID, &doc.LoanID, &doc.FileName, &doc.OriginalName, &doc.MimeType, &doc.FileSize,
		&doc.StorageKey, &folderPath, &documentType, &description,
		&doc.UploadedBy, &doc.UploaderName, &doc.UploadedAt, &doc.IsActive, &terms,
	)
	if err != nil {
		return Document{}, err
	}
	doc.FolderPath = folderPath.String
	doc.DocumentType = documentType.String
	doc.Description = description.String
	doc.SearchTerms = terms
	return doc, nil
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
