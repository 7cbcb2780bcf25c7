package documents

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"loandesk-backend/internal/shared/storage/object"
	"loandesk-backend/internal/shared/telemetry"
)

const defaultSignedURLExpiry = time.Hour

// LocatedDocument is one entry in a merged findByLoan result. Object-sourced
// entries carry a time-limited signed URL; record-sourced entries carry a
// document id and a proxy download path instead.
type LocatedDocument struct {
	Convention   Convention `json:"convention"`
	DocumentID   string     `json:"id,omitempty"`
	Name         string     `json:"name"`
	StorageKey   string     `json:"storageKey"`
	FolderPath   string     `json:"folderPath,omitempty"`
	SizeBytes    int64      `json:"size"`
	MimeType     string     `json:"type,omitempty"`
	DocumentType string     `json:"documentType,omitempty"`
	UploadedAt   time.Time  `json:"uploadedAt,omitempty"`
	URL          string     `json:"url,omitempty"`
	DownloadURL  string     `json:"downloadUrl,omitempty"`
}

// Locator answers read queries by scanning both storage conventions and
// merging the results. The merge is a plain union: the same logical document
// present under both conventions appears twice, tagged differently, and the
// consuming UI decides what to show.
type Locator struct {
	Store           object.Store
	Repo            Repo // nil means structured lookups fall back to object scans
	SignedURLExpiry time.Duration
}

// NewLocator builds a Locator with the observed 1-hour signed URL expiry.
func NewLocator(store object.Store, repo Repo, expiry time.Duration) *Locator {
	if expiry <= 0 {
		expiry = defaultSignedURLExpiry
	}
	return &Locator{Store: store, Repo: repo, SignedURLExpiry: expiry}
}

// FindByLoan merges the legacy folder scan with the structured lookup. A
// failure in one strategy degrades the result rather than failing the whole
// query; both failing returns the first error.
func (l *Locator) FindByLoan(ctx context.Context, loanID string) ([]LocatedDocument, error) {
	legacy, legacyErr := l.legacyScan(ctx, loanID)
	structured, structuredErr := l.structuredScan(ctx, loanID)

	if legacyErr != nil && structuredErr != nil {
		return nil, fmt.Errorf("find by loan %s: %w", loanID, legacyErr)
	}
	if legacyErr != nil {
		telemetry.Warn("locator.legacy.failed", map[string]any{"loan_id": loanID, "error": legacyErr.Error()})
	}
	if structuredErr != nil {
		telemetry.Warn("locator.structured.failed", map[string]any{"loan_id": loanID, "error": structuredErr.Error()})
	}

	merged := make([]LocatedDocument, 0, len(legacy)+len(structured))
	merged = append(merged, legacy...)
	merged = append(merged, structured...)
	return merged, nil
}

// legacyScan lists bucket-root folders, picks the first whose name starts with
// the numeric loan id followed by an underscore, and returns its objects,
// skipping zero-byte folder placeholders.
func (l *Locator) legacyScan(ctx context.Context, loanID string) ([]LocatedDocument, error) {
	numericID := NumericLoanID(loanID)
	if numericID == "" {
		return nil, nil
	}

	folders, err := l.Store.ListFolders(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list legacy folders: %w", err)
	}

	var customerFolder string
	for _, folder := range folders {
		if strings.HasPrefix(folder, numericID+"_") {
			customerFolder = folder
			break
		}
	}
	if customerFolder == "" {
		return nil, nil
	}

	objects, err := l.Store.List(ctx, customerFolder+"/")
	if err != nil {
		return nil, fmt.Errorf("list legacy objects %s: %w", customerFolder, err)
	}

	var out []LocatedDocument
	for _, obj := range objects {
		if obj.SizeBytes == 0 && strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if obj.Key == customerFolder || obj.Key == customerFolder+"/" {
			continue
		}
		url, err := l.Store.Presign(ctx, obj.Key, l.SignedURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", obj.Key, err)
		}
		out = append(out, LocatedDocument{
			Convention: ConventionLegacy,
			Name:       path.Base(obj.Key),
			StorageKey: obj.Key,
			SizeBytes:  obj.SizeBytes,
			UploadedAt: obj.LastModified,
			URL:        url,
		})
	}
	return out, nil
}

// structuredScan queries the collection store, falling back to an object scan
// under the structured prefix when no repository is configured.
func (l *Locator) structuredScan(ctx context.Context, loanID string) ([]LocatedDocument, error) {
	if l.Repo != nil {
		docs, err := l.Repo.FindByLoan(ctx, loanID)
		if err != nil {
			return nil, fmt.Errorf("query documents: %w", err)
		}
		out := make([]LocatedDocument, 0, len(docs))
		for _, doc := range docs {
			out = append(out, LocatedDocument{
				Convention:   ConventionStructured,
				DocumentID:   doc.ID,
				Name:         doc.OriginalName,
				StorageKey:   doc.StorageKey,
				FolderPath:   doc.FolderPath,
				SizeBytes:    doc.FileSize,
				MimeType:     doc.MimeType,
				DocumentType: doc.DocumentType,
				UploadedAt:   doc.UploadedAt,
				DownloadURL:  fmt.Sprintf("/api/v1/documents/%s/download", doc.ID),
			})
		}
		return out, nil
	}

	prefix := "documents/" + loanID + "/"
	objects, err := l.Store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list structured objects %s: %w", prefix, err)
	}

	var out []LocatedDocument
	for _, obj := range objects {
		if obj.SizeBytes == 0 && strings.HasSuffix(obj.Key, "/") {
			continue
		}
		url, err := l.Store.Presign(ctx, obj.Key, l.SignedURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", obj.Key, err)
		}
		out = append(out, LocatedDocument{
			Convention: ConventionStructured,
			Name:       path.Base(obj.Key),
			StorageKey: obj.Key,
			SizeBytes:  obj.SizeBytes,
			UploadedAt: obj.LastModified,
			URL:        url,
		})
	}
	return out, nil
}

// GroupByFolder buckets located documents by the folder segment of their
// storage key, for UIs that render the preserved upload structure.
func GroupByFolder(docs []LocatedDocument) map[string][]LocatedDocument {
	grouped := make(map[string][]LocatedDocument)
	for _, doc := range docs {
		folder := doc.FolderPath
		if folder == "" {
			folder = path.Dir(doc.StorageKey)
		}
		grouped[folder] = append(grouped[folder], doc)
	}
	return grouped
}
