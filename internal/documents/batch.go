package documents

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"loandesk-backend/internal/shared/storage/object"
	"loandesk-backend/internal/shared/telemetry"
)

// FailureReason labels which pipeline stage rejected a file.
type FailureReason string

const (
	FailValidation FailureReason = "validation"
	FailStorage    FailureReason = "storage"
	FailDatabase   FailureReason = "database"
	FailCanceled   FailureReason = "canceled"
)

// captureLimit bounds how much of each payload is buffered for search-term
// extraction while streaming to the object store.
const captureLimit = 512 << 10

// FileInput is one file in a submitted batch. SourceFolder is derivation
// metadata only (the client-side folder the file came from); FolderPath is
// preserved in the storage key for structure-preserving uploads.
type FileInput struct {
	OriginalName string
	MimeType     string
	SizeBytes    int64
	FolderPath   string
	SourceFolder string
	Open         func() (io.ReadCloser, error)
}

// BatchRequest is one client-submitted group of files for a single loan.
type BatchRequest struct {
	LoanID      string
	FullName    string
	Description string
	UploadedBy  string
	Legacy      *LegacyIdentity
	Files       []FileInput
}

// FileResult describes one successfully processed file.
type FileResult struct {
	Index        int       `json:"-"`
	DocumentID   string    `json:"id"`
	Name         string    `json:"name"`
	FileName     string    `json:"fileName"`
	StorageKey   string    `json:"storageKey"`
	SizeBytes    int64     `json:"size"`
	MimeType     string    `json:"type"`
	DocumentType string    `json:"documentType"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Status       string    `json:"status"`
}

// FileFailure describes one failed file and the stage that rejected it.
type FileFailure struct {
	Index  int           `json:"-"`
	Name   string        `json:"name"`
	Reason FailureReason `json:"reason"`
	Error  string        `json:"error"`
}

// BatchResult aggregates per-file outcomes in submission order.
type BatchResult struct {
	LoanID     string
	FullName   string
	Successful []FileResult
	Failed     []FileFailure
	Total      int
}

// AllSucceeded reports whether every attempted file succeeded.
func (r BatchResult) AllSucceeded() bool {
	return r.Total > 0 && len(r.Failed) == 0
}

// AllFailed reports whether no attempted file succeeded.
func (r BatchResult) AllFailed() bool {
	return r.Total > 0 && len(r.Successful) == 0
}

// Orchestrator runs the per-file upload pipeline: validate, build key, write
// blob, record metadata. Files are processed strictly sequentially in
// submission order; one file's failure never aborts its siblings.
type Orchestrator struct {
	Validator   *Validator
	Store       object.Store
	Recorder    *Recorder
	Classify    ClassifyFunc
	ExtractText func(data []byte, mimeType, fileName string) []string

	// now is stubbed in tests.
	now func() time.Time
}

// NewOrchestrator wires the pipeline stages. classify may be nil, in which
// case the default filename classifier is used.
func NewOrchestrator(v *Validator, store object.Store, rec *Recorder, classify ClassifyFunc) *Orchestrator {
	if classify == nil {
		classify = ClassifyByName
	}
	return &Orchestrator{
		Validator: v,
		Store:     store,
		Recorder:  rec,
		Classify:  classify,
		now:       time.Now,
	}
}

// ProcessBatch applies the pipeline to each file and collects per-file
// outcomes. A canceled context stops the loop before the next file; files not
// yet attempted are reported as canceled, matching the "stop accepting new
// files, finish the in-flight one" shutdown behavior.
func (o *Orchestrator) ProcessBatch(ctx context.Context, req BatchRequest) BatchResult {
	loanID, fullName := ResolveIdentity(req)
	result := BatchResult{
		LoanID:   loanID,
		FullName: fullName,
		Total:    len(req.Files),
	}

	for i, file := range req.Files {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, FileFailure{
				Index:  i,
				Name:   file.OriginalName,
				Reason: FailCanceled,
				Error:  ctx.Err().Error(),
			})
			continue
		}

		outcome, failure := o.processFile(ctx, loanID, fullName, req, i, file)
		if failure != nil {
			result.Failed = append(result.Failed, *failure)
			continue
		}
		result.Successful = append(result.Successful, *outcome)
	}

	telemetry.Info("upload.batch.complete", map[string]any{
		"loan_id":    loanID,
		"total":      result.Total,
		"successful": len(result.Successful),
		"failed":     len(result.Failed),
	})
	return result
}

func (o *Orchestrator) processFile(ctx context.Context, loanID, fullName string, req BatchRequest, index int, file FileInput) (*FileResult, *FileFailure) {
	fail := func(reason FailureReason, err error) *FileFailure {
		telemetry.Warn("upload.file.failed", map[string]any{
			"loan_id": loanID,
			"name":    file.OriginalName,
			"reason":  string(reason),
			"error":   err.Error(),
		})
		return &FileFailure{
			Index:  index,
			Name:   file.OriginalName,
			Reason: reason,
			Error:  err.Error(),
		}
	}

	// Stage 1: validate. A rejection here touches neither store.
	if err := o.Validator.Validate(file.MimeType, file.SizeBytes); err != nil {
		return nil, fail(FailValidation, err)
	}

	// Stage 2: build key and write the blob. A failed write never produces a
	// metadata record and is not retried here.
	safeName, err := SafeFileName(file.OriginalName)
	if err != nil {
		return nil, fail(FailValidation, err)
	}
	storageKey, err := BuildKey(loanID, safeName, file.FolderPath, req.Legacy)
	if err != nil {
		return nil, fail(FailValidation, err)
	}

	body, err := file.Open()
	if err != nil {
		return nil, fail(FailStorage, err)
	}
	capture := &capturingReader{r: body, limit: captureLimit}

	size, err := o.Store.Put(ctx, storageKey, file.MimeType, map[string]string{
		"loan-id":       loanID,
		"uploader-name": fullName,
		"original-name": file.OriginalName,
	}, capture)
	body.Close()
	if err != nil {
		return nil, fail(FailStorage, err)
	}

	// Stage 3: record metadata, with bounded retry inside the Recorder. On
	// exhaustion the blob stays behind as an orphan.
	var extraTerms []string
	if o.ExtractText != nil {
		extraTerms = o.ExtractText(capture.buf.Bytes(), file.MimeType, file.OriginalName)
	}

	doc := Document{
		ID:           uuid.NewString(),
		LoanID:       loanID,
		FileName:     safeName,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		FileSize:     size,
		StorageKey:   storageKey,
		FolderPath:   file.FolderPath,
		DocumentType: o.Classify(file.OriginalName),
		Description:  req.Description,
		UploadedBy:   req.UploadedBy,
		UploaderName: fullName,
		UploadedAt:   o.now().UTC(),
		IsActive:     true,
		SearchTerms:  BuildSearchTerms(loanID, fullName, req.Description, file.OriginalName, extraTerms),
	}

	if err := o.Recorder.Record(ctx, doc); err != nil {
		return nil, fail(FailDatabase, err)
	}

	return &FileResult{
		Index:        index,
		DocumentID:   doc.ID,
		Name:         file.OriginalName,
		FileName:     safeName,
		StorageKey:   storageKey,
		SizeBytes:    size,
		MimeType:     file.MimeType,
		DocumentType: doc.DocumentType,
		UploadedAt:   doc.UploadedAt,
		Status:       "uploaded",
	}, nil
}

// ResolveIdentity fills in loan id and customer name from the first file's
// source folder when the caller omitted them.
func ResolveIdentity(req BatchRequest) (string, string) {
	loanID := req.LoanID
	fullName := req.FullName

	folderName := ""
	if len(req.Files) > 0 {
		folderName = req.Files[0].SourceFolder
		if folderName == "" {
			folderName = firstSegment(req.Files[0].FolderPath)
		}
	}

	if loanID == "" && folderName != "" {
		loanID = DeriveLoanID(folderName)
	}
	if fullName == "" && folderName != "" {
		fullName = DeriveFullName(folderName)
	}
	return loanID, fullName
}

func firstSegment(folderPath string) string {
	for i := 0; i < len(folderPath); i++ {
		if folderPath[i] == '/' {
			return folderPath[:i]
		}
	}
	return folderPath
}

// capturingReader tees the first limit bytes of the stream into a buffer so
// search-term extraction can run without re-reading the blob.
type capturingReader struct {
	r     io.Reader
	buf   bytes.Buffer
	limit int
}

func (c *capturingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.buf.Len() < c.limit {
		remain := c.limit - c.buf.Len()
		if remain > n {
			remain = n
		}
		c.buf.Write(p[:remain])
	}
	return n, err
}
