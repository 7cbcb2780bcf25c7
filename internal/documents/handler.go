package documents

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"loandesk-backend/internal/shared/server/middleware"
	"loandesk-backend/internal/shared/server/respond"
	"loandesk-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents/by-loan/:loanId", h.listByLoan)
	rg.GET("/documents/:id/download", h.download)
	rg.GET("/documents/search", h.search)
	rg.DELETE("/documents/:id", middleware.RequireAdmin(), h.deactivate)
}

func (h *Handler) upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart form", nil)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return
	}

	folderPaths := form.Value["folderPath"]
	sourceFolders := form.Value["sourceFolder"]
	req := BatchRequest{
		LoanID:      firstFormValue(form, "loanNumber", "loanId"),
		FullName:    firstFormValue(form, "fullName", "customerName"),
		Description: strings.TrimSpace(formValue(form, "description")),
		UploadedBy:  middleware.UsernameFromContext(c),
		Legacy:      legacyIdentityFromForm(form),
		Files:       make([]FileInput, 0, len(files)),
	}

	for i, fh := range files {
		folderPath := ""
		if i < len(folderPaths) {
			folderPath = strings.TrimSpace(folderPaths[i])
		}
		sourceFolder := ""
		if i < len(sourceFolders) {
			sourceFolder = strings.TrimSpace(sourceFolders[i])
		}
		req.Files = append(req.Files, fileInputFromHeader(fh, folderPath, sourceFolder))
	}

	loanID, _ := ResolveIdentity(req)
	if err := h.Svc.Authorize(c.Request.Context(), middleware.UsernameFromContext(c), middleware.UserRoleFromContext(c), loanID); err != nil {
		if errors.Is(err, ErrLoanForbidden) {
			respond.Error(c, http.StatusForbidden, "forbidden", "no access to this loan", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check loan access", nil)
		return
	}

	result := h.Svc.Upload(c.Request.Context(), req)
	status, message := uploadStatus(result)

	resp := uploadResponse{
		Success:   !result.AllFailed(),
		Message:   message,
		LoanID:    result.LoanID,
		FullName:  result.FullName,
		Documents: result.Successful,
	}
	if resp.Documents == nil {
		resp.Documents = []FileResult{}
	}
	if len(result.Failed) > 0 {
		resp.Results = &batchSummary{
			Total:      result.Total,
			Successful: len(result.Successful),
			Failed:     len(result.Failed),
			Errors:     result.Failed,
		}
	}
	respond.JSON(c, status, resp)
}

func (h *Handler) listByLoan(c *gin.Context) {
	loanID := strings.TrimSpace(c.Param("loanId"))
	if loanID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "loan id is required", nil)
		return
	}

	if err := h.Svc.Authorize(c.Request.Context(), middleware.UsernameFromContext(c), middleware.UserRoleFromContext(c), loanID); err != nil {
		if errors.Is(err, ErrLoanForbidden) {
			respond.Error(c, http.StatusForbidden, "forbidden", "no access to this loan", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check loan access", nil)
		return
	}

	docs, err := h.Svc.ListByLoan(c.Request.Context(), loanID)
	if err != nil {
		telemetry.Error("documents.list.failed", map[string]any{"loan_id": loanID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}
	if docs == nil {
		docs = []LocatedDocument{}
	}

	resp := listResponse{Success: true, Documents: docs}
	if c.Query("grouped") == "true" {
		resp.GroupedByFolder = GroupByFolder(docs)
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) download(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	doc, body, err := h.Svc.Download(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		telemetry.Error("documents.download.failed", map[string]any{"document_id": id, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to download document", nil)
		return
	}
	defer body.Close()

	if err := h.Svc.Authorize(c.Request.Context(), middleware.UsernameFromContext(c), middleware.UserRoleFromContext(c), doc.LoanID); err != nil {
		if errors.Is(err, ErrLoanForbidden) {
			respond.Error(c, http.StatusForbidden, "forbidden", "no access to this loan", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check loan access", nil)
		return
	}

	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	if doc.FileSize > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", doc.FileSize))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		telemetry.Error("documents.download.stream", map[string]any{"document_id": id, "error": err.Error()})
	}
}

func (h *Handler) search(c *gin.Context) {
	term := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if term == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "q is required", nil)
		return
	}

	docs, err := h.Svc.Search(c.Request.Context(), term)
	if err != nil {
		telemetry.Error("documents.search.failed", map[string]any{"term": term, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "search failed", nil)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	respond.JSON(c, http.StatusOK, searchResponse{Success: true, Documents: docs})
}

func (h *Handler) deactivate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	if err := h.Svc.Deactivate(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		telemetry.Error("documents.deactivate.failed", map[string]any{"document_id": id, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true})
}

// uploadStatus maps an aggregate result onto the response status and message.
// All-validation rejections read as a bad request; any storage or database
// failure in an all-failed batch reads as a server error.
func uploadStatus(result BatchResult) (int, string) {
	switch {
	case result.AllSucceeded():
		return http.StatusCreated, fmt.Sprintf("%d document(s) uploaded", len(result.Successful))
	case result.AllFailed():
		for _, f := range result.Failed {
			if f.Reason != FailValidation {
				return http.StatusInternalServerError, "upload failed"
			}
		}
		return http.StatusBadRequest, "no valid files in batch"
	default:
		return http.StatusMultiStatus, fmt.Sprintf("%d of %d document(s) uploaded", len(result.Successful), result.Total)
	}
}

// fileInputFromHeader maps one multipart part. The folder the file came from
// arrives in the parallel sourceFolder field; the Go multipart parser strips
// any directory prefix from the part's filename.
func fileInputFromHeader(fh *multipart.FileHeader, folderPath, sourceFolder string) FileInput {
	return FileInput{
		OriginalName: path.Base(fh.Filename),
		MimeType:     fh.Header.Get("Content-Type"),
		SizeBytes:    fh.Size,
		FolderPath:   folderPath,
		SourceFolder: sourceFolder,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func legacyIdentityFromForm(form *multipart.Form) *LegacyIdentity {
	customerID := strings.TrimSpace(formValue(form, "legacyCustomerId"))
	customerName := strings.TrimSpace(formValue(form, "legacyCustomerName"))
	if customerID == "" || customerName == "" {
		return nil
	}
	return &LegacyIdentity{CustomerID: customerID, CustomerName: customerName}
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func firstFormValue(form *multipart.Form, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(formValue(form, key)); v != "" {
			return v
		}
	}
	return ""
}
