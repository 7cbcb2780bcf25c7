package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"loandesk-backend/internal/shared/auth"
	"loandesk-backend/internal/shared/server/middleware"
	"loandesk-backend/internal/users"
)

func setupDocumentsRouter(t *testing.T) (*gin.Engine, *fakeStore, *MemoryRepo, *users.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	store := newFakeStore()
	repo := NewMemoryRepo()
	userSvc := users.NewService(users.NewMemoryRepo())

	validator := NewValidator([]string{"application/pdf", "image/png"}, 1<<20)
	recorder := &Recorder{Repo: repo, Attempts: 3, BaseDelay: 0}
	orchestrator := NewOrchestrator(validator, store, recorder, nil)
	locator := NewLocator(store, repo, time.Hour)
	svc := NewService(orchestrator, locator, repo, store, userSvc)

	r := gin.New()
	r.Use(middleware.Auth())
	api := r.Group("/api/v1")
	NewHandler(svc).RegisterRoutes(api)
	return r, store, repo, userSvc
}

func signTestToken(t *testing.T, username, name, role string) string {
	t.Helper()
	token, err := auth.SignToken(auth.Claims{
		Username: username,
		Name:     name,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-" + username,
		},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func seedTestUser(t *testing.T, svc *users.Service, username, role string, loanAccess []string) {
	t.Helper()
	_, err := svc.Create(context.Background(), users.CreateInput{
		Username:   username,
		Password:   "secret123",
		FullName:   username,
		Role:       role,
		LoanAccess: loanAccess,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
}

type multipartFile struct {
	fieldName string
	fileName  string
	mimeType  string
	body      string
}

func buildUploadBody(t *testing.T, fields map[string]string, files []multipartFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.fieldName + `"; filename="` + f.fileName + `"`}
		h["Content-Type"] = []string{f.mimeType}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(f.body)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, r *gin.Engine, token string, fields map[string]string, files []multipartFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := buildUploadBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestUploadRequiresAuth(t *testing.T) {
	r, _, _, _ := setupDocumentsRouter(t)

	body, contentType := buildUploadBody(t, nil, []multipartFile{{"files", "a.pdf", "application/pdf", "abc"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestUploadAllSucceed(t *testing.T) {
	r, store, repo, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	resp := doUpload(t, r, token,
		map[string]string{"loanNumber": "BIZLN-4189", "fullName": "SANTRAM"},
		[]multipartFile{
			{"files", "a.pdf", "application/pdf", "abc"},
			{"files", "b.png", "image/png", "xy"},
		})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Success   bool         `json:"success"`
		Documents []FileResult `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Documents) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}

	docs, _ := repo.FindByLoan(context.Background(), "BIZLN-4189")
	if len(docs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(docs))
	}
	for _, doc := range docs {
		if !store.has(doc.StorageKey) {
			t.Fatalf("missing blob for %s", doc.StorageKey)
		}
	}
}

func TestUploadPartialSuccessIs207(t *testing.T) {
	r, _, _, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	resp := doUpload(t, r, token,
		map[string]string{"loanNumber": "BIZLN-1"},
		[]multipartFile{
			{"files", "good.pdf", "application/pdf", "abc"},
			{"files", "bad.exe", "application/x-msdownload", "mz"},
		})

	if resp.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Results *struct {
			Total      int           `json:"total"`
			Successful int           `json:"successful"`
			Failed     int           `json:"failed"`
			Errors     []FileFailure `json:"errors"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Fatal("partial success keeps the success flag true")
	}
	if body.Results == nil || body.Results.Failed != 1 || body.Results.Total != 2 {
		t.Fatalf("unexpected results %+v", body.Results)
	}
	if body.Results.Errors[0].Reason != FailValidation {
		t.Fatalf("unexpected failure reason %+v", body.Results.Errors[0])
	}
}

func TestUploadAllInvalidIs400(t *testing.T) {
	r, _, _, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	resp := doUpload(t, r, token,
		map[string]string{"loanNumber": "BIZLN-1"},
		[]multipartFile{{"files", "bad.exe", "application/x-msdownload", "mz"}})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadNoFilesIs400(t *testing.T) {
	r, _, _, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	resp := doUpload(t, r, token, map[string]string{"loanNumber": "BIZLN-1"}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUploadDerivesIdentityFromFolderName(t *testing.T) {
	r, _, repo, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	resp := doUpload(t, r, token,
		map[string]string{"sourceFolder": "4189_SANTRAM"},
		[]multipartFile{{"files", "statement.pdf", "application/pdf", "abc"}})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		LoanID   string `json:"loanId"`
		FullName string `json:"fullName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.LoanID != "BIZLN-4189" || body.FullName != "SANTRAM" {
		t.Fatalf("unexpected derivation %+v", body)
	}

	docs, _ := repo.FindByLoan(context.Background(), "BIZLN-4189")
	if len(docs) != 1 || docs[0].UploaderName != "SANTRAM" {
		t.Fatalf("unexpected records %+v", docs)
	}
}

func TestUploadForbiddenOutsideLoanAccess(t *testing.T) {
	r, _, _, userSvc := setupDocumentsRouter(t)
	seedTestUser(t, userSvc, "clerk1", "user", []string{"BIZLN-7"})
	token := signTestToken(t, "clerk1", "Clerk", "user")

	resp := doUpload(t, r, token,
		map[string]string{"loanNumber": "BIZLN-4189"},
		[]multipartFile{{"files", "a.pdf", "application/pdf", "abc"}})

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestListByLoanMergedAndGrouped(t *testing.T) {
	r, store, repo, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	seedLegacyBlob(store, "4189_SANTRAM/old.pdf")
	if err := repo.Insert(context.Background(), Document{
		ID:           "doc-1",
		LoanID:       "BIZLN-4189",
		OriginalName: "new.pdf",
		StorageKey:   "documents/BIZLN-4189/u1-new.pdf",
		FolderPath:   "statements",
		IsActive:     true,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/by-loan/BIZLN-4189?grouped=true", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Success         bool                         `json:"success"`
		Documents       []LocatedDocument            `json:"documents"`
		GroupedByFolder map[string][]LocatedDocument `json:"groupedByFolder"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Documents) != 2 {
		t.Fatalf("expected merged 2 entries, got %+v", body.Documents)
	}
	if len(body.GroupedByFolder["statements"]) != 1 {
		t.Fatalf("expected grouped entry, got %+v", body.GroupedByFolder)
	}
}

func TestDownloadStreamsBlob(t *testing.T) {
	r, store, repo, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	store.objects["documents/BIZLN-1/u1-a.pdf"] = []byte("pdf-bytes")
	store.modified["documents/BIZLN-1/u1-a.pdf"] = time.Now()
	if err := repo.Insert(context.Background(), Document{
		ID:           "doc-1",
		LoanID:       "BIZLN-1",
		OriginalName: "a.pdf",
		MimeType:     "application/pdf",
		FileSize:     9,
		StorageKey:   "documents/BIZLN-1/u1-a.pdf",
		IsActive:     true,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "pdf-bytes" {
		t.Fatalf("unexpected body %q", data)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestDownloadInactiveIs404(t *testing.T) {
	r, _, repo, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	if err := repo.Insert(context.Background(), Document{
		ID:         "doc-1",
		LoanID:     "BIZLN-1",
		StorageKey: "documents/BIZLN-1/u1-a.pdf",
		IsActive:   false,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDeactivateRequiresAdmin(t *testing.T) {
	r, _, repo, userSvc := setupDocumentsRouter(t)
	seedTestUser(t, userSvc, "clerk1", "user", []string{"BIZLN-1"})

	if err := repo.Insert(context.Background(), Document{
		ID:         "doc-1",
		LoanID:     "BIZLN-1",
		StorageKey: "documents/BIZLN-1/u1-a.pdf",
		IsActive:   true,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	userToken := signTestToken(t, "clerk1", "Clerk", "user")
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
	}

	adminToken := signTestToken(t, "admin1", "Admin", "admin")
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	if _, err := repo.FindByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("record must remain after soft delete: %v", err)
	}
	docs, _ := repo.FindByLoan(context.Background(), "BIZLN-1")
	if len(docs) != 0 {
		t.Fatalf("inactive records must not list, got %+v", docs)
	}
}

func TestSearchFindsTerms(t *testing.T) {
	r, _, repo, _ := setupDocumentsRouter(t)
	token := signTestToken(t, "admin1", "Admin", "admin")

	if err := repo.Insert(context.Background(), Document{
		ID:          "doc-1",
		LoanID:      "BIZLN-1",
		StorageKey:  "documents/BIZLN-1/u1-a.pdf",
		IsActive:    true,
		SearchTerms: []string{"santram", "statement"},
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/search?q=Santram", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Documents) != 1 || body.Documents[0].ID != "doc-1" {
		t.Fatalf("unexpected search result %+v", body.Documents)
	}
}
