package documents

import (
	"context"
	"io"
	"strings"
	"testing"
)

func fileInput(name, mime string, size int64, body string) FileInput {
	return FileInput{
		OriginalName: name,
		MimeType:     mime,
		SizeBytes:    size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func newTestOrchestrator(store *fakeStore, repo Repo) *Orchestrator {
	v := NewValidator([]string{"application/pdf", "image/png"}, 1<<20)
	rec := &Recorder{Repo: repo, Attempts: 3, BaseDelay: 0}
	return NewOrchestrator(v, store, rec, nil)
}

func TestProcessBatchAllSucceed(t *testing.T) {
	stubUploadID(t, "u1")
	store := newFakeStore()
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	result := orc.ProcessBatch(context.Background(), BatchRequest{
		LoanID:   "BIZLN-1",
		FullName: "RAM",
		Files: []FileInput{
			fileInput("a.pdf", "application/pdf", 3, "abc"),
			fileInput("b.png", "image/png", 2, "xy"),
		},
	})

	if !result.AllSucceeded() {
		t.Fatalf("expected all succeeded, failed: %+v", result.Failed)
	}
	if result.Total != 2 || len(result.Successful) != 2 {
		t.Fatalf("unexpected totals: %+v", result)
	}

	docs, err := repo.FindByLoan(context.Background(), "BIZLN-1")
	if err != nil {
		t.Fatalf("find by loan: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(docs))
	}
	for _, doc := range docs {
		if !store.has(doc.StorageKey) {
			t.Fatalf("record %s has no blob", doc.StorageKey)
		}
	}
}

func TestProcessBatchValidatorIndependence(t *testing.T) {
	stubUploadID(t, "u1")
	store := newFakeStore()
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	result := orc.ProcessBatch(context.Background(), BatchRequest{
		LoanID:   "BIZLN-1",
		FullName: "RAM",
		Files: []FileInput{
			fileInput("bad.exe", "application/x-msdownload", 3, "mz"),
			fileInput("good.pdf", "application/pdf", 3, "abc"),
		},
	})

	if result.AllSucceeded() || result.AllFailed() {
		t.Fatalf("expected partial result, got %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0].Reason != FailValidation {
		t.Fatalf("expected one validation failure, got %+v", result.Failed)
	}
	if len(result.Successful) != 1 || result.Successful[0].Name != "good.pdf" {
		t.Fatalf("sibling file should still succeed: %+v", result.Successful)
	}
}

func TestProcessBatchValidationTouchesNoStore(t *testing.T) {
	store := newFakeStore()
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	result := orc.ProcessBatch(context.Background(), BatchRequest{
		LoanID: "BIZLN-1",
		Files:  []FileInput{fileInput("bad.exe", "application/x-msdownload", 3, "mz")},
	})

	if !result.AllFailed() {
		t.Fatalf("expected all failed, got %+v", result)
	}
	if store.puts != 0 {
		t.Fatalf("validation failure must not reach the object store, saw %d puts", store.puts)
	}
	docs, _ := repo.FindByLoan(context.Background(), "BIZLN-1")
	if len(docs) != 0 {
		t.Fatalf("validation failure must not produce records, got %d", len(docs))
	}
}

func TestProcessBatchFailedBlobWriteProducesNoRecord(t *testing.T) {
	store := newFakeStore()
	store.putErr = errConnRefused
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	result := orc.ProcessBatch(context.Background(), BatchRequest{
		LoanID: "BIZLN-1",
		Files:  []FileInput{fileInput("a.pdf", "application/pdf", 3, "abc")},
	})

	if !result.AllFailed() || result.Failed[0].Reason != FailStorage {
		t.Fatalf("expected storage failure, got %+v", result)
	}
	// Blob writes are not retried.
	if store.puts != 1 {
		t.Fatalf("expected exactly 1 put attempt, got %d", store.puts)
	}
	docs, _ := repo.FindByLoan(context.Background(), "BIZLN-1")
	if len(docs) != 0 {
		t.Fatalf("failed blob write must never yield a record, got %d", len(docs))
	}
}

func TestProcessBatchRecorderExhaustionLeavesOrphanBlob(t *testing.T) {
	stubUploadID(t, "u1")
	store := newFakeStore()
	repo := &flakyRepo{MemoryRepo: NewMemoryRepo(), failures: 10, insertErr: errConnRefused}
	orc := newTestOrchestrator(store, repo)

	result := orc.ProcessBatch(context.Background(), BatchRequest{
		LoanID: "BIZLN-1",
		Files:  []FileInput{fileInput("a.pdf", "application/pdf", 3, "abc")},
	})

	if !result.AllFailed() || result.Failed[0].Reason != FailDatabase {
		t.Fatalf("expected database failure, got %+v", result)
	}
	if repo.inserts != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", repo.inserts)
	}
	// The blob written before the metadata failure stays behind.
	keys := store.keys()
	if len(keys) != 1 || keys[0] != "documents/BIZLN-1/u1-a.pdf" {
		t.Fatalf("expected orphaned blob, got %v", keys)
	}
}

func TestProcessBatchDerivesIdentityFromSourceFolder(t *testing.T) {
	stubUploadID(t, "u1")
	store := newFakeStore()
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	files := []FileInput{
		fileInput("a.pdf", "application/pdf", 3, "abc"),
		fileInput("b.pdf", "application/pdf", 3, "def"),
		fileInput("c.pdf", "application/pdf", 3, "ghi"),
	}
	files[0].SourceFolder = "4189_SANTRAM"

	result := orc.ProcessBatch(context.Background(), BatchRequest{Files: files})

	if result.LoanID != "BIZLN-4189" {
		t.Fatalf("expected derived loan id BIZLN-4189, got %q", result.LoanID)
	}
	if result.FullName != "SANTRAM" {
		t.Fatalf("expected derived full name SANTRAM, got %q", result.FullName)
	}
	if !result.AllSucceeded() {
		t.Fatalf("expected all succeeded, got %+v", result.Failed)
	}
	for _, fr := range result.Successful {
		if !strings.HasPrefix(fr.StorageKey, "documents/BIZLN-4189/u1-") {
			t.Fatalf("unexpected key %q", fr.StorageKey)
		}
	}
}

func TestProcessBatchCanceledContextMarksRemaining(t *testing.T) {
	store := newFakeStore()
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := orc.ProcessBatch(ctx, BatchRequest{
		LoanID: "BIZLN-1",
		Files: []FileInput{
			fileInput("a.pdf", "application/pdf", 3, "abc"),
			fileInput("b.pdf", "application/pdf", 3, "def"),
		},
	})

	if !result.AllFailed() {
		t.Fatalf("expected all canceled, got %+v", result)
	}
	for _, f := range result.Failed {
		if f.Reason != FailCanceled {
			t.Fatalf("expected canceled reason, got %+v", f)
		}
	}
	if store.puts != 0 {
		t.Fatalf("canceled batch must not write blobs, saw %d puts", store.puts)
	}
}

func TestProcessBatchRecordsMetadata(t *testing.T) {
	stubUploadID(t, "u1")
	store := newFakeStore()
	repo := NewMemoryRepo()
	orc := newTestOrchestrator(store, repo)

	result := orc.ProcessBatch(context.Background(), BatchRequest{
		LoanID:      "BIZLN-1",
		FullName:    "RAM KUMAR",
		Description: "income proof 2024",
		UploadedBy:  "clerk1",
		Files:       []FileInput{fileInput("salary slip.pdf", "application/pdf", 3, "abc")},
	})
	if !result.AllSucceeded() {
		t.Fatalf("expected success, got %+v", result.Failed)
	}

	docs, _ := repo.FindByLoan(context.Background(), "BIZLN-1")
	if len(docs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(docs))
	}
	doc := docs[0]
	if doc.FileName != "u1-salary-slip.pdf" {
		t.Fatalf("unexpected stored file name %q", doc.FileName)
	}
	if doc.OriginalName != "salary slip.pdf" {
		t.Fatalf("unexpected original name %q", doc.OriginalName)
	}
	if doc.DocumentType != TypeIncomeProof {
		t.Fatalf("expected classifier label %q, got %q", TypeIncomeProof, doc.DocumentType)
	}
	if !doc.IsActive {
		t.Fatal("new records must be active")
	}
	if len(doc.SearchTerms) == 0 {
		t.Fatal("expected search terms")
	}
}
