package documents

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"loandesk-backend/internal/shared/telemetry"
)

const (
	recorderDefaultAttempts  = 3
	recorderDefaultBaseDelay = time.Second
)

// Recorder persists document records with bounded retry on transient failure.
// Exhausting the retries surfaces a terminal error for that file; the blob
// already written for it is left in place (orphaned-blob behavior, reconciled
// out of band by the sweep command).
type Recorder struct {
	Repo      Repo
	Attempts  int
	BaseDelay time.Duration
}

// NewRecorder builds a Recorder with the observed production bounds: 3
// attempts, exponential backoff starting at 1s.
func NewRecorder(repo Repo) *Recorder {
	return &Recorder{
		Repo:      repo,
		Attempts:  recorderDefaultAttempts,
		BaseDelay: recorderDefaultBaseDelay,
	}
}

// Record inserts the document, retrying transient failures with backoff
// delay = BaseDelay * 2^attempt. Each call inserts a new record; there is no
// overwrite path.
func (r *Recorder) Record(ctx context.Context, doc Document) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = recorderDefaultAttempts
	}
	baseDelay := r.BaseDelay
	if baseDelay < 0 {
		baseDelay = recorderDefaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = r.Repo.Insert(ctx, doc)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		delay := baseDelay << uint(attempt)
		telemetry.Warn("document.record.retry", map[string]any{
			"storage_key": doc.StorageKey,
			"loan_id":     doc.LoanID,
			"attempt":     attempt + 1,
			"delay_ms":    delay.Milliseconds(),
			"error":       lastErr.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// isTransient classifies connectivity/availability errors worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "server selection") ||
		strings.Contains(msg, "no reachable servers") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
