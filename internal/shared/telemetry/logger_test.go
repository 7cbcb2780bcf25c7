package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })
	return &buf
}

func TestErrorCarriesErrorField(t *testing.T) {
	buf := captureOutput(t)

	// Failures are logged by folding the error string into the field map.
	Error("documents.list.failed", map[string]any{
		"loan_id": "BIZLN-4189",
		"error":   "connection refused",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["level"] != "error" || entry["msg"] != "documents.list.failed" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["error"] != "connection refused" || entry["loan_id"] != "BIZLN-4189" {
		t.Fatalf("missing fields: %v", entry)
	}
}

func TestLevels(t *testing.T) {
	buf := captureOutput(t)

	Info("batch.done", map[string]any{"count": 3})
	Warn("store.degraded", nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first["level"] != "info" || first["count"] != float64(3) {
		t.Fatalf("unexpected entry: %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second["level"] != "warn" || second["ts"] == nil {
		t.Fatalf("unexpected entry: %v", second)
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	buf := captureOutput(t)
	t.Setenv("LOG_DEBUG", "")

	Debug("noise", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug must be suppressed without LOG_DEBUG: %s", buf.String())
	}

	t.Setenv("LOG_DEBUG", "1")
	Debug("signal", nil)
	if buf.Len() == 0 {
		t.Fatal("debug must emit when LOG_DEBUG is set")
	}
}
