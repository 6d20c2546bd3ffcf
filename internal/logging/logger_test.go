package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWriterTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn", "points")

	logger.Info("dropped")
	logger.Warn("kept", "user_id", 7)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "kept" || rec["service"] != "points" || rec["user_id"] != float64(7) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestNewWriterFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "verbose", "")

	logger.Debug("dropped")
	logger.Info("kept")

	if bytes.Contains(buf.Bytes(), []byte("dropped")) || !bytes.Contains(buf.Bytes(), []byte("kept")) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
