package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "json")
	logger.Debug("refresh attempted", "outcome", "ok")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "refresh attempted" || entry["outcome"] != "ok" || entry["app"] != "mobcash" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriterInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "chatty", "text")
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Fatalf("expected text handler output, got %q", out)
	}
}
