package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "worker",
		Handler:   slog.NewJSONHandler(&buf, nil),
	})

	logger.Info("hello")

	entry := logLine(t, &buf)
	if entry[FieldComponent] != "worker" {
		t.Errorf("component = %v, want worker", entry[FieldComponent])
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
}

func TestNewDefaultsComponent(t *testing.T) {
	logger := New(Config{})
	if logger.Component() != "app" {
		t.Errorf("component = %q, want app", logger.Component())
	}
}

func TestWithKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "server", Handler: slog.NewJSONHandler(&buf, nil)})

	logger.With("request_id", "abc").Info("tagged")

	entry := logLine(t, &buf)
	if entry[FieldComponent] != "server" {
		t.Errorf("component = %v, want server", entry[FieldComponent])
	}
	if entry["request_id"] != "abc" {
		t.Errorf("request_id = %v, want abc", entry["request_id"])
	}
}
