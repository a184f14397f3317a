package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicbot/internal/logging"
	"musicbot/internal/services"
)

func TestNewWithWriterTagsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(logging.Options{Format: "json", RunID: "run-1"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}
	logger.Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry[logging.FieldRunID] != "run-1" {
		t.Fatalf("expected run id on every line, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without source")

	content := readFile(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with source")

	content := readFile(t, logPath)
	if !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected source information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")
	base, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger := logging.NewComponentLogger(base, "pipeline")
	logger.Info("audio delivered", logging.String("name", "my track.mp3"))

	content := readFile(t, logPath)
	if !strings.Contains(content, "INFO pipeline: audio delivered") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, `name="my track.mp3"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should not repeat as attribute, got %q", content)
	}
}

func TestJSONLoggerIncludesRunIDAndContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	base, err := logging.New(logging.Options{
		Format:      "json",
		OutputPaths: []string{logPath},
		RunID:       "run-1",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithUserID(context.Background(), 42)
	ctx = services.WithSubmission(ctx, "AgADBQ")
	logging.WithContext(ctx, base).Info("submission received")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readFile(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldRunID] != "run-1" {
		t.Fatalf("expected run id, got %v", entry[logging.FieldRunID])
	}
	if entry[logging.FieldUserID] != float64(42) {
		t.Fatalf("expected user id 42, got %v", entry[logging.FieldUserID])
	}
	if entry[logging.FieldSubmission] != "AgADBQ" {
		t.Fatalf("expected submission key, got %v", entry[logging.FieldSubmission])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "probe skipped", "probe_skipped", logging.String(logging.FieldImpact, "output not verified"))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readFile(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldEventType] != "probe_skipped" {
		t.Fatalf("unexpected event type %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
	if entry[logging.FieldImpact] != "output not verified" {
		t.Fatalf("caller impact should win, got %v", entry[logging.FieldImpact])
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.WarnWithContext(nil, "ignored", "ignored")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(data)
}

func TestLoggerRedactsSecrets(t *testing.T) {
	const token = "123456:bot-secret-token"
	for _, format := range []string{"console", "json"} {
		var buf bytes.Buffer
		logger, err := logging.NewWithWriter(logging.Options{Format: format, Secrets: []string{token, "short"}}, &buf)
		if err != nil {
			t.Fatalf("%s: NewWithWriter: %v", format, err)
		}
		logger.Warn("bridge call failed for "+token,
			logging.String("token", "anything"),
			logging.String("url", "http://bridge/bot"+token+"/getMe"),
			logging.Error(errors.New("dial http://bridge/bot"+token)),
			logging.String("note", "short words stay"),
		)
		out := buf.String()
		if strings.Contains(out, token) || strings.Contains(out, "anything") {
			t.Fatalf("%s: secret leaked: %s", format, out)
		}
		if !strings.Contains(out, "[redacted]") || !strings.Contains(out, "short words stay") {
			t.Fatalf("%s: unexpected output: %s", format, out)
		}
	}
}
