package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"musicbot/internal/deps"
	"musicbot/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("musicbot", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "musicbot:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("musicbot", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: true, Version: "ffmpeg version 7.1"},
		{Name: "FFprobe", Available: false, Optional: true, Detail: `binary "ffprobe" not found`},
		{Name: "Other", Available: false},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] Ready (ffmpeg version 7.1)") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN]") {
		t.Fatalf("optional dependency should warn, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] not available") {
		t.Fatalf("required dependency should error, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Other") {
		t.Fatalf("expected missing summary, got %q", lines[3])
	}
}

func TestCheckLinesDowngradeBridge(t *testing.T) {
	lines := checkLines([]preflight.Result{
		{Name: "Chat bridge", Detail: "check failed"},
		{Name: "Transcoder", Detail: "missing FFmpeg"},
	}, false)
	if !strings.Contains(lines[0], "[WARN]") || !strings.Contains(lines[1], "[ERROR]") {
		t.Fatalf("unexpected severities %v", lines)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
