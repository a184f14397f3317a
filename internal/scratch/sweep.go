// Package scratch reclaims per-user scratch space left behind by earlier
// daemon processes.
//
// Submission directories are removed by the pipeline when a submission
// ends. A crash or kill skips that cleanup, so the daemon sweeps every
// workspace at startup: no submission survives a restart, so every
// submission directory found then is orphaned. Retained artifacts are
// owned by a caller until released; they are only removed once older than
// a cutoff.
package scratch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"musicbot/internal/logging"
)

// RetainedDirName matches the pipeline's retained artifact directory.
const RetainedDirName = "retained"

// DefaultRetainedMaxAge bounds how long an unreleased retained artifact is kept.
const DefaultRetainedMaxAge = 24 * time.Hour

// Result contains the outcome of a sweep.
type Result struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

func (r *Result) merge(other Result) {
	r.Removed = append(r.Removed, other.Removed...)
	r.Errors = append(r.Errors, other.Errors...)
}

// Sweep removes every submission directory in scratchDir and retained
// artifacts older than retainedMaxAge. It must only run while no
// submission for this workspace is in flight.
func Sweep(ctx context.Context, scratchDir string, retainedMaxAge time.Duration, logger *slog.Logger) Result {
	result := Result{}

	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return result
	}
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: scratchDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		path := filepath.Join(scratchDir, entry.Name())
		if entry.Name() == RetainedDirName && entry.IsDir() {
			result.merge(sweepRetained(path, retainedMaxAge, logger))
			continue
		}
		remove(&result, path, "orphaned submission", logger)
	}
	return result
}

func sweepRetained(dir string, maxAge time.Duration, logger *slog.Logger) Result {
	result := Result{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		return result
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: filepath.Join(dir, entry.Name()), Error: err})
			continue
		}
		if info.ModTime().Before(cutoff) {
			remove(&result, filepath.Join(dir, entry.Name()), "expired retained artifact", logger)
		}
	}
	return result
}

func remove(result *Result, path, what string, logger *slog.Logger) {
	if err := os.RemoveAll(path); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
		logging.WarnWithContext(logger, "failed to remove "+what, "scratch_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return
	}
	result.Removed = append(result.Removed, path)
	if logger != nil {
		logger.Info("removed "+what,
			logging.String("path", path),
			logging.String(logging.FieldEventType, "scratch_cleanup"),
		)
	}
}

// Entry describes one item in a scratch directory.
type Entry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	Retained bool      `json:"retained,omitempty"`
}

// List returns the submission directories and retained artifacts under
// scratchDir with their sizes.
func List(scratchDir string) ([]Entry, error) {
	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, entry := range entries {
		path := filepath.Join(scratchDir, entry.Name())
		if entry.Name() == RetainedDirName && entry.IsDir() {
			retained, err := List(path)
			if err != nil {
				return nil, err
			}
			for i := range retained {
				retained[i].Retained = true
			}
			out = append(out, retained...)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		size, _ := dirSize(path)
		out = append(out, Entry{Name: entry.Name(), Path: path, ModTime: info.ModTime(), Size: size})
	}
	return out, nil
}

// dirSize totals the regular files below path. Unreadable entries are skipped.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
