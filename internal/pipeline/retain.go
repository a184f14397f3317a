package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"musicbot/internal/fileutil"
	"musicbot/internal/media"
	"musicbot/internal/scratch"
	"musicbot/internal/userconfig"
)

// RetainedDirName is the scratch subdirectory that holds retained artifacts.
const RetainedDirName = scratch.RetainedDirName

// Handoff passes a normalized artifact and the user's config to a caller
// that chains further processing. The caller owns Path until Release.
type Handoff struct {
	Path   string
	Config userconfig.Document

	once sync.Once
	err  error
}

// Release deletes the retained artifact. It is safe to call more than once.
func (h *Handoff) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
			h.err = fmt.Errorf("release %s: %w", h.Path, err)
		}
	})
	return h.err
}

// retain moves the artifact out of the submission directory before cleanup.
func (p *Pipeline) retain(ctx context.Context, run *submission) (*Handoff, error) {
	cfg, err := run.config(ctx, p.configs)
	if err != nil {
		return nil, fmt.Errorf("read user config: %w", err)
	}
	dir := filepath.Join(p.workspaces.ScratchDir(run.sub.UserID), RetainedDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create retained dir: %w", err)
	}
	dst := filepath.Join(dir, run.key+media.CanonicalExtension)
	if err := fileutil.MoveFile(run.artifact, dst); err != nil {
		return nil, fmt.Errorf("move artifact: %w", err)
	}
	return &Handoff{Path: dst, Config: cfg}, nil
}
