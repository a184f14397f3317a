package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"musicbot/internal/assets"
	"musicbot/internal/messages"
	"musicbot/internal/userconfig"
	"musicbot/internal/workspace"
)

// Transform is one post-normalization step driven by the user's config.
type Transform interface {
	Name() string
	// Apply returns the path of a new artifact written inside in.WorkDir.
	Apply(ctx context.Context, in TransformInput) (string, error)
}

// TransformInput carries the normalized artifact and the parameters a
// transform may consult.
type TransformInput struct {
	Artifact string
	WorkDir  string
	Config   userconfig.Document
	Assets   map[workspace.Kind]assets.Slot
}

// TransformFunc adapts a function to Transform.
type TransformFunc struct {
	Label string
	Fn    func(ctx context.Context, in TransformInput) (string, error)
}

func (t TransformFunc) Name() string { return t.Label }

func (t TransformFunc) Apply(ctx context.Context, in TransformInput) (string, error) {
	return t.Fn(ctx, in)
}

// withinDir reports whether path resolves to a location inside dir.
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (p *Pipeline) runTransforms(ctx context.Context, run *submission) stepResult {
	p.status(ctx, run, messages.StatusTransforming)
	cfg, err := run.config(ctx, p.configs)
	if err != nil {
		return fail(FailureTransform, fmt.Errorf("read user config: %w", err))
	}
	var bundle map[workspace.Kind]assets.Slot
	if p.assets != nil {
		bundle, err = p.assets.Bundle(run.sub.UserID)
		if err != nil {
			return fail(FailureTransform, fmt.Errorf("load asset slots: %w", err))
		}
	}
	for _, t := range p.transforms {
		out, err := t.Apply(ctx, TransformInput{
			Artifact: run.artifact,
			WorkDir:  run.dir,
			Config:   cfg.Clone(),
			Assets:   bundle,
		})
		if err != nil {
			return fail(FailureTransform, fmt.Errorf("transform %s: %w", t.Name(), err))
		}
		if !withinDir(run.dir, out) {
			return fail(FailureTransform, fmt.Errorf("transform %s wrote %q outside the scratch directory", t.Name(), out))
		}
		run.logger.Debug("transform applied", "transform", t.Name(), "artifact", out)
		run.artifact = out
	}
	return advance(StateDelivering)
}
