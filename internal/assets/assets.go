// Package assets stores the auxiliary files a user attaches to their
// workspace: cover, signature, watermark, and font.
//
// Each kind owns exactly one slot. Storing a new file downloads it next to
// the slot and renames it into place, so the previous content stays intact
// until the new bytes are complete and is discarded afterwards.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"musicbot/internal/fileutil"
	"musicbot/internal/logging"
	"musicbot/internal/media"
	"musicbot/internal/services"
	"musicbot/internal/workspace"
)

// ErrUnknownSlotKind is returned for kinds outside the four asset slots.
var ErrUnknownSlotKind = fmt.Errorf("%w: unknown asset slot kind", services.ErrValidation)

// Workspaces is the subset of workspace.Store the manager needs.
type Workspaces interface {
	Ensure(ctx context.Context, userID int64) (bool, error)
	Locate(userID int64, kind workspace.Kind) string
	MetaPath(userID int64, kind workspace.Kind) string
	AssetsDir(userID int64) string
}

// Meta describes the file committed to a slot.
type Meta struct {
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type,omitempty"`
	Size         int64     `json:"size"`
	StoredAt     time.Time `json:"stored_at"`
}

// Slot is a committed asset.
type Slot struct {
	Kind workspace.Kind `json:"kind"`
	Path string         `json:"path"`
	Meta Meta           `json:"meta"`
}

// Manager commits assets into workspaces.
type Manager struct {
	workspaces Workspaces
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager returns an asset manager backed by workspaces.
func NewManager(workspaces Workspaces, logger *slog.Logger) *Manager {
	return &Manager{
		workspaces: workspaces,
		logger:     logging.NewComponentLogger(logger, "assets"),
		now:        time.Now,
	}
}

// Store downloads src through fetcher into the slot named kind, replacing
// whatever the slot held. Unknown kinds fail with ErrUnknownSlotKind before
// any I/O.
func (m *Manager) Store(ctx context.Context, userID int64, kind string, src media.Source, fetcher media.Fetcher) (Slot, error) {
	slotKind, ok := workspace.ParseSlotKind(kind)
	if !ok {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownSlotKind, kind)
	}
	if _, err := m.workspaces.Ensure(ctx, userID); err != nil {
		return Slot{}, err
	}

	target := m.workspaces.Locate(userID, slotKind)
	tmp, err := os.CreateTemp(m.workspaces.AssetsDir(userID), "."+string(slotKind)+".*.part")
	if err != nil {
		return Slot{}, services.Wrap(services.ErrTransient, "assets", "store", "create temp file", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	size, err := media.Download(ctx, fetcher, src, tmpName)
	if err != nil {
		return Slot{}, services.Wrap(services.ErrTransient, "assets", "store", "download "+string(slotKind), err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return Slot{}, services.Wrap(services.ErrTransient, "assets", "store", "commit "+string(slotKind), err)
	}
	committed = true

	meta := Meta{
		OriginalName: src.DeclaredName(),
		MimeType:     src.MimeType,
		Size:         size,
		StoredAt:     m.now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Slot{}, fmt.Errorf("encode slot metadata: %w", err)
	}
	if err := fileutil.WriteAtomic(m.workspaces.MetaPath(userID, slotKind), data, 0o644); err != nil {
		return Slot{}, services.Wrap(services.ErrTransient, "assets", "store", "write slot metadata", err)
	}

	logging.WithContext(services.WithUserID(ctx, userID), m.logger).Info("asset stored",
		logging.String("kind", string(slotKind)),
		logging.String("original_name", meta.OriginalName),
		logging.Int64("size", size),
		logging.String(logging.FieldEventType, "asset_stored"),
	)
	return Slot{Kind: slotKind, Path: target, Meta: meta}, nil
}

// Lookup returns the committed slot of kind. ok is false when the slot is empty.
func (m *Manager) Lookup(userID int64, kind workspace.Kind) (Slot, bool, error) {
	if !kind.IsSlot() {
		return Slot{}, false, fmt.Errorf("%w: %q", ErrUnknownSlotKind, kind)
	}
	path := m.workspaces.Locate(userID, kind)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Slot{}, false, nil
		}
		return Slot{}, false, fmt.Errorf("stat %s slot: %w", kind, err)
	}

	slot := Slot{Kind: kind, Path: path, Meta: Meta{Size: info.Size(), StoredAt: info.ModTime().UTC()}}
	data, err := os.ReadFile(m.workspaces.MetaPath(userID, kind))
	if err == nil {
		var meta Meta
		if json.Unmarshal(data, &meta) == nil {
			slot.Meta = meta
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Slot{}, false, fmt.Errorf("read %s metadata: %w", kind, err)
	}
	return slot, true, nil
}

// List returns every filled slot in workspace.SlotKinds order.
func (m *Manager) List(userID int64) ([]Slot, error) {
	slots := make([]Slot, 0, len(workspace.SlotKinds))
	for _, kind := range workspace.SlotKinds {
		slot, ok, err := m.Lookup(userID, kind)
		if err != nil {
			return nil, err
		}
		if ok {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// Bundle returns the filled slots keyed by kind.
func (m *Manager) Bundle(userID int64) (map[workspace.Kind]Slot, error) {
	slots, err := m.List(userID)
	if err != nil {
		return nil, err
	}
	out := make(map[workspace.Kind]Slot, len(slots))
	for _, slot := range slots {
		out[slot.Kind] = slot
	}
	return out, nil
}
