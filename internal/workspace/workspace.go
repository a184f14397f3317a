// Package workspace owns the per-user directory layout under paths.data_dir.
//
// Each user gets one directory named after their numeric id holding
// config.json, an assets/ directory with one file per slot kind, and a
// scratch/ area for in-flight submissions. Store.Ensure creates the layout
// idempotently and delegates config creation to an Initializer.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"musicbot/internal/logging"
	"musicbot/internal/services"
)

// ConfigFileName is the canonical per-user config document name.
const ConfigFileName = "config.json"

const (
	assetsDirName  = "assets"
	scratchDirName = "scratch"
	metaSuffix     = ".meta.json"
)

// Kind identifies a file the workspace holds.
type Kind string

const (
	KindConfig    Kind = "config"
	KindCover     Kind = "cover"
	KindSignature Kind = "signature"
	KindWatermark Kind = "watermark"
	KindFont      Kind = "font"
)

// SlotKinds lists the asset slots in display order.
var SlotKinds = []Kind{KindCover, KindSignature, KindWatermark, KindFont}

// ErrInvalidUserID is returned for ids that cannot own a workspace.
var ErrInvalidUserID = fmt.Errorf("%w: invalid user id", services.ErrValidation)

// ParseSlotKind maps user input onto one of the four asset slots.
func ParseSlotKind(value string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(SlotKinds, kind) {
		return kind, true
	}
	return "", false
}

// IsSlot reports whether k names an asset slot.
func (k Kind) IsSlot() bool {
	return slices.Contains(SlotKinds, k)
}

func (k Kind) String() string { return string(k) }

// Initializer creates the config document of a fresh workspace.
type Initializer interface {
	CreateFromTemplate(ctx context.Context, userID int64) (bool, error)
}

// Store resolves and creates workspace paths.
type Store struct {
	root   string
	init   Initializer
	logger *slog.Logger
}

// NewStore returns a store rooted at root. The initializer may be attached
// later with SetInitializer to break the construction cycle with the config
// manager, which needs Locate.
func NewStore(root string, logger *slog.Logger) *Store {
	return &Store{
		root:   root,
		logger: logging.NewComponentLogger(logger, "workspace"),
	}
}

// SetInitializer attaches the config creator used by Ensure.
func (s *Store) SetInitializer(init Initializer) {
	s.init = init
}

// Root returns the data directory holding every workspace.
func (s *Store) Root() string {
	return s.root
}

// ValidateUserID rejects ids that cannot name a workspace.
func ValidateUserID(userID int64) error {
	if userID <= 0 {
		return ErrInvalidUserID
	}
	return nil
}

// Ensure creates the workspace for userID and, when config.json is absent,
// asks the initializer to create it. It reports whether config.json was
// created by this call. Calling Ensure on an existing workspace is a no-op.
func (s *Store) Ensure(ctx context.Context, userID int64) (bool, error) {
	if err := ValidateUserID(userID); err != nil {
		return false, err
	}
	dir := s.Dir(userID)
	for _, path := range []string{dir, s.AssetsDir(userID), s.ScratchDir(userID)} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return false, services.Wrap(services.ErrTransient, "workspace", "ensure", "create directory "+path, err)
		}
	}

	configPath := s.Locate(userID, KindConfig)
	if _, err := os.Stat(configPath); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, services.Wrap(services.ErrTransient, "workspace", "ensure", "stat config", err)
	}
	if s.init == nil {
		return false, nil
	}

	created, err := s.init.CreateFromTemplate(ctx, userID)
	if err != nil {
		return false, err
	}
	if created {
		logging.WithContext(services.WithUserID(ctx, userID), s.logger).Info("workspace initialized",
			logging.String("path", dir),
			logging.String(logging.FieldEventType, "workspace_created"),
		)
	}
	return created, nil
}

// Locate returns the canonical path of kind for userID. It returns "" for
// kinds outside KindConfig and the asset slots.
func (s *Store) Locate(userID int64, kind Kind) string {
	switch {
	case kind == KindConfig:
		return filepath.Join(s.Dir(userID), ConfigFileName)
	case kind.IsSlot():
		return filepath.Join(s.AssetsDir(userID), string(kind))
	default:
		return ""
	}
}

// MetaPath returns the metadata sidecar path for an asset slot.
func (s *Store) MetaPath(userID int64, kind Kind) string {
	if !kind.IsSlot() {
		return ""
	}
	return filepath.Join(s.AssetsDir(userID), string(kind)+metaSuffix)
}

// Dir returns the workspace directory of userID.
func (s *Store) Dir(userID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(userID, 10))
}

// AssetsDir returns the directory holding asset slots.
func (s *Store) AssetsDir(userID int64) string {
	return filepath.Join(s.Dir(userID), assetsDirName)
}

// ScratchDir returns the transient area used by submissions.
func (s *Store) ScratchDir(userID int64) string {
	return filepath.Join(s.Dir(userID), scratchDirName)
}

// Exists reports whether the workspace directory is present.
func (s *Store) Exists(userID int64) bool {
	info, err := os.Stat(s.Dir(userID))
	return err == nil && info.IsDir()
}

// Users lists the ids of every workspace under the root, ascending.
func (s *Store) Users() ([]int64, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
