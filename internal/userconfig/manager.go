package userconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"musicbot/internal/fileutil"
	"musicbot/internal/logging"
	"musicbot/internal/services"
	"musicbot/internal/workspace"
)

// UpdateDirective is the caption that marks an uploaded config.json as an update.
const UpdateDirective = "/config"

var (
	ErrTemplateMissing = fmt.Errorf("%w: config template missing", services.ErrConfiguration)
	ErrTemplateInvalid = fmt.Errorf("%w: config template invalid", services.ErrConfiguration)
	ErrConfigMissing   = fmt.Errorf("%w: config missing", services.ErrNotFound)
	ErrConfigInvalid   = fmt.Errorf("%w: config invalid", services.ErrValidation)
)

// Locator resolves workspace paths.
type Locator interface {
	Locate(userID int64, kind workspace.Kind) string
}

// Manager reads and writes config documents.
type Manager struct {
	locator      Locator
	templatePath string
	logger       *slog.Logger
}

// NewManager builds a manager that seeds new workspaces from templatePath.
func NewManager(locator Locator, templatePath string, logger *slog.Logger) *Manager {
	return &Manager{
		locator:      locator,
		templatePath: templatePath,
		logger:       logging.NewComponentLogger(logger, "userconfig"),
	}
}

// IsUpdateRequest reports whether an uploaded document should replace the
// config: its name must be config.json and the directive /config, both
// compared case-insensitively with the directive trimmed.
func IsUpdateRequest(fileName, directive string) bool {
	return strings.EqualFold(fileName, workspace.ConfigFileName) &&
		strings.EqualFold(strings.TrimSpace(directive), UpdateDirective)
}

// CreateFromTemplate writes config.json for userID from the template unless
// one already exists. It reports whether this call created the file.
func (m *Manager) CreateFromTemplate(ctx context.Context, userID int64) (bool, error) {
	if err := workspace.ValidateUserID(userID); err != nil {
		return false, err
	}
	doc, err := m.Template()
	if err != nil {
		return false, err
	}
	doc.UserID = userID
	data, err := doc.Marshal()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}

	path := m.locator.Locate(userID, workspace.KindConfig)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, services.Wrap(services.ErrTransient, "userconfig", "create", "ensure workspace directory", err)
	}
	created, err := fileutil.CreateExclusive(path, data, 0o644)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "userconfig", "create", "commit config", err)
	}
	if created {
		logging.WithContext(services.WithUserID(ctx, userID), m.logger).Info("config created from template",
			logging.String("template", m.templatePath),
			logging.String(logging.FieldEventType, "config_created"),
		)
	}
	return created, nil
}

// Template loads and parses the shared template document.
func (m *Manager) Template() (Document, error) {
	data, err := os.ReadFile(m.templatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrTemplateMissing, m.templatePath)
		}
		return Document{}, services.Wrap(services.ErrTransient, "userconfig", "template", "read template", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrTemplateInvalid, m.templatePath, err)
	}
	return doc, nil
}

// Read returns the stored document of userID.
func (m *Manager) Read(ctx context.Context, userID int64) (Document, error) {
	data, err := m.ReadRaw(ctx, userID)
	if err != nil {
		return Document{}, err
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != userID {
		logging.WarnWithContext(logging.WithContext(services.WithUserID(ctx, userID), m.logger),
			"stored config carries a foreign user_id", "config_user_mismatch",
			logging.Int64("stored_user_id", doc.UserID),
			logging.String(logging.FieldErrorHint, "re-upload config.json to rewrite the binding"),
			logging.String(logging.FieldImpact, "user_id corrected in memory only"),
		)
		doc.UserID = userID
	}
	return doc, nil
}

// ReadRaw returns the stored bytes of config.json.
func (m *Manager) ReadRaw(_ context.Context, userID int64) ([]byte, error) {
	if err := workspace.ValidateUserID(userID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.locator.Locate(userID, workspace.KindConfig))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigMissing
		}
		return nil, services.Wrap(services.ErrTransient, "userconfig", "read", "read config", err)
	}
	return data, nil
}

// Replace parses candidate, binds it to userID, and atomically swaps it in as
// the user's config. Malformed candidates return ErrConfigInvalid and leave
// the stored document untouched. Concurrent replaces are last-writer-wins.
func (m *Manager) Replace(ctx context.Context, userID int64, candidate []byte) (Document, error) {
	if err := workspace.ValidateUserID(userID); err != nil {
		return Document{}, err
	}
	doc, err := Parse(candidate)
	if err != nil {
		return Document{}, err
	}
	previous := doc.UserID
	doc.UserID = userID

	data, err := doc.Marshal()
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	if err := fileutil.WriteAtomic(m.locator.Locate(userID, workspace.KindConfig), data, 0o644); err != nil {
		return Document{}, services.Wrap(services.ErrTransient, "userconfig", "replace", "commit config", err)
	}

	attrs := []logging.Attr{
		logging.Int("fields", len(doc.Fields)),
		logging.String(logging.FieldEventType, "config_replaced"),
	}
	if previous != userID {
		attrs = append(attrs, logging.Int64("candidate_user_id", previous))
	}
	logging.WithContext(services.WithUserID(ctx, userID), m.logger).Info("config replaced", logging.Args(attrs...)...)
	return doc, nil
}
