package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

//go:embed template.json
var defaultTemplate string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	TemplatePath string `toml:"template_path"`
	LogDir       string `toml:"log_dir"`
}

// Bot contains chat bridge and command surface settings.
type Bot struct {
	Token              string  `toml:"token"`
	BridgeURL          string  `toml:"bridge_url"`
	APIBind            string  `toml:"api_bind"`
	APIToken           string  `toml:"api_token"`
	Locale             string  `toml:"locale"`
	Admins             []int64 `toml:"admins"`
	MaxDiagnosticChars int     `toml:"max_diagnostic_chars"`
	RequestTimeout     int     `toml:"request_timeout"`
}

// Transcoder contains the external ffmpeg invocation settings.
type Transcoder struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	Codec          string `toml:"codec"`
	Bitrate        string `toml:"bitrate"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	VerifyOutput   bool   `toml:"verify_output"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for musicbot.
//
// Configuration sections by subsystem:
//   - Paths: workspace root, user template, and log directory
//   - Bot: bridge endpoint, ingress API, locale, and seed admin ids
//   - Transcoder: ffmpeg/ffprobe binaries and the canonical encoding
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Bot        Bot        `toml:"bot"`
	Transcoder Transcoder `toml:"transcoder"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("musicbot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TranscodeTimeout bounds one ffmpeg invocation.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Transcoder.TimeoutSeconds) * time.Second
}

// BridgeTimeout bounds one outbound bridge request.
func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bot.RequestTimeout) * time.Second
}

// TokenIsPlaceholder reports whether bot.token still holds the value shipped
// in the sample configuration.
func (c *Config) TokenIsPlaceholder() bool {
	return strings.TrimSpace(c.Bot.Token) == placeholderToken
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	return writeEmbedded(path, sampleConfig, "sample config")
}

// CreateTemplate writes the default per-user template document to path.
func CreateTemplate(path string) error {
	return writeEmbedded(path, defaultTemplate, "user template")
}

// DefaultTemplate returns the embedded per-user template document.
func DefaultTemplate() []byte {
	return []byte(defaultTemplate)
}

func writeEmbedded(path, content, label string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", label, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", label, err)
	}
	return nil
}
