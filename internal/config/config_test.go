package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"musicbot/internal/config"
)

func TestLoadDefaultConfigUsesEnvTokenAndExpandsPaths(t *testing.T) {
	t.Setenv("MUSICBOT_TOKEN", "env-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "musicbot", "users")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	wantTemplate := filepath.Join(tempHome, ".config", "musicbot", "template.json")
	if cfg.Paths.TemplatePath != wantTemplate {
		t.Fatalf("unexpected template path: got %q want %q", cfg.Paths.TemplatePath, wantTemplate)
	}
	if cfg.Bot.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Bot.Token)
	}
	if cfg.Bot.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Bot.APIBind)
	}
	if cfg.Transcoder.Codec != "libmp3lame" || cfg.Transcoder.Bitrate != "192k" {
		t.Fatalf("unexpected canonical encoding: %s %s", cfg.Transcoder.Codec, cfg.Transcoder.Bitrate)
	}
	if cfg.Transcoder.VerifyOutput {
		t.Fatal("expected output verification disabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "musicbot.toml")

	type payload struct {
		Bot struct {
			Token     string  `toml:"token"`
			BridgeURL string  `toml:"bridge_url"`
			Locale    string  `toml:"locale"`
			Admins    []int64 `toml:"admins"`
		} `toml:"bot"`
		Transcoder struct {
			MaxConcurrent int  `toml:"max_concurrent"`
			VerifyOutput  bool `toml:"verify_output"`
		} `toml:"transcoder"`
	}
	custom := payload{}
	custom.Bot.Token = "abc123"
	custom.Bot.BridgeURL = "http://bridge.local:9000/"
	custom.Bot.Locale = " FA "
	custom.Bot.Admins = []int64{9, 3, 9}
	custom.Transcoder.MaxConcurrent = 4
	custom.Transcoder.VerifyOutput = true
	writeTOML(t, configPath, custom)

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Bot.Token != "abc123" {
		t.Fatalf("expected token from file, got %q", cfg.Bot.Token)
	}
	if cfg.Bot.BridgeURL != "http://bridge.local:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Bot.BridgeURL)
	}
	if cfg.Bot.Locale != "fa" {
		t.Fatalf("expected normalized locale fa, got %q", cfg.Bot.Locale)
	}
	if len(cfg.Bot.Admins) != 2 || cfg.Bot.Admins[0] != 3 || cfg.Bot.Admins[1] != 9 {
		t.Fatalf("expected sorted unique admins, got %v", cfg.Bot.Admins)
	}
	if cfg.Transcoder.MaxConcurrent != 4 || !cfg.Transcoder.VerifyOutput {
		t.Fatalf("unexpected transcoder settings: %+v", cfg.Transcoder)
	}
}

func TestEnvVarOverridesConfigFileForSecrets(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "musicbot.toml")

	type payload struct {
		Bot struct {
			Token     string `toml:"token"`
			APIToken  string `toml:"api_token"`
			BridgeURL string `toml:"bridge_url"`
		} `toml:"bot"`
	}
	custom := payload{}
	custom.Bot.Token = "file-token"
	custom.Bot.APIToken = "file-api"
	custom.Bot.BridgeURL = "http://file.local"
	writeTOML(t, configPath, custom)

	t.Setenv("MUSICBOT_TOKEN", "env-token")
	t.Setenv("MUSICBOT_API_TOKEN", "env-api")
	t.Setenv("MUSICBOT_BRIDGE_URL", "http://env.local")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Fatalf("expected env token, got %q", cfg.Bot.Token)
	}
	if cfg.Bot.APIToken != "env-api" {
		t.Fatalf("expected env api token, got %q", cfg.Bot.APIToken)
	}
	if cfg.Bot.BridgeURL != "http://env.local" {
		t.Fatalf("expected env bridge url, got %q", cfg.Bot.BridgeURL)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MUSICBOT_TOKEN", "")
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil || !strings.Contains(err.Error(), "bot.token") {
		t.Fatalf("expected bot.token error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"locale", func(c *config.Config) { c.Bot.Locale = "de" }, "bot.locale"},
		{"bitrate", func(c *config.Config) { c.Transcoder.Bitrate = "192" }, "transcoder.bitrate"},
		{"codec", func(c *config.Config) { c.Transcoder.Codec = "" }, "transcoder.codec"},
		{"concurrency", func(c *config.Config) { c.Transcoder.MaxConcurrent = 0 }, "transcoder.max_concurrent"},
		{"timeout", func(c *config.Config) { c.Transcoder.TimeoutSeconds = -1 }, "transcoder.timeout_seconds"},
		{"bridge", func(c *config.Config) { c.Bot.BridgeURL = "not a url" }, "bot.bridge_url"},
		{"admins", func(c *config.Config) { c.Bot.Admins = []int64{0} }, "bot.admins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Bot.Token = "token"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if !cfg.TokenIsPlaceholder() {
		t.Fatal("expected sample token to be flagged as placeholder")
	}
}

func TestCreateTemplateWritesJSONObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "template.json")
	if err := config.CreateTemplate(path); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("template is not a JSON object: %v", err)
	}
	if _, ok := doc["user_id"]; ok {
		t.Fatal("template must not carry a user_id binding")
	}
}

func writeTOML(t *testing.T, path string, v any) {
	t.Helper()
	data, err := toml.Marshal(v)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
}
