package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicbot/internal/config"
	"musicbot/internal/testsupport"
	"musicbot/internal/userconfig"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("MUSICBOT_TOKEN", "")
	t.Setenv("MUSICBOT_API_TOKEN", "")
	t.Setenv("MUSICBOT_BRIDGE_URL", "")
	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
template_path = %q
log_dir = %q

[bot]
token = %q
bridge_url = %q
api_bind = %q

[transcoder]
ffmpeg_binary = %q
`,
		cfg.Paths.DataDir,
		cfg.Paths.TemplatePath,
		cfg.Paths.LogDir,
		cfg.Bot.Token,
		cfg.Bot.BridgeURL,
		cfg.Bot.APIBind,
		cfg.Transcoder.FFmpegBinary,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	template := filepath.Join(tmp, "user-template.json")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--template", template}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	requireContains(t, out, "Wrote user template")
	for _, path := range []string{target, template} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected file at %s: %v", path, err)
		}
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--template", template}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigValidateRejectsBrokenTemplate(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTemplate(`["not", "an", "object"]`))

	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "user template invalid") {
		t.Fatalf("expected template error, got %v", err)
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedFFmpeg(testsupport.FFmpegSucceeds))

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if report.Daemon != nil || report.DaemonError == "" {
		t.Fatalf("expected daemon to be reported unreachable, got %+v", report)
	}
	if len(report.Checks) == 0 || len(report.Dependencies) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "[ERROR] Not running")
	requireContains(t, out, "ffmpeg version 7.1-stub")
}

func TestWorkspaceSetupAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"workspace", "setup", "42"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace setup: %v", err)
	}
	requireContains(t, out, "Created workspace")

	out, _, err = runCLI(t, []string{"workspace", "setup", "42"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace setup again: %v", err)
	}
	requireContains(t, out, "already exists")

	out, _, err = runCLI(t, []string{"workspace", "show", "42", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace show: %v", err)
	}
	var view workspaceView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.UserID != 42 || len(view.Keys) < 2 || view.Keys[0] != userconfig.UserIDKey || view.Keys[1] != "tags" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Config[userconfig.UserIDKey] != "42" {
		t.Fatalf("expected user_id bound to 42, got %q", view.Config[userconfig.UserIDKey])
	}
	if len(view.Missing) != 4 {
		t.Fatalf("expected all four slots missing, got %v", view.Missing)
	}

	out, _, err = runCLI(t, []string{"workspace", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("workspace list: %v", err)
	}
	requireContains(t, out, "42")

	if _, _, err := runCLI(t, []string{"workspace", "show", "0"}, env.configPath); err == nil {
		t.Fatal("expected invalid user id to fail")
	}
}

func TestNormalizeConvertsLocalFile(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedFFmpeg(testsupport.FFmpegSucceeds))
	input := filepath.Join(t.TempDir(), "take one.wav")
	data := []byte("RIFF fake wave data")
	if err := os.WriteFile(input, data, 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	out, stderr, err := runCLI(t, []string{"normalize", input, "--user", "9", "--out", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("normalize: %v (stderr %s)", err, stderr)
	}
	requireContains(t, out, "converted: yes")

	matches, _ := filepath.Glob(filepath.Join(outDir, "*.mp3"))
	if len(matches) != 1 {
		t.Fatalf("expected one mp3 in %s, got %v", outDir, matches)
	}
	got, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("normalized output differs from stub transcoder copy")
	}
}

func TestNormalizeReportsTranscoderFailure(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedFFmpeg(testsupport.FFmpegRejectsInput))
	input := filepath.Join(t.TempDir(), "broken.flac")
	if err := os.WriteFile(input, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"normalize", input, "--out", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected normalize to fail")
	}
	requireContains(t, out, "Invalid data found when processing input")
}

func TestLogsFiltersByUser(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	body := "t INFO pipeline: audio delivered user_id=5\n" +
		"t INFO pipeline: audio delivered user_id=6\n" +
		"t WARN pipeline: transcoder rejected input user_id=5\n"
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "musicbot.log"), []byte(body), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--user", "5", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "t WARN pipeline: transcoder rejected input user_id=5" {
		t.Fatalf("unexpected logs output %q", out)
	}
}
