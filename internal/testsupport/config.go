package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"musicbot/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The default user template is written to the configured template path.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "users")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TemplatePath = filepath.Join(base, "template.json")
	cfgVal.Bot.Token = "test-token"
	cfgVal.Bot.BridgeURL = "http://127.0.0.1:1"
	cfgVal.Bot.APIBind = "127.0.0.1:0"

	if err := os.WriteFile(cfgVal.Paths.TemplatePath, config.DefaultTemplate(), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBridgeURL points the bot at a test bridge.
func WithBridgeURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bot.BridgeURL = url
	}
}

// WithAdmins seeds the privileged set.
func WithAdmins(ids ...int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bot.Admins = ids
	}
}

// WithTemplate replaces the user template body.
func WithTemplate(body string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Paths.TemplatePath, []byte(body), 0o644); err != nil {
			b.t.Fatalf("write template: %v", err)
		}
	}
}

const ffmpegStub = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo "ffmpeg version 7.1-stub"
  exit 0
fi
in=""
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-i" ]; then
    in="$2"
    shift 2
    continue
  fi
  out="$1"
  shift
done
`

// FFmpegSucceeds makes the stub copy its input to the output path.
const FFmpegSucceeds = `cp "$in" "$out"`

// FFmpegRejectsInput makes the stub fail with an ffmpeg-style diagnostic.
const FFmpegRejectsInput = `echo "$in: Invalid data found when processing input" >&2
exit 1`

// WithStubbedFFmpeg writes an ffmpeg stand-in that answers -version and runs
// behavior for conversions, then prepends it to PATH.
func WithStubbedFFmpeg(behavior string) ConfigOption {
	return func(b *configBuilder) {
		path := b.writeStub("ffmpeg", ffmpegStub+behavior+"\n")
		b.cfg.Transcoder.FFmpegBinary = path
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for _, name := range names {
			b.writeStub(name, "#!/bin/sh\nexit 0\n")
		}
	}
}

func (b *configBuilder) writeStub(name, script string) string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
