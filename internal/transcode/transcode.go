package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"musicbot/internal/logging"
	"musicbot/internal/services"
)

// Canonical encoding targets.
const (
	DefaultCodec   = "libmp3lame"
	DefaultBitrate = "192k"
)

// Request describes one conversion.
type Request struct {
	Input     string
	Output    string
	Codec     string
	Bitrate   string
	Overwrite bool
}

// Transcoder converts an input file according to a Request.
type Transcoder interface {
	Transcode(ctx context.Context, req Request) error
}

// ToolError reports a failed ffmpeg run. Diagnostic holds the tool's error
// stream verbatim.
type ToolError struct {
	ExitCode   int
	Diagnostic string
}

func (e *ToolError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited with status %d: %s", e.ExitCode, e.Diagnostic)
}

// Unwrap tags tool failures for services.ErrorKind.
func (e *ToolError) Unwrap() error {
	return services.ErrExternalTool
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// FFmpeg runs conversions with the ffmpeg command-line tool.
type FFmpeg struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     commandRunner
}

// NewFFmpeg returns a transcoder invoking binary. A zero timeout leaves the
// caller's context as the only bound.
func NewFFmpeg(binary string, timeout time.Duration, logger *slog.Logger) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "ffmpeg"),
		run:     defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (f *FFmpeg) WithCommandRunner(r commandRunner) {
	if f != nil && r != nil {
		f.run = r
	}
}

// Transcode runs ffmpeg for req. Any partial output is removed on failure.
func (f *FFmpeg) Transcode(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Input) == "" || strings.TrimSpace(req.Output) == "" {
		return services.Wrap(services.ErrValidation, "transcode", "request", "input and output paths are required", nil)
	}
	if req.Input == req.Output {
		return services.Wrap(services.ErrValidation, "transcode", "request", "output must differ from input", nil)
	}
	if req.Codec == "" {
		req.Codec = DefaultCodec
	}
	if req.Bitrate == "" {
		req.Bitrate = DefaultBitrate
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := BuildArgs(req)
	f.logger.Debug("executing ffmpeg",
		logging.String("input", req.Input),
		logging.String("output", req.Output),
		logging.String("codec", req.Codec),
		logging.String("bitrate", req.Bitrate),
	)

	started := time.Now()
	if err := f.run(ctx, f.binary, args...); err != nil {
		_ = os.Remove(req.Output)
		return toToolError(ctx, err, f.timeout)
	}
	if info, err := os.Stat(req.Output); err != nil || info.Size() == 0 {
		_ = os.Remove(req.Output)
		return &ToolError{ExitCode: 0, Diagnostic: "ffmpeg reported success but produced no output"}
	}

	f.logger.Debug("ffmpeg finished",
		logging.String("output", req.Output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// BuildArgs returns the ffmpeg argument list for req.
func BuildArgs(req Request) []string {
	overwrite := "-n"
	if req.Overwrite {
		overwrite = "-y"
	}
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		overwrite,
		"-i", req.Input,
		"-vn",
		"-c:a", req.Codec,
		"-b:a", req.Bitrate,
		req.Output,
	}
}

func toToolError(ctx context.Context, err error, timeout time.Duration) error {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && timeout > 0 {
			return &ToolError{ExitCode: toolErr.ExitCode, Diagnostic: fmt.Sprintf("conversion timed out after %s", timeout)}
		}
		return toolErr
	}
	return &ToolError{ExitCode: -1, Diagnostic: err.Error()}
}

// defaultCommandRunner executes the tool and folds its exit status and
// error stream into a ToolError. Stdout is discarded.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	diagnostic := strings.TrimSpace(stderr.String())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{ExitCode: exitErr.ExitCode(), Diagnostic: diagnostic}
	}
	if diagnostic == "" {
		diagnostic = err.Error()
	}
	return &ToolError{ExitCode: -1, Diagnostic: diagnostic}
}

// Check runs `<binary> -version` and returns the first line of its output.
func Check(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	output, err := exec.CommandContext(ctx, binary, "-version").CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = err.Error()
		}
		return "", services.Wrap(services.ErrExternalTool, "startup", "transcoder check", binary+" -version failed: "+detail, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line), nil
}
