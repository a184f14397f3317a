package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"musicbot/internal/config"
	"musicbot/internal/deps"
	"musicbot/internal/userconfig"
)

const bridgeCheckTimeout = 5 * time.Second

// CheckBridge verifies chat bridge connectivity and authentication.
func CheckBridge(ctx context.Context, baseURL, token string) Result {
	const name = "Chat bridge"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing token"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, bridgeCheckTimeout)
	defer cancel()

	client := &http.Client{Timeout: bridgeCheckTimeout}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/getMe", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTemplate verifies the user configuration template parses as a
// JSON object.
func CheckTemplate(path string) Result {
	const name = "User template"

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	doc, err := userconfig.Parse(data)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d keys)", path, len(doc.Keys()))}
}

// CheckSystemDeps evaluates the external binaries required by the given
// config. Both the daemon and the CLI status command use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	ffmpeg := cfg.Transcoder.FFmpegBinary
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for audio conversion",
			VersionFlag: "-version",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.Transcoder.FFprobeBinary, ffmpeg),
			Description: "Verifies converted output",
			Optional:    !cfg.Transcoder.VerifyOutput,
			VersionFlag: "-version",
		},
	}
	return deps.CheckBinaries(ctx, requirements)
}

// CheckTranscoder reports whether the required transcoder binaries are
// usable. A failed result means no audio submission can succeed.
func CheckTranscoder(ctx context.Context, cfg *config.Config) Result {
	const name = "Transcoder"

	missing := deps.Missing(CheckSystemDeps(ctx, cfg))
	if len(missing) == 0 {
		return Result{Name: name, Passed: true, Detail: "ffmpeg available"}
	}
	names := make([]string, 0, len(missing))
	for _, status := range missing {
		detail := status.Command
		if status.Detail != "" {
			detail += ": " + status.Detail
		}
		names = append(names, fmt.Sprintf("%s (%s)", status.Name, detail))
	}
	return Result{Name: name, Detail: "missing " + strings.Join(names, ", ")}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (bridge unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (bridge unreachable)"
	}
	return fmt.Sprintf("check failed (%v)", err)
}
