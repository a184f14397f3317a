package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe returns the ffprobe binary to use. An explicit setting
// wins; otherwise an ffprobe sitting next to the resolved ffmpeg is
// preferred, falling back to "ffprobe" from PATH.
func ResolveFFprobe(configured, ffmpegCommand string) string {
	if value := strings.TrimSpace(configured); value != "" && value != "ffprobe" {
		return value
	}
	if resolved, err := exec.LookPath(strings.TrimSpace(ffmpegCommand)); err == nil {
		candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return "ffprobe"
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
