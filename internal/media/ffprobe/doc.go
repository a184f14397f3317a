// Package ffprobe provides a typed wrapper around ffprobe JSON output for
// audio files.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio or attached-picture stream properties
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Inspect executes ffprobe and returns a parsed Result. The pipeline uses it
// to reject converted files that carry no audio stream; the CLI uses it for
// `musicbot probe`.
package ffprobe
