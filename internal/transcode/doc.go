// Package transcode wraps the external ffmpeg binary that normalizes audio.
//
// FFmpeg turns a Request into a single ffmpeg invocation and reports failures
// as *ToolError carrying the exit status and the tool's diagnostic output.
// Pool bounds how many conversions run at once so a slow file only occupies
// one slot. Check verifies at startup that the binary runs at all.
package transcode
