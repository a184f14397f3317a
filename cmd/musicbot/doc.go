// Package main hosts the musicbot CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, queries a
// running daemon's status endpoint, scaffolds configuration, inspects user
// workspaces, and runs the audio pipeline against local files without a
// chat bridge.
package main
