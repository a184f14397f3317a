// Package daemon coordinates the long-running musicbot process.
//
// It owns the single-instance flock lock, the HTTP listener that receives
// bridge updates, and the status snapshot served to operators. Command
// handling and the audio pipeline live in their own packages; the daemon
// only wires them into one lifecycle and waits for in-flight updates on
// shutdown.
package daemon
