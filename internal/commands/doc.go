// Package commands routes chat messages to workspace, config, asset, admin
// and audio handlers.
//
// Dispatcher.Handle is the boundary for every inbound message: handlers
// report failures as errors carrying the reply to send, and Handle logs them
// and answers the user in the configured locale. Nothing escapes Handle.
package commands
