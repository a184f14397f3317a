// Package botapi receives chat updates pushed by the bridge and exposes the
// daemon's status over HTTP.
//
// POST /api/updates accepts one update, acknowledges it with 202 and hands
// the message to the dispatcher on its own goroutine. GET /api/status
// reports daemon health. Both routes require the configured bearer token.
package botapi
