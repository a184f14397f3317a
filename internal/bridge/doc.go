// Package bridge talks to the chat bridge: the HTTP service that owns the
// bot's chat connection. Replies and status edits are JSON calls, files go up
// as multipart uploads, and inbound media is streamed from /file/<id>.
package bridge
