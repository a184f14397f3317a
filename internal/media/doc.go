// Package media describes files referenced by chat messages and copies them
// into the workspace.
//
// A Source is the transport-neutral view of an attachment: the bridge fills
// it from inbound updates, the pipeline and asset manager consume it, and a
// Fetcher streams its bytes on demand.
package media
