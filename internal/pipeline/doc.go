// Package pipeline normalizes one audio submission at a time.
//
// A submission moves through a small state machine: it is downloaded into a
// private scratch directory, classified by its declared name and mime type,
// converted to MP3 when needed, optionally passed through registered
// transforms, and delivered back to the requester. Every stage returns a
// stepResult carrying either the next state or a typed Failure; the driver
// loop in Process owns the transitions.
//
// The submission's scratch directory is removed when Process returns,
// whichever state it ended in. Callers that want to keep the normalized
// artifact set Submission.Retain and take ownership of the returned Handoff.
package pipeline
