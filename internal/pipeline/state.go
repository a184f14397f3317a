package pipeline

import (
	"context"
	"fmt"

	"musicbot/internal/media"
)

// State names a step of the submission state machine.
type State string

const (
	StateReceived     State = "received"
	StateDownloading  State = "downloading"
	StateClassifying  State = "classifying"
	StateConverting   State = "converting"
	StatePassThrough  State = "pass_through"
	StateTransforming State = "transforming"
	StateDelivering   State = "delivering"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether the state ends processing.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// FailureKind classifies why a submission failed.
type FailureKind string

const (
	FailureNotAudio  FailureKind = "not_audio"
	FailureDownload  FailureKind = "download"
	FailureTranscode FailureKind = "transcode"
	FailureTransform FailureKind = "transform"
	FailureDelivery  FailureKind = "delivery"
	FailureInternal  FailureKind = "internal"
)

// Failure is the failure variant of a stage result.
type Failure struct {
	Kind FailureKind
	// State is where processing stopped.
	State State
	// Diagnostic is safe to show the requester. For transcoder failures it
	// is the tool's error output, truncated to the configured limit.
	Diagnostic string
	Err        error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s failure in %s", f.Kind, f.State)
	}
	return fmt.Sprintf("%s failure in %s: %v", f.Kind, f.State, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// stepResult is what every stage returns: the next state, or a failure.
type stepResult struct {
	next State
	err  *Failure
}

func advance(next State) stepResult {
	return stepResult{next: next}
}

func fail(kind FailureKind, err error) stepResult {
	return stepResult{err: &Failure{Kind: kind, Err: err}}
}

// Deliverer is the requester's side of a submission.
type Deliverer interface {
	// Status shows or updates a transient progress note.
	Status(ctx context.Context, text string) error
	// ClearStatus removes the progress note, if any.
	ClearStatus(ctx context.Context) error
	// DeliverAudio sends the artifact at path under the display name.
	DeliverAudio(ctx context.Context, path, name, caption string) error
	// Notify sends a plain reply.
	Notify(ctx context.Context, text string) error
}

// Submission is one inbound audio item.
type Submission struct {
	UserID    int64
	Source    media.Source
	Fetcher   media.Fetcher
	Requester Deliverer
	// Retain keeps the normalized artifact after delivery and returns it as
	// Outcome.Handoff.
	Retain bool
}

// Outcome summarizes a finished submission.
type Outcome struct {
	State State
	// Key is the scratch key the submission ran under.
	Key string
	// Delivered is the display name sent to the requester.
	Delivered string
	Converted bool
	Failure   *Failure
	Handoff   *Handoff
}
