package commands

import (
	"context"
	"sync"
)

// requester adapts a Conversation to pipeline.Deliverer. The first status
// note is sent as a new message and later ones edit it.
type requester struct {
	conv Conversation

	mu     sync.Mutex
	status Status
}

func newRequester(conv Conversation) *requester {
	return &requester{conv: conv}
}

func (r *requester) Status(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != nil {
		return r.status.Edit(ctx, text)
	}
	status, err := r.conv.StatusMessage(ctx, text)
	if err != nil {
		return err
	}
	r.status = status
	return nil
}

func (r *requester) ClearStatus(ctx context.Context) error {
	r.mu.Lock()
	status := r.status
	r.status = nil
	r.mu.Unlock()
	if status == nil {
		return nil
	}
	return status.Delete(ctx)
}

func (r *requester) DeliverAudio(ctx context.Context, path, name, caption string) error {
	return r.conv.SendAudio(ctx, path, name, caption)
}

func (r *requester) Notify(ctx context.Context, text string) error {
	return r.conv.Reply(ctx, text)
}
