package transcode

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"musicbot/internal/services"
)

// Pool bounds concurrent conversions.
type Pool struct {
	next     Transcoder
	sem      *semaphore.Weighted
	capacity int64
	active   atomic.Int64
	waiting  atomic.Int64
}

// NewPool wraps next so that at most size conversions run at once.
func NewPool(next Transcoder, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		next:     next,
		sem:      semaphore.NewWeighted(int64(size)),
		capacity: int64(size),
	}
}

// Transcode waits for a free slot, honouring ctx, then delegates.
func (p *Pool) Transcode(ctx context.Context, req Request) error {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcode", "pool", "waiting for a transcoder slot", err)
	}
	defer p.sem.Release(1)

	p.active.Add(1)
	defer p.active.Add(-1)
	return p.next.Transcode(ctx, req)
}

// PoolStats is a point-in-time view of pool usage.
type PoolStats struct {
	Capacity int64 `json:"capacity"`
	Active   int64 `json:"active"`
	Waiting  int64 `json:"waiting"`
}

// Stats reports current usage.
func (p *Pool) Stats() PoolStats {
	return PoolStats{Capacity: p.capacity, Active: p.active.Load(), Waiting: p.waiting.Load()}
}
