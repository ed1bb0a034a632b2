package transcode

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many transcodes run at once and how long each may take.
// It wraps another Transcoder and is itself a Transcoder.
type Pool struct {
	next    Transcoder
	slots   *semaphore.Weighted
	timeout time.Duration
}

// NewPool builds a Pool with the given number of worker slots. A zero timeout
// disables the per-job deadline.
func NewPool(next Transcoder, workers int, timeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		next:    next,
		slots:   semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
	}
}

// Transcode waits for a free slot, then runs the wrapped transcoder under the
// per-job timeout. Time spent waiting for a slot does not count against it.
func (p *Pool) Transcode(ctx context.Context, input, output string) error {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for transcode slot: %w", err)
	}
	defer p.slots.Release(1)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.next.Transcode(ctx, input, output)
}
