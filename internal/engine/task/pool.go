package task

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently executing task operations. A task
// waiting on predecessors is suspended at the scheduling level and holds no
// worker; an operation that blocks (subprocess I/O, file reads) occupies its
// worker until it returns.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool running at most width operations at once.
func NewPool(width int) *Pool {
	if width < 1 {
		width = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(width))}
}

// Go schedules fn on a worker. It never blocks the caller; fn waits for a
// free slot on its own goroutine.
func (p *Pool) Go(fn func()) {
	go func() {
		// Acquire with a background context cannot fail.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}
