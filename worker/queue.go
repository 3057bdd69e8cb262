// Package worker provides the pipeline's single sequential consumer: a
// bounded task queue that preserves submission order so the dedup filter
// always sees monotonically increasing timestamps.
package worker

import (
	"context"
	"sync"
)

// Task is one capture-and-process cycle.
type Task func(ctx context.Context)

// Queue runs submitted tasks one at a time on a single goroutine. The
// buffer is bounded; Submit drops rather than blocks when processing
// stalls, so a slow OCR backend can never grow memory without limit.
type Queue struct {
	tasks chan queued
	wg    sync.WaitGroup
}

type queued struct {
	ctx context.Context
	fn  Task
}

// NewQueue starts the consumer. Depth defaults to 8 when non-positive.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = 8
	}
	q := &Queue{tasks: make(chan queued, depth)}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for t := range q.tasks {
			// Tasks enqueued before a stop are discarded, not run.
			if t.ctx.Err() != nil {
				continue
			}
			t.fn(t.ctx)
		}
	}()
	return q
}

// Submit enqueues a task. Returns false when the queue is full or the
// context is already cancelled.
func (q *Queue) Submit(ctx context.Context, fn Task) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case q.tasks <- queued{ctx: ctx, fn: fn}:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks and waits for the consumer to drain. Queued
// tasks whose context is cancelled are skipped during the drain.
func (q *Queue) Close() {
	close(q.tasks)
	q.wg.Wait()
}
