package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsTasksInOrder(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	var order []int
	done := make(chan struct{})
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		i := i
		ok := q.Submit(ctx, func(context.Context) {
			order = append(order, i)
			if i == 3 {
				close(done)
			}
		})
		if !ok {
			t.Fatalf("submit %d should succeed", i)
		}
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not run")
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("tasks ran out of order: %v", order)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()
	ctx := context.Background()

	release := make(chan struct{})
	q.Submit(ctx, func(context.Context) { <-release })

	// One slot buffers, everything beyond must drop.
	dropped := false
	for i := 0; i < 3; i++ {
		if !q.Submit(ctx, func(context.Context) {}) {
			dropped = true
		}
	}
	close(release)
	if !dropped {
		t.Error("expected at least one submit to drop with a full queue")
	}
}

func TestQueueSkipsCancelledTasks(t *testing.T) {
	q := NewQueue(4)
	ctx, cancel := context.WithCancel(context.Background())

	var ran atomic.Int32
	block := make(chan struct{})
	q.Submit(context.Background(), func(context.Context) { <-block })
	q.Submit(ctx, func(context.Context) { ran.Add(1) })
	q.Submit(ctx, func(context.Context) { ran.Add(1) })

	cancel()
	close(block)
	q.Close()
	if ran.Load() != 0 {
		t.Errorf("%d cancelled tasks ran, want 0", ran.Load())
	}
}

func TestSubmitAfterCancelFails(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Submit(ctx, func(context.Context) {}) {
		t.Error("submit with cancelled context should be refused")
	}
}
