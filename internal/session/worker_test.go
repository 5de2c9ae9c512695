package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFIFO_RunsSeriallyInOrderWithoutDropping(t *testing.T) {
	f := newFIFO()
	release := make(chan struct{})
	var running, overlap atomic.Int32
	var order []int

	for i := 0; i < 200; i++ {
		i := i
		if !f.submit(func(context.Context) {
			if running.Add(1) > 1 {
				overlap.Add(1)
			}
			if i == 0 {
				<-release
			}
			order = append(order, i)
			running.Add(-1)
		}) {
			t.Fatalf("submit %d refused", i)
		}
	}
	if got := f.backlog(); got != 200 {
		t.Fatalf("backlog=%d before start", got)
	}
	f.start()
	close(release)
	f.close()

	if overlap.Load() != 0 {
		t.Fatalf("jobs overlapped")
	}
	if len(order) != 200 {
		t.Fatalf("ran %d jobs", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d]=%d", i, v)
		}
	}
	if f.submit(func(context.Context) {}) {
		t.Fatalf("submit accepted after close")
	}
}

func TestLossyQueue_DropsWhenFull(t *testing.T) {
	q := newLossyQueue(1)
	release := make(chan struct{})
	started := make(chan struct{})
	q.start()

	if !q.submit(func(context.Context) { close(started); <-release }) {
		t.Fatalf("first submit refused")
	}
	<-started
	if !q.submit(func(context.Context) {}) {
		t.Fatalf("buffered submit refused")
	}
	if q.submit(func(context.Context) {}) {
		t.Fatalf("submit accepted with full buffer")
	}
	if got := q.dropped.Load(); got != 1 {
		t.Fatalf("dropped=%d", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.enqueue(ctx, func(context.Context) {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("enqueue on full buffer: %v", err)
	}

	close(release)
	q.close()
	if q.submit(func(context.Context) {}) {
		t.Fatalf("submit accepted after close")
	}
	if err := q.enqueue(context.Background(), func(context.Context) {}); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("enqueue after close: %v", err)
	}
}
