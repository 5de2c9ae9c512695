package session

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/obslog"
)

type job func(ctx context.Context)

// fifo runs jobs one at a time in submission order. The backlog grows
// instead of blocking the submitter, and nothing is ever dropped, so two
// results for the same player are never persisted concurrently.
type fifo struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []job
	closed  bool
	done    chan struct{}
}

func newFIFO() *fifo {
	f := &fifo{done: make(chan struct{})}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fifo) start() {
	go func() {
		defer close(f.done)
		for {
			f.mu.Lock()
			for len(f.pending) == 0 && !f.closed {
				f.cond.Wait()
			}
			if len(f.pending) == 0 {
				f.mu.Unlock()
				return
			}
			j := f.pending[0]
			f.pending[0] = nil
			f.pending = f.pending[1:]
			f.mu.Unlock()
			j(context.Background())
		}
	}()
}

// submit reports false once the queue is closed.
func (f *fifo) submit(j job) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.pending = append(f.pending, j)
	f.cond.Signal()
	return true
}

func (f *fifo) backlog() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// close runs what is already queued, then returns.
func (f *fifo) close() {
	f.mu.Lock()
	f.closed = true
	f.cond.Broadcast()
	f.mu.Unlock()
	<-f.done
}

// lossyQueue runs best-effort jobs in order on one goroutine. When the
// buffer is full the job is dropped and counted.
type lossyQueue struct {
	mu      sync.RWMutex
	closed  bool
	jobs    chan job
	dropped atomic.Int64
	done    chan struct{}
}

func newLossyQueue(buffer int) *lossyQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &lossyQueue{jobs: make(chan job, buffer), done: make(chan struct{})}
}

func (q *lossyQueue) start() {
	go func() {
		defer close(q.done)
		for j := range q.jobs {
			j(context.Background())
		}
	}()
}

func (q *lossyQueue) submit(j job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- j:
		return true
	default:
		n := q.dropped.Add(1)
		obslog.L().Warn("session_queue_full", zap.Int64("dropped", n))
		return false
	}
}

// enqueue waits for buffer space; used for barriers only.
func (q *lossyQueue) enqueue(ctx context.Context, j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrEngineStopped
	}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *lossyQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}
