package vfs

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"
)

// worker drains a mutex-protected FIFO of requests on a single goroutine,
// signalled by a semaphore posted at enqueue time (spec.md §4.8 "Async
// worker", §5 "VFS async worker. Single thread draining the disk queue").
type worker struct {
	mu    sync.Mutex
	queue []*Request

	sem *semaphore.Weighted

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	run func(*Request)
}

func newWorker(run func(*Request)) *worker {
	w := &worker{
		sem:  semaphore.NewWeighted(math.MaxInt64),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		run:  run,
	}
	// Hold every permit up front so each Acquire in loop blocks until an
	// enqueue (or close) releases one.
	_ = w.sem.Acquire(context.Background(), math.MaxInt64)
	go w.loop()
	return w
}

// enqueue appends req to the FIFO and posts the semaphore, waking the
// worker. Within a single mount, requests complete in FIFO order since
// there is exactly one worker goroutine (testable property #8).
func (w *worker) enqueue(req *Request) {
	w.mu.Lock()
	w.queue = append(w.queue, req)
	w.mu.Unlock()
	w.sem.Release(1)
}

func (w *worker) loop() {
	defer close(w.done)
	ctx := context.Background()
	for {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return
		}
		select {
		case <-w.quit:
			return
		default:
		}

		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			continue
		}
		req := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		w.run(req)
	}
}

// close posts the semaphore once more and sets the quit flag, per spec.md
// §4.8 "Cancellation and shutdown": the worker observes quit, does not
// drain remaining queued requests, and its callbacks are not invoked.
func (w *worker) close() {
	w.quitOnce.Do(func() {
		close(w.quit)
		w.sem.Release(1)
	})
	<-w.done
}
