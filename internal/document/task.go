package document

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/quire/internal/mainloop"
)

// NotifyFunc receives progress (completed == false) and exactly one
// completion (completed == true) on the loop goroutine.
type NotifyFunc func(completed bool, err error)

// task is the single-use asynchronous operation shared by Loader and Saver.
type task struct {
	name  string
	sched mainloop.Scheduler

	used atomic.Bool

	mu         sync.Mutex
	cancel     context.CancelFunc
	cancelled  bool
	completing bool

	done  atomic.Int64
	total atomic.Int64

	notify   NotifyFunc
	finished bool
}

// start marks the task used and derives its cancellable context. A second
// start is a programming error.
func (t *task) start(ctx context.Context, notify NotifyFunc) context.Context {
	if !t.used.CompareAndSwap(false, true) {
		panic("document: " + t.name + " may only be started once")
	}
	if notify == nil {
		notify = func(bool, error) {}
	}
	t.notify = notify

	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	return ctx
}

// Cancel requests cancellation. It reports false when the operation has not
// started or is already completing.
func (t *task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil || t.completing || t.cancelled {
		return false
	}
	t.cancelled = true
	t.cancel()
	return true
}

// Cancelled reports whether Cancel was accepted.
func (t *task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// progress records n more bytes processed and posts a progress notification.
// Called from the worker goroutine.
func (t *task) progress(n int) {
	t.done.Add(int64(n))
	t.sched.Post(func() {
		if !t.finished {
			t.notify(false, nil)
		}
	})
}

// complete posts the completion. apply runs on the loop goroutine before the
// notification and may turn a success into a failure.
func (t *task) complete(err error, apply func(error) error) {
	t.mu.Lock()
	t.completing = true
	cancelled := t.cancelled
	cancel := t.cancel
	t.mu.Unlock()

	if cancelled && err == nil {
		err = newError(CodeCancelled, "%s cancelled", t.name)
	}

	t.sched.Post(func() {
		if t.finished {
			return
		}
		t.finished = true
		if apply != nil {
			err = apply(err)
		}
		if cancel != nil {
			cancel()
		}
		t.notify(true, err)
	})
}

// BytesDone returns the bytes processed so far. It never decreases.
func (t *task) BytesDone() int64 { return t.done.Load() }

// TotalBytes returns the operation size, or 0 while unknown.
func (t *task) TotalBytes() int64 { return t.total.Load() }
