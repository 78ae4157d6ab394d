package mainloop

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/quire/internal/logging"
)

// SourceID identifies an installed timeout or idle callback. Zero is never a
// valid id.
type SourceID uint64

// Scheduler is the subset of Loop used by components that post work or install
// timers. Tabs and loaders depend on it rather than on *Loop.
type Scheduler interface {
	// Post queues fn to run on the loop goroutine. Safe from any goroutine.
	Post(fn func())
	// AddTimeout runs fn every interval until fn returns false or the source
	// is removed.
	AddTimeout(interval time.Duration, fn func() bool) SourceID
	// AddIdle runs fn once, on the next iteration.
	AddIdle(fn func()) SourceID
	// Remove uninstalls a source. It reports whether the source existed.
	Remove(id SourceID) bool
	// Now returns the loop's notion of the current time.
	Now() time.Time
}

type source struct {
	id       SourceID
	interval time.Duration
	due      time.Time
	idle     bool
	seq      uint64
	fn       func() bool
}

// PanicHandler receives panics recovered from callbacks.
type PanicHandler func(recovered any, stack []byte)

// Loop runs callbacks one at a time on a single goroutine.
type Loop struct {
	mu      sync.Mutex
	clock   Clock
	pending []func()
	sources map[SourceID]*source
	nextID  SourceID
	seq     uint64

	wake    chan struct{}
	running atomic.Bool

	panicHandler PanicHandler
	log          *logging.Logger

	dispatched atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used for timeouts.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithPanicHandler sets the handler for panics raised by callbacks.
func WithPanicHandler(h PanicHandler) Option {
	return func(l *Loop) {
		l.panicHandler = h
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a Loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:   realClock{},
		sources: make(map[SourceID]*source),
		wake:    make(chan struct{}, 1),
		log:     logging.NullLogger,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.panicHandler == nil {
		l.panicHandler = func(r any, stack []byte) {
			l.log.WithComponent("mainloop").Error("callback panic: %v\n%s", r, stack)
		}
	}
	return l
}

// Now returns the current time according to the loop clock.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	l.signal()
}

// AddTimeout installs a repeating timeout.
func (l *Loop) AddTimeout(interval time.Duration, fn func() bool) SourceID {
	if interval < 0 {
		interval = 0
	}
	l.mu.Lock()
	id := l.addLocked(&source{
		interval: interval,
		due:      l.clock.Now().Add(interval),
		fn:       fn,
	})
	l.mu.Unlock()
	l.signal()
	return id
}

// AddIdle installs a one-shot idle callback.
func (l *Loop) AddIdle(fn func()) SourceID {
	l.mu.Lock()
	id := l.addLocked(&source{
		idle: true,
		fn: func() bool {
			fn()
			return false
		},
	})
	l.mu.Unlock()
	l.signal()
	return id
}

func (l *Loop) addLocked(s *source) SourceID {
	l.nextID++
	l.seq++
	s.id = l.nextID
	s.seq = l.seq
	l.sources[s.id] = s
	return s.id
}

// Remove uninstalls a source.
func (l *Loop) Remove(id SourceID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sources[id]; !ok {
		return false
	}
	delete(l.sources, id)
	return true
}

// Pending reports whether callbacks or due sources are waiting.
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) > 0 {
		return true
	}
	now := l.clock.Now()
	for _, s := range l.sources {
		if s.idle || !now.Before(s.due) {
			return true
		}
	}
	return false
}

// Dispatched returns the number of callbacks run so far.
func (l *Loop) Dispatched() uint64 {
	return l.dispatched.Load()
}

// Iterate runs everything that is ready: posted callbacks first, then due
// timeouts in deadline order, then idle callbacks. Callbacks queued while
// iterating run on the next iteration. It reports whether anything ran.
func (l *Loop) Iterate() bool {
	l.mu.Lock()
	posted := l.pending
	l.pending = nil
	now := l.clock.Now()
	var timers, idles []*source
	for _, s := range l.sources {
		switch {
		case s.idle:
			idles = append(idles, s)
		case !now.Before(s.due):
			timers = append(timers, s)
		}
	}
	l.mu.Unlock()

	sort.Slice(timers, func(i, j int) bool {
		if timers[i].due.Equal(timers[j].due) {
			return timers[i].seq < timers[j].seq
		}
		return timers[i].due.Before(timers[j].due)
	})
	sort.Slice(idles, func(i, j int) bool { return idles[i].seq < idles[j].seq })

	ran := false
	for _, fn := range posted {
		l.invoke(func() bool { fn(); return false })
		ran = true
	}
	for _, s := range append(timers, idles...) {
		if !l.installed(s) {
			continue
		}
		keep := l.invoke(s.fn)
		ran = true

		l.mu.Lock()
		if cur, ok := l.sources[s.id]; ok && cur == s {
			if keep && !s.idle {
				s.due = l.clock.Now().Add(s.interval)
			} else {
				delete(l.sources, s.id)
			}
		}
		l.mu.Unlock()
	}
	return ran
}

func (l *Loop) installed(s *source) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.sources[s.id]
	return ok && cur == s
}

func (l *Loop) invoke(fn func() bool) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			keep = false
			l.panicHandler(r, debug.Stack())
		}
	}()
	l.dispatched.Add(1)
	return fn()
}

// nextWait returns how long until the earliest timeout, or -1 when none is
// installed.
func (l *Loop) nextWait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) > 0 {
		return 0
	}
	wait := time.Duration(-1)
	now := l.clock.Now()
	for _, s := range l.sources {
		if s.idle {
			return 0
		}
		d := s.due.Sub(now)
		if d < 0 {
			d = 0
		}
		if wait < 0 || d < wait {
			wait = d
		}
	}
	return wait
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run dispatches callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	for {
		l.Iterate()
		if err := l.block(ctx); err != nil {
			return err
		}
	}
}

// RunUntil iterates until cond returns true or ctx is done. It is used by
// command-line flows and tests that wait for asynchronous completions.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	for {
		l.Iterate()
		if cond() {
			return nil
		}
		if err := l.block(ctx); err != nil {
			if cond() {
				return nil
			}
			return ErrConditionTimeout
		}
	}
}

// block waits for a post, the next deadline or ctx cancellation.
func (l *Loop) block(ctx context.Context) error {
	wait := l.nextWait()
	if wait == 0 {
		return ctx.Err()
	}

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-l.wake:
	case <-timeout:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
