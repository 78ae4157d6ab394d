package mainloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLoop() (*Loop, *FakeClock) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(WithClock(clock)), clock
}

func TestLoop_PostRunsInOrder(t *testing.T) {
	loop, _ := newTestLoop()

	var got []int
	for i := 0; i < 3; i++ {
		i := i
		loop.Post(func() { got = append(got, i) })
	}

	if !loop.Iterate() {
		t.Fatal("Iterate() = false, want true")
	}
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("callbacks ran as %v, want [0 1 2]", got)
	}
	if loop.Iterate() {
		t.Error("second Iterate() ran something, want nothing pending")
	}
}

func TestLoop_PostFromCallbackRunsNextIteration(t *testing.T) {
	loop, _ := newTestLoop()

	var ran []string
	loop.Post(func() {
		ran = append(ran, "outer")
		loop.Post(func() { ran = append(ran, "inner") })
	})

	loop.Iterate()
	if len(ran) != 1 {
		t.Fatalf("after first Iterate ran = %v, want [outer]", ran)
	}
	loop.Iterate()
	if len(ran) != 2 || ran[1] != "inner" {
		t.Errorf("after second Iterate ran = %v, want [outer inner]", ran)
	}
}

func TestLoop_TimeoutRepeatsUntilFalse(t *testing.T) {
	loop, clock := newTestLoop()

	count := 0
	id := loop.AddTimeout(time.Minute, func() bool {
		count++
		return count < 2
	})
	if id == 0 {
		t.Fatal("AddTimeout returned zero id")
	}

	loop.Iterate()
	if count != 0 {
		t.Fatalf("timeout fired early, count = %d", count)
	}

	clock.Advance(time.Minute)
	loop.Iterate()
	if count != 1 {
		t.Fatalf("count = %d after first interval, want 1", count)
	}

	clock.Advance(time.Minute)
	loop.Iterate()
	if count != 2 {
		t.Fatalf("count = %d after second interval, want 2", count)
	}

	clock.Advance(time.Minute)
	loop.Iterate()
	if count != 2 {
		t.Errorf("timeout fired after returning false, count = %d", count)
	}
	if loop.Remove(id) {
		t.Error("Remove() = true for a consumed source")
	}
}

func TestLoop_RemoveCancelsTimeout(t *testing.T) {
	loop, clock := newTestLoop()

	fired := false
	id := loop.AddTimeout(time.Second, func() bool {
		fired = true
		return true
	})
	if !loop.Remove(id) {
		t.Fatal("Remove() = false for installed source")
	}

	clock.Advance(time.Hour)
	loop.Iterate()
	if fired {
		t.Error("removed timeout fired")
	}
}

func TestLoop_CallbackRemovingAnotherSource(t *testing.T) {
	loop, clock := newTestLoop()

	var second SourceID
	secondFired := false
	loop.AddTimeout(time.Second, func() bool {
		loop.Remove(second)
		return false
	})
	second = loop.AddTimeout(time.Second, func() bool {
		secondFired = true
		return false
	})

	clock.Advance(time.Second)
	loop.Iterate()
	if secondFired {
		t.Error("source removed by an earlier callback still fired")
	}
}

func TestLoop_IdleRunsOnce(t *testing.T) {
	loop, _ := newTestLoop()

	count := 0
	loop.AddIdle(func() { count++ })
	loop.Iterate()
	loop.Iterate()

	if count != 1 {
		t.Errorf("idle ran %d times, want 1", count)
	}
}

func TestLoop_PanicIsRecovered(t *testing.T) {
	var recovered atomic.Value
	loop := New(WithPanicHandler(func(r any, _ []byte) { recovered.Store(r) }))

	after := false
	loop.Post(func() { panic("boom") })
	loop.Post(func() { after = true })
	loop.Iterate()

	if recovered.Load() != "boom" {
		t.Errorf("recovered = %v, want boom", recovered.Load())
	}
	if !after {
		t.Error("callback after panic did not run")
	}
}

func TestLoop_RunUntilWaitsForPost(t *testing.T) {
	loop := New()

	var done atomic.Bool
	go func() {
		time.Sleep(10 * time.Millisecond)
		loop.Post(func() { done.Store(true) })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.RunUntil(ctx, done.Load); err != nil {
		t.Fatalf("RunUntil() error = %v", err)
	}
}

func TestLoop_RunUntilTimesOut(t *testing.T) {
	loop := New()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := loop.RunUntil(ctx, func() bool { return false })
	if err != ErrConditionTimeout {
		t.Errorf("RunUntil() error = %v, want ErrConditionTimeout", err)
	}
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	loop := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	ran := make(chan struct{})
	loop.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted callback did not run")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
