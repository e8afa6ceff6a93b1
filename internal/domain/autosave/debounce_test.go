package autosave

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer[string](20 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Fire("k", func() { calls.Add(1) })
	}
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestDebouncerLastFireWins(t *testing.T) {
	d := NewDebouncer[int](15 * time.Millisecond)
	var got atomic.Int32
	for i := 1; i <= 5; i++ {
		v := int32(i)
		d.Fire(7, func() { got.Store(v) })
	}
	time.Sleep(80 * time.Millisecond)
	if got.Load() != 5 {
		t.Fatalf("expected the last fire's payload, got %d", got.Load())
	}
}

func TestDebouncerIndependentKeys(t *testing.T) {
	d := NewDebouncer[int](10 * time.Millisecond)
	var calls atomic.Int32
	d.Fire(1, func() { calls.Add(1) })
	d.Fire(2, func() { calls.Add(1) })
	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer[string](10 * time.Millisecond)
	var calls atomic.Int32
	d.Fire("k", func() { calls.Add(1) })
	d.Cancel("k")
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("cancelled call still ran %d times", got)
	}
}

func TestDebouncerStopRejectsFurtherFires(t *testing.T) {
	d := NewDebouncer[string](5 * time.Millisecond)
	var calls atomic.Int32
	d.Fire("a", func() { calls.Add(1) })
	d.Stop()
	d.Fire("b", func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected 0 calls after Stop, got %d", got)
	}
	if d.Pending() != 0 {
		t.Fatal("pending timers survived Stop")
	}
}

func TestDebouncerGenerationsNeverReset(t *testing.T) {
	d := NewDebouncer[string](5 * time.Millisecond)
	var calls atomic.Int32
	d.Fire("k", func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatal("first callback did not run")
	}

	// The counter must survive the callback: if it restarted at zero, a
	// stale timer goroutine from the first epoch could match a fresh
	// generation, fire its old closure, and suppress the new timer.
	d.mu.Lock()
	after := d.gens["k"]
	d.mu.Unlock()
	if after != 1 {
		t.Fatalf("generation reset after callback: got %d, want 1", after)
	}

	d.Fire("k", func() { calls.Add(1) })
	d.mu.Lock()
	next := d.gens["k"]
	d.mu.Unlock()
	if next != 2 {
		t.Fatalf("generation not strictly increasing: got %d, want 2", next)
	}
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDebouncerResetExtendsWindow(t *testing.T) {
	d := NewDebouncer[string](40 * time.Millisecond)
	var calls atomic.Int32
	d.Fire("k", func() { calls.Add(1) })
	time.Sleep(25 * time.Millisecond)
	d.Fire("k", func() { calls.Add(1) })
	time.Sleep(25 * time.Millisecond)
	// First window would have elapsed by now; the second fire reset it.
	if got := calls.Load(); got != 0 {
		t.Fatalf("debounce fired early, %d calls", got)
	}
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 call, got %d", got)
	}
}
