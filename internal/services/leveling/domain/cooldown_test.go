package domain

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTryAcceptEnforcesCooldownWindow(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	cooldown := time.Second

	if !gate.TryAccept("c-1", "m-1", base, cooldown) {
		t.Fatal("first contribution should be accepted")
	}
	if gate.TryAccept("c-1", "m-1", base.Add(500*time.Millisecond), cooldown) {
		t.Fatal("contribution inside the window should be rejected")
	}
	if !gate.TryAccept("c-1", "m-1", base.Add(time.Second), cooldown) {
		t.Fatal("contribution at exactly the window edge should be accepted")
	}
}

func TestTryAcceptRejectionLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 10 * time.Second

	gate.TryAccept("c-1", "m-1", base, cooldown)
	gate.TryAccept("c-1", "m-1", base.Add(9*time.Second), cooldown)

	// The rejected call at t=9s must not have refreshed the timestamp, so
	// t=10s clears the original window.
	if !gate.TryAccept("c-1", "m-1", base.Add(10*time.Second), cooldown) {
		t.Fatal("rejected attempt must not extend the cooldown window")
	}
}

func TestTryAcceptKeysAreIndependent(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	cooldown := time.Minute

	if !gate.TryAccept("c-1", "m-1", base, cooldown) {
		t.Fatal("first member should be accepted")
	}
	if !gate.TryAccept("c-1", "m-2", base, cooldown) {
		t.Fatal("other member in same community should be accepted")
	}
	if !gate.TryAccept("c-2", "m-1", base, cooldown) {
		t.Fatal("same member in other community should be accepted")
	}
}

func TestTryAcceptIsAtomicPerKey(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	const attempts = 64
	var wg sync.WaitGroup
	accepted := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted <- gate.TryAccept("c-1", "m-1", now, time.Minute)
		}()
	}
	wg.Wait()
	close(accepted)

	wins := 0
	for ok := range accepted {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one accepted contribution, got %d", wins)
	}
}

func TestForgetClearsCooldown(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	gate.TryAccept("c-1", "m-1", now, time.Minute)
	gate.Forget("c-1", "m-1")

	if !gate.TryAccept("c-1", "m-1", now, time.Minute) {
		t.Fatal("forgotten member should be accepted immediately")
	}
}

func TestSweepDropsOnlyStaleEntries(t *testing.T) {
	t.Parallel()

	gate := NewGate()
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		gate.TryAccept("c-1", fmt.Sprintf("m-%d", i), base, time.Minute)
	}
	gate.TryAccept("c-1", "fresh", base.Add(time.Hour), time.Minute)

	swept := gate.Sweep(base.Add(time.Hour), 30*time.Minute)
	if swept != 10 {
		t.Fatalf("expected 10 stale entries swept, got %d", swept)
	}

	// The fresh entry must still gate contributions.
	if gate.TryAccept("c-1", "fresh", base.Add(time.Hour), time.Minute) {
		t.Fatal("fresh entry should still be within its cooldown")
	}
}
