package ambient

import (
	"math/rand"
	"testing"
)

func TestScheduler_Countdown(t *testing.T) {
	s := NewScheduler()
	if s.Advance(1, 100) {
		t.Fatalf("unscheduled id must never be due")
	}
	s.Arm(1, 250)
	if s.Advance(1, 100) {
		t.Fatalf("150ms remain")
	}
	if rem, _ := s.Remaining(1); rem != 150 {
		t.Fatalf("remaining=%d", rem)
	}
	if !s.Advance(1, 200) {
		t.Fatalf("expected due")
	}
	if rem, _ := s.Remaining(1); rem != 0 {
		t.Fatalf("due timer must clamp to 0, got %d", rem)
	}
	s.Forget(1)
	if _, ok := s.Remaining(1); ok || s.Len() != 0 {
		t.Fatalf("forget left state behind")
	}
}

func TestScheduler_IDsSorted(t *testing.T) {
	s := NewScheduler()
	for _, id := range []uint64{9, 3, 5} {
		s.Arm(id, FirstDueMs)
	}
	ids := s.IDs()
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 5 || ids[2] != 9 {
		t.Fatalf("ids=%v", ids)
	}
}

func TestNextInterval_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const base, jitter = 15000, 1000
	sawLow, sawHigh := false, false
	for i := 0; i < 20000; i++ {
		v := NextInterval(rng, base, jitter)
		if v < base-jitter || v > base+jitter {
			t.Fatalf("interval %d outside [%d,%d]", v, base-jitter, base+jitter)
		}
		sawLow = sawLow || v == base-jitter
		sawHigh = sawHigh || v == base+jitter
	}
	if !sawLow || !sawHigh {
		t.Fatalf("jitter endpoints should be reachable (low=%v high=%v)", sawLow, sawHigh)
	}
}

func TestNextInterval_Floor(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		if v := NextInterval(rng, 500, 2000); v < MinIntervalMs {
			t.Fatalf("interval %d below floor", v)
		}
	}
	if v := NextInterval(rng, 0, 0); v != MinIntervalMs {
		t.Fatalf("zero base should floor, got %d", v)
	}
	if BaseInterval(10) != MinIntervalMs || BaseInterval(15000) != 15000 {
		t.Fatalf("BaseInterval floor mismatch")
	}
}

func TestRoll_Edges(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		if Roll(rng, 0) {
			t.Fatalf("0%% fired")
		}
		if !Roll(rng, 100) {
			t.Fatalf("100%% missed")
		}
	}
}
