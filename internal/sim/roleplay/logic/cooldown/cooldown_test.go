package cooldown

import "testing"

func TestReady_GreetingScenario(t *testing.T) {
	tb := New()
	if !tb.Ready(1, 100, 5000, 0) {
		t.Fatalf("first greeting at t=0 should be ready")
	}
	if tb.Ready(1, 100, 5000, 4999) {
		t.Fatalf("t=4999 should still be on cooldown")
	}
	if !tb.Ready(1, 100, 5000, 5000) {
		t.Fatalf("t=5000 should be ready")
	}
	if last, ok := tb.Last(1, 100); !ok || last != 5000 {
		t.Fatalf("last=%d ok=%v want 5000", last, ok)
	}
}

func TestReady_FirstCallAtSmallClockIsReady(t *testing.T) {
	tb := New()
	if !tb.Ready(1, 2, 60_000, 10) {
		t.Fatalf("a pair that never fired must be ready even when now < cooldown")
	}
}

func TestReady_ConsecutiveReadySeparatedByCooldown(t *testing.T) {
	tb := New()
	const cd = 3000
	var prev int64 = -1
	for now := int64(0); now < 20_000; now += 250 {
		if !tb.Ready(9, 9, cd, now) {
			continue
		}
		if prev >= 0 && now-prev < cd {
			t.Fatalf("ready at %d only %dms after %d", now, now-prev, prev)
		}
		prev = now
	}
}

func TestReady_CounterpartsIndependent(t *testing.T) {
	tb := New()
	if !tb.Ready(1, 10, 5000, 0) || !tb.Ready(1, 11, 5000, 1) {
		t.Fatalf("different counterparts should not share a cooldown")
	}
	if tb.Pairs() != 2 || tb.Len() != 1 {
		t.Fatalf("pairs=%d len=%d", tb.Pairs(), tb.Len())
	}
	tb.Forget(1)
	if _, ok := tb.Last(1, 10); ok || tb.Len() != 0 {
		t.Fatalf("forget should drop all pairs for the npc")
	}
}
