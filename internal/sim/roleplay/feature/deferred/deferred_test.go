package deferred

import (
	"testing"

	"rpflavor/internal/sim/roleplay/logic/emotes"
)

func TestQueue_DueOrder(t *testing.T) {
	q := NewQueue()
	q.Schedule(2, 10, emotes.Wave, 1000, 300)
	q.Schedule(1, 10, emotes.Bow, 1000, 100)
	q.Schedule(1, 11, emotes.Dance, 1000, 300)
	if got := q.Due(1099); len(got) != 0 {
		t.Fatalf("nothing due yet, got %v", got)
	}
	got := q.Due(1100)
	if len(got) != 1 || got[0].Code != emotes.Bow {
		t.Fatalf("due@1100=%v", got)
	}
	got = q.Due(5000)
	if len(got) != 2 || got[0].NPC != 2 || got[1].NPC != 1 {
		t.Fatalf("same due time must keep schedule order: %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("len=%d", q.Len())
	}
}

func TestQueue_CancelOnRemoval(t *testing.T) {
	q := NewQueue()
	q.Schedule(7, 1, emotes.Cheer, 0, 200)
	q.Schedule(7, 2, emotes.Cheer, 0, 250)
	q.Schedule(8, 1, emotes.Cheer, 0, 200)
	if n := q.Cancel(7); n != 2 {
		t.Fatalf("cancelled %d", n)
	}
	if q.Pending(7) != 0 || q.Len() != 1 {
		t.Fatalf("pending=%d len=%d", q.Pending(7), q.Len())
	}
	got := q.Due(1000)
	if len(got) != 1 || got[0].NPC != 8 {
		t.Fatalf("due=%v", got)
	}
}

func TestQueue_DueForOneNPC(t *testing.T) {
	q := NewQueue()
	q.Schedule(1, 10, emotes.Wave, 0, 200)
	q.Schedule(1, 11, emotes.Bow, 0, 100)
	q.Schedule(1, 12, emotes.Dance, 0, 900)
	q.Schedule(2, 10, emotes.Cheer, 0, 100)
	got := q.DueFor(1, 500)
	if len(got) != 2 || got[0].Code != emotes.Bow || got[1].Code != emotes.Wave {
		t.Fatalf("DueFor=%v", got)
	}
	if q.Pending(1) != 1 || q.Pending(2) != 1 || q.Len() != 2 {
		t.Fatalf("pending1=%d pending2=%d len=%d", q.Pending(1), q.Pending(2), q.Len())
	}
	if got := q.DueFor(3, 500); len(got) != 0 {
		t.Fatalf("unknown npc returned %v", got)
	}
}
