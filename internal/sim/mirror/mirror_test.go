package mirror

import (
	"testing"

	"rpflavor/internal/sim/roleplay"
)

var _ roleplay.World = (*Registry)(nil)

func TestRegistry_ObserverBand(t *testing.T) {
	r := New()
	r.UpsertNPC(NPCState{ID: 1, Entry: 100, Alive: true})
	if r.ObserverInRange(1, 0, 25) {
		t.Fatalf("no players yet")
	}
	r.UpsertPlayer(PlayerState{ID: 10, Alive: true, Pos: Vec3{30, 0, 0}})
	if r.ObserverInRange(1, 0, 25) {
		t.Fatalf("player at 30 is outside max 25")
	}
	r.UpsertPlayer(PlayerState{ID: 11, Alive: false, Pos: Vec3{3, 4, 0}})
	if r.ObserverInRange(1, 0, 25) {
		t.Fatalf("dead player must not count")
	}
	r.UpsertPlayer(PlayerState{ID: 12, Alive: true, Pos: Vec3{3, 4, 0}})
	if !r.ObserverInRange(1, 0, 25) {
		t.Fatalf("player at 5 should observe")
	}
	if r.ObserverInRange(1, 6, 25) {
		t.Fatalf("player at 5 is inside min 6")
	}
	r.UpsertPlayer(PlayerState{ID: 12, Alive: true, MapID: 2, Pos: Vec3{3, 4, 0}})
	if r.ObserverInRange(1, 0, 25) {
		t.Fatalf("other map must not count")
	}
}

func TestRegistry_Distance(t *testing.T) {
	r := New()
	if !r.UpsertNPC(NPCState{ID: 1, Pos: Vec3{0, 0, 0}}) {
		t.Fatalf("first upsert should report added")
	}
	if r.UpsertNPC(NPCState{ID: 1, Pos: Vec3{0, 0, 0}, Alive: true}) {
		t.Fatalf("second upsert is an update")
	}
	r.UpsertPlayer(PlayerState{ID: 2, Pos: Vec3{0, 3, 4}})
	d, ok := r.Distance(2, 1)
	if !ok || d != 5 {
		t.Fatalf("Distance=%v,%v", d, ok)
	}
	if _, ok := r.Distance(2, 99); ok {
		t.Fatalf("unknown entity must not have a distance")
	}
	if got := r.Reset(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("Reset=%v", got)
	}
	if n, p := r.Counts(); n != 0 || p != 0 {
		t.Fatalf("counts after reset: %d %d", n, p)
	}
}
