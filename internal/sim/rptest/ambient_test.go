package rptest

import (
	"testing"

	"rpflavor/internal/sim/mirror"
	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/roleplay/logic/emotes"
)

func ambientConfig() roleplay.Config {
	cfg := QuietConfig()
	cfg.Ambient.Enable = true
	cfg.Ambient.Chance = 100
	cfg.Ambient.Emotes = []emotes.Code{emotes.Sit}
	cfg.Ambient.IntervalMs = 15000
	cfg.Ambient.JitterMs = 1000
	return cfg
}

func TestAmbient_NoObserverReArmsAtBase(t *testing.T) {
	h := New(t, ambientConfig(), nil, 1)
	h.AddNPC(1, 100, mirror.Vec3{})
	if rem, ok := h.Engine.AmbientRemaining(1); !ok || rem != 1 {
		t.Fatalf("new npc should be armed at 1ms, got %d,%v", rem, ok)
	}
	if got := h.Advance(100); len(got) != 0 {
		t.Fatalf("nobody watching, got %v", got)
	}
	if rem, _ := h.Engine.AmbientRemaining(1); rem != 15000 {
		t.Fatalf("expected plain base re-arm, got %d", rem)
	}
}

func TestAmbient_FiresWithObserverAndJitters(t *testing.T) {
	h := New(t, ambientConfig(), nil, 9)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddPlayer(10, "Ann", "en", mirror.Vec3{10, 0, 0})

	fired := 0
	for i := 0; i < 50; i++ {
		rem, _ := h.Engine.AmbientRemaining(1)
		got := h.Advance(rem)
		em := Emotes(got)
		if len(em) != 1 || em[0].Code != emotes.Sit || em[0].Cause != roleplay.CauseAmbient {
			t.Fatalf("iteration %d: %v", i, got)
		}
		fired++
		next, _ := h.Engine.AmbientRemaining(1)
		if next < 14000 || next > 16000 {
			t.Fatalf("re-arm %d outside jitter band", next)
		}
	}
	if h.Engine.Stats().Requests["ambient"] != uint64(fired) {
		t.Fatalf("stats=%v", h.Engine.Stats().Requests)
	}
}

func TestAmbient_PartialTicksDoNotFire(t *testing.T) {
	h := New(t, ambientConfig(), nil, 1)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddPlayer(10, "Ann", "en", mirror.Vec3{1, 0, 0})
	h.Advance(1)
	if got := h.AdvanceBy(13000, 100); len(got) != 0 {
		t.Fatalf("timer cannot be due before 14000ms, got %v", got)
	}
}

func TestAmbient_ChanceZeroStillReArms(t *testing.T) {
	cfg := ambientConfig()
	cfg.Ambient.Chance = 0
	h := New(t, cfg, nil, 1)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddPlayer(10, "Ann", "en", mirror.Vec3{1, 0, 0})
	if got := h.Advance(10); len(got) != 0 {
		t.Fatalf("chance 0 fired: %v", got)
	}
	if rem, _ := h.Engine.AmbientRemaining(1); rem < 14000 || rem > 16000 {
		t.Fatalf("re-arm=%d", rem)
	}
}

func TestAmbient_FloorOnTinyInterval(t *testing.T) {
	cfg := ambientConfig()
	cfg.Ambient.IntervalMs = 200
	cfg.Ambient.JitterMs = 5000
	h := New(t, cfg, nil, 4)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddPlayer(10, "Ann", "en", mirror.Vec3{1, 0, 0})
	for i := 0; i < 30; i++ {
		rem, _ := h.Engine.AmbientRemaining(1)
		h.Advance(rem)
		if next, _ := h.Engine.AmbientRemaining(1); next < 1000 {
			t.Fatalf("re-arm %d below floor", next)
		}
	}
}

func TestAmbient_DisabledOrFilteredNotArmed(t *testing.T) {
	h := New(t, QuietConfig(), nil, 1)
	h.AddNPC(1, 100, mirror.Vec3{})
	if _, ok := h.Engine.AmbientRemaining(1); ok {
		t.Fatalf("ambient is off by default")
	}

	cfg := ambientConfig()
	cfg.Whitelist = []uint32{7}
	h = New(t, cfg, nil, 1)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddNPC(2, 7, mirror.Vec3{})
	if _, ok := h.Engine.AmbientRemaining(1); ok {
		t.Fatalf("npc outside the whitelist armed")
	}
	if _, ok := h.Engine.AmbientRemaining(2); !ok {
		t.Fatalf("whitelisted npc not armed")
	}
}

func TestAmbient_UpdateNPCSingle(t *testing.T) {
	h := New(t, ambientConfig(), nil, 1)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddNPC(2, 100, mirror.Vec3{})
	h.AddPlayer(10, "Ann", "en", mirror.Vec3{1, 0, 0})
	got := h.Engine.UpdateNPC(5, 2, 5)
	if len(got) != 1 || got[0].Header().NPC != 2 {
		t.Fatalf("UpdateNPC=%v", got)
	}
	if rem, _ := h.Engine.AmbientRemaining(1); rem != 1 {
		t.Fatalf("npc 1 should be untouched, remaining=%d", rem)
	}
}

func TestAmbient_FiresWhileMovingOrFighting(t *testing.T) {
	h := New(t, ambientConfig(), nil, 3)
	h.AddNPC(1, 100, mirror.Vec3{})
	h.AddPlayer(10, "Ann", "en", mirror.Vec3{10, 0, 0})
	h.UpdateNPC(mirror.NPCState{ID: 1, Entry: 100, Alive: true, Moving: true, InCombat: true})

	em := Emotes(h.Advance(1))
	if len(em) != 1 || em[0].Code != emotes.Sit {
		t.Fatalf("ambient gates on filter and observers only, got %v", em)
	}
	if next, _ := h.Engine.AmbientRemaining(1); next < 14000 || next > 16000 {
		t.Fatalf("re-arm %d outside jitter band", next)
	}
	if n := h.Engine.Stats().Denials["state"]; n != 0 {
		t.Fatalf("state denials=%d", n)
	}
}
