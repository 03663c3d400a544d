package rptest

import (
	"testing"

	"rpflavor/internal/sim/mirror"
	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/roleplay/logic/emotes"
	"rpflavor/internal/sim/textpool"
)

// Harness drives an engine through its exported API against a mirror
// registry, with a manual millisecond clock.
//
// Every request the engine produces is also recorded in Log.
type Harness struct {
	T      *testing.T
	World  *mirror.Registry
	Engine *roleplay.Engine
	Now    int64
	Log    []roleplay.Request
}

func New(t *testing.T, cfg roleplay.Config, pools *textpool.Store, seed int64) *Harness {
	t.Helper()
	h := &Harness{T: t, World: mirror.New()}
	h.Engine = roleplay.New(cfg, pools, h.World, roleplay.WithSeed(seed), roleplay.WithDecisionLogger(h))
	return h
}

func (h *Harness) LogRequest(r roleplay.Request) { h.Log = append(h.Log, r) }

func (h *Harness) AddNPC(id roleplay.EntityID, entry uint32, pos mirror.Vec3) {
	h.T.Helper()
	if !h.World.UpsertNPC(mirror.NPCState{ID: id, Entry: entry, Pos: pos, Alive: true}) {
		h.T.Fatalf("npc %d already present", id)
	}
	h.Engine.OnNPCAdded(id)
}

func (h *Harness) UpdateNPC(n mirror.NPCState) {
	h.World.UpsertNPC(n)
}

func (h *Harness) RemoveNPC(id roleplay.EntityID) {
	h.World.RemoveNPC(id)
	h.Engine.OnNPCRemoved(id)
}

func (h *Harness) AddPlayer(id roleplay.EntityID, name, locale string, pos mirror.Vec3) {
	h.World.UpsertPlayer(mirror.PlayerState{ID: id, Name: name, Locale: locale, Pos: pos, Alive: true})
}

func (h *Harness) At(now int64) *Harness {
	h.Now = now
	return h
}

// Advance moves the clock forward by ms and ticks the engine once.
func (h *Harness) Advance(ms int64) []roleplay.Request {
	h.Now += ms
	return h.Engine.Tick(h.Now, ms)
}

// AdvanceBy ticks in steps of step ms until total ms have passed.
func (h *Harness) AdvanceBy(total, step int64) []roleplay.Request {
	var out []roleplay.Request
	for done := int64(0); done < total; done += step {
		out = append(out, h.Advance(step)...)
	}
	return out
}

func (h *Harness) Greet(npc, player roleplay.EntityID) []roleplay.Request {
	return h.Engine.OnGossipHello(h.Now, npc, player)
}

func (h *Harness) Gesture(player roleplay.EntityID, code emotes.Code, target roleplay.EntityID) []roleplay.Request {
	return h.Engine.OnPlayerEmote(h.Now, player, code, target)
}

// Speeches and Emotes split a request list by variant.
func Speeches(rs []roleplay.Request) []roleplay.Speech {
	var out []roleplay.Speech
	for _, r := range rs {
		if s, ok := r.(roleplay.Speech); ok {
			out = append(out, s)
		}
	}
	return out
}

func Emotes(rs []roleplay.Request) []roleplay.Emote {
	var out []roleplay.Emote
	for _, r := range rs {
		if e, ok := r.(roleplay.Emote); ok {
			out = append(out, e)
		}
	}
	return out
}

func ByCause(rs []roleplay.Request, c roleplay.Cause) []roleplay.Request {
	var out []roleplay.Request
	for _, r := range rs {
		if r.Header().Cause == c {
			out = append(out, r)
		}
	}
	return out
}

// QuietConfig is the default configuration with random extras switched off.
func QuietConfig() roleplay.Config {
	cfg := roleplay.DefaultConfig()
	cfg.Greeting.UseExtraEmote = false
	return cfg
}
