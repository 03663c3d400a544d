package roleplay

import (
	"rpflavor/internal/sim/roleplay/feature/ambient"
	"rpflavor/internal/sim/roleplay/feature/deferred"
)

// Tick advances every ambient timer by diffMs and releases reactions whose
// delay has elapsed.
func (e *Engine) Tick(now int64, diffMs int64) []Request {
	out := e.release(now, e.pending.Due(now), nil)
	if !e.ambientOn() {
		return out
	}
	for _, id := range e.timers.IDs() {
		out = e.updateNPC(now, EntityID(id), diffMs, out)
	}
	return out
}

// UpdateNPC advances a single NPC's ambient timer and releases that NPC's
// due reactions, for hosts that update creatures one at a time.
func (e *Engine) UpdateNPC(now int64, id EntityID, diffMs int64) []Request {
	out := e.release(now, e.pending.DueFor(uint64(id), now), nil)
	if !e.ambientOn() {
		return out
	}
	return e.updateNPC(now, id, diffMs, out)
}

func (e *Engine) updateNPC(now int64, id EntityID, diffMs int64, out []Request) []Request {
	k := uint64(id)
	if !e.timers.Advance(k, diffMs) {
		return out
	}
	a := e.cfg.Ambient
	npc, ok := e.world.NPC(id)
	switch {
	case !ok:
		e.denials[GateUnknown]++
		e.timers.Arm(k, ambient.BaseInterval(a.IntervalMs))
		return out
	case !e.filter.Allowed(npc.Entry):
		e.denials[GateFilter]++
		e.timers.Arm(k, ambient.BaseInterval(a.IntervalMs))
		return out
	case !e.world.ObserverInRange(id, a.RangeMin, a.RangeMax):
		e.denials[GateObserver]++
		e.timers.Arm(k, ambient.BaseInterval(a.IntervalMs))
		return out
	}

	if len(a.Emotes) > 0 && e.roll(a.Chance) {
		code := a.Emotes[e.rng.Intn(len(a.Emotes))]
		out = e.emit(out, Emote{Meta: e.meta(id, CauseAmbient, now), Code: code})
	} else {
		e.denials[GateChance]++
	}
	e.timers.Arm(k, ambient.NextInterval(e.rng, a.IntervalMs, a.JitterMs))
	return out
}

func (e *Engine) release(now int64, due []deferred.Task, out []Request) []Request {
	for _, t := range due {
		id := EntityID(t.NPC)
		npc, ok := e.world.NPC(id)
		if !ok || !e.Known(id) || !npc.Alive {
			e.denials[GateStale]++
			continue
		}
		out = e.emit(out, Emote{
			Meta:   e.meta(id, CauseReaction, now),
			Code:   t.Code,
			Target: EntityID(t.Player),
		})
	}
	return out
}
