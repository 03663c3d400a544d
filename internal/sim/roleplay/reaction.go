package roleplay

import (
	"rpflavor/internal/sim/roleplay/logic/emotes"
)

// OnPlayerEmote handles a player performing a gesture at a target. A
// successful reaction is queued and mirrored back by a later Tick once a
// short random delay has passed; nothing is returned immediately.
func (e *Engine) OnPlayerEmote(now int64, playerID EntityID, gesture emotes.Code, target EntityID) []Request {
	if !e.cfg.Enable || !e.cfg.React.Enable {
		return e.deny(GateDisabled)
	}
	player, ok := e.world.Player(playerID)
	if !ok {
		return e.deny(GateUnknown)
	}
	if player.InCombat {
		return e.deny(GateState)
	}
	if !emotes.Contains(e.cfg.React.Supported, gesture) {
		return e.deny(GateGesture)
	}
	if target == 0 {
		return e.deny(GateUnknown)
	}
	npc, ok := e.world.NPC(target)
	if !ok {
		return e.deny(GateUnknown)
	}
	if !npc.idle() {
		return e.deny(GateState)
	}
	if !e.filter.Allowed(npc.Entry) {
		return e.deny(GateFilter)
	}
	if d, ok := e.world.Distance(playerID, target); !ok || d > e.cfg.React.RangeMax {
		return e.deny(GateRange)
	}
	if !e.react.TryConsume(uint64(target), e.cfg.ReactBudgetPerMinute, now) {
		return e.deny(GateBudget)
	}
	if !e.reactCD.Ready(uint64(target), uint64(playerID), e.cfg.React.CooldownMs, now) {
		return e.deny(GateCooldown)
	}
	e.pending.Schedule(uint64(target), uint64(playerID), gesture, now, e.reactionDelay())
	return nil
}

func (e *Engine) reactionDelay() int64 {
	lo, hi := e.cfg.React.DelayMinMs, e.cfg.React.DelayMaxMs
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		return lo
	}
	return lo + e.rng.Int63n(hi-lo+1)
}
