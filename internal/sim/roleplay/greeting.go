package roleplay

import (
	"rpflavor/internal/sim/roleplay/feature/ambient"
	"rpflavor/internal/sim/roleplay/feature/selector"
	"rpflavor/internal/sim/textpool"
)

// OnGossipHello handles a player opening an interaction with an NPC. The
// host's own interaction flow always continues; the returned requests are
// flavor on top of it.
func (e *Engine) OnGossipHello(now int64, npcID, playerID EntityID) []Request {
	if !e.cfg.Enable {
		return e.deny(GateDisabled)
	}
	npc, ok := e.world.NPC(npcID)
	if !ok {
		return e.deny(GateUnknown)
	}
	player, ok := e.world.Player(playerID)
	if !ok {
		return e.deny(GateUnknown)
	}
	if !npc.idle() {
		return e.deny(GateState)
	}
	if !e.filter.Allowed(npc.Entry) {
		return e.deny(GateFilter)
	}
	// Budget is spent before the per-pair cooldown is looked at.
	if !e.gossip.TryConsume(uint64(npcID), e.cfg.GossipBudgetPerMinute, now) {
		return e.deny(GateBudget)
	}
	if !e.greetCD.Ready(uint64(npcID), uint64(playerID), e.cfg.Greeting.CooldownMs, now) {
		return e.deny(GateCooldown)
	}

	var out []Request
	m := e.meta(npcID, CauseGreeting, now)
	out = e.emit(out, Emote{Meta: m, Code: e.cfg.Greeting.Gesture, Target: playerID})

	locale := player.Locale
	if locale == "" {
		locale = e.cfg.PrimaryLocale
	}
	said := false
	if e.cfg.TextPool.Enable {
		if ln, ok := selector.PickLocale(e.rng, e.pools, e.cfg.TextPool.Category, locale, e.cfg.PrimaryLocale); ok {
			if s, ok := speech(m, ln.Kind, selector.ReplaceName(ln.Text, player.Name), playerID); ok {
				out = e.emit(out, s)
				said = true
			}
		}
	}
	if !said {
		if phrase, ok := e.fallback.Pick(e.rng, locale); ok {
			kind := textpool.Say
			if e.roll(e.cfg.Greeting.YellChance) {
				kind = textpool.Yell
			}
			if s, ok := speech(m, kind, selector.ReplaceName(phrase, player.Name), playerID); ok {
				out = e.emit(out, s)
			}
		}
	}

	g := e.cfg.Greeting
	if g.UseExtraEmote && len(g.ExtraEmotes) > 0 && e.roll(g.ExtraEmoteChance) {
		code := g.ExtraEmotes[e.rng.Intn(len(g.ExtraEmotes))]
		out = e.emit(out, Emote{Meta: e.meta(npcID, CauseGreetingExtra, now), Code: code, Target: playerID})
	}
	return out
}

func (e *Engine) roll(pct int) bool { return ambient.Roll(e.rng, pct) }
