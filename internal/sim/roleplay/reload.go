package roleplay

import (
	"sort"

	"rpflavor/internal/sim/textpool"
)

const (
	ReloadOK       = "reloaded"
	ReloadDisabled = "disabled"
)

type ReloadResult struct {
	Status         string         `json:"status"`
	PoolDigest     string         `json:"pool_digest,omitempty"`
	Lines          map[string]int `json:"lines,omitempty"`
	Categories     int            `json:"categories"`
	AmbientArmed   int            `json:"ambient_armed"`
	AmbientDropped int            `json:"ambient_dropped"`
}

// Reload swaps in a new configuration and content. Cooldowns and budgets
// survive; ambient timers follow the new enable flags. When the active
// configuration disables reloading nothing changes.
func (e *Engine) Reload(cfg Config, pools *textpool.Store) ReloadResult {
	if !e.ReloadAllowed() {
		return ReloadResult{Status: ReloadDisabled}
	}
	wasOn := e.ambientOn()
	e.apply(cfg, pools)

	res := ReloadResult{Status: ReloadOK, PoolDigest: e.pools.Digest(), Lines: map[string]int{}}
	for _, loc := range e.pools.Locales() {
		res.Lines[loc] = e.pools.Stats(loc).Lines
		res.Categories += len(e.pools.Categories(loc))
	}

	switch {
	case e.ambientOn():
		before := e.timers.Len()
		for _, id := range e.knownIDs() {
			e.armIfEligible(id)
		}
		res.AmbientArmed = e.timers.Len() - before
	case wasOn:
		for _, id := range e.timers.IDs() {
			e.timers.Forget(id)
			res.AmbientDropped++
		}
	}
	e.logger.Printf("reload: digest=%s categories=%d armed=%d dropped=%d",
		shortDigest(res.PoolDigest), res.Categories, res.AmbientArmed, res.AmbientDropped)
	return res
}

func (e *Engine) knownIDs() []EntityID {
	out := make([]EntityID, 0, len(e.known))
	for id := range e.known {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
