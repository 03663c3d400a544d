package cooldown

// Table tracks when an NPC last fired an interaction toward each counterpart.
// A missing entry means the pair never fired.
type Table struct {
	last map[uint64]map[uint64]int64
}

func New() *Table {
	return &Table{last: map[uint64]map[uint64]int64{}}
}

// Ready reports whether the pair is off cooldown and, when it is, stamps nowMs as the
// new last-fired time. Check and stamp are one step: do not call it for dry runs.
func (t *Table) Ready(npc, counterpart uint64, cooldownMs int64, nowMs int64) bool {
	inner := t.last[npc]
	if last, ok := inner[counterpart]; ok && nowMs-last < cooldownMs {
		return false
	}
	if inner == nil {
		inner = map[uint64]int64{}
		t.last[npc] = inner
	}
	inner[counterpart] = nowMs
	return true
}

func (t *Table) Last(npc, counterpart uint64) (int64, bool) {
	v, ok := t.last[npc][counterpart]
	return v, ok
}

// Forget drops every pair owned by npc.
func (t *Table) Forget(npc uint64) {
	delete(t.last, npc)
}

// Len is the number of NPCs with at least one entry.
func (t *Table) Len() int { return len(t.last) }

func (t *Table) Pairs() int {
	n := 0
	for _, inner := range t.last {
		n += len(inner)
	}
	return n
}

func (t *Table) Has(npc uint64) bool {
	_, ok := t.last[npc]
	return ok
}
