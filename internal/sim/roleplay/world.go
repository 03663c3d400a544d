package roleplay

// EntityID is the host's stable handle for an NPC or player.
type EntityID uint64

type NPC struct {
	ID       EntityID
	Entry    uint32 // type id, matched by the allow/deny lists
	Alive    bool
	InCombat bool
	Moving   bool
}

type Player struct {
	ID       EntityID
	Name     string
	Locale   string
	Alive    bool
	InCombat bool
}

// World is the host simulation as seen by the engine. All methods are
// called from the engine's goroutine only.
type World interface {
	NPC(id EntityID) (NPC, bool)
	Player(id EntityID) (Player, bool)
	// ObserverInRange reports whether any live player is within [min,max] of the NPC.
	ObserverInRange(npc EntityID, min, max float64) bool
	Distance(a, b EntityID) (float64, bool)
}

// idle is the state gate shared by every interaction.
func (n NPC) idle() bool {
	return n.Alive && !n.InCombat && !n.Moving
}
