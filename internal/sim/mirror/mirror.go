package mirror

import (
	"math"
	"sort"

	"rpflavor/internal/sim/roleplay"
)

type Vec3 [3]float64

func (a Vec3) Dist(b Vec3) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

type NPCState struct {
	ID       roleplay.EntityID
	Entry    uint32
	Name     string
	MapID    uint32
	Pos      Vec3
	Alive    bool
	InCombat bool
	Moving   bool
}

type PlayerState struct {
	ID       roleplay.EntityID
	Name     string
	Locale   string
	MapID    uint32
	Pos      Vec3
	Alive    bool
	InCombat bool
}

// Registry is the server-side copy of the host's entities, kept current by
// ENTITY messages. It answers the engine's world queries.
type Registry struct {
	npcs    map[roleplay.EntityID]NPCState
	players map[roleplay.EntityID]PlayerState
}

func New() *Registry {
	return &Registry{
		npcs:    map[roleplay.EntityID]NPCState{},
		players: map[roleplay.EntityID]PlayerState{},
	}
}

// UpsertNPC stores n and reports whether it was not known before.
func (r *Registry) UpsertNPC(n NPCState) bool {
	_, existed := r.npcs[n.ID]
	r.npcs[n.ID] = n
	return !existed
}

func (r *Registry) RemoveNPC(id roleplay.EntityID) bool {
	if _, ok := r.npcs[id]; !ok {
		return false
	}
	delete(r.npcs, id)
	return true
}

func (r *Registry) UpsertPlayer(p PlayerState) bool {
	_, existed := r.players[p.ID]
	r.players[p.ID] = p
	return !existed
}

func (r *Registry) RemovePlayer(id roleplay.EntityID) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

func (r *Registry) NPCState(id roleplay.EntityID) (NPCState, bool) {
	n, ok := r.npcs[id]
	return n, ok
}

func (r *Registry) PlayerState(id roleplay.EntityID) (PlayerState, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *Registry) NPCIDs() []roleplay.EntityID {
	out := make([]roleplay.EntityID, 0, len(r.npcs))
	for id := range r.npcs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Counts() (npcs, players int) { return len(r.npcs), len(r.players) }

func (r *Registry) NPC(id roleplay.EntityID) (roleplay.NPC, bool) {
	n, ok := r.npcs[id]
	if !ok {
		return roleplay.NPC{}, false
	}
	return roleplay.NPC{ID: n.ID, Entry: n.Entry, Alive: n.Alive, InCombat: n.InCombat, Moving: n.Moving}, true
}

func (r *Registry) Player(id roleplay.EntityID) (roleplay.Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return roleplay.Player{}, false
	}
	return roleplay.Player{ID: p.ID, Name: p.Name, Locale: p.Locale, Alive: p.Alive, InCombat: p.InCombat}, true
}

func (r *Registry) ObserverInRange(npc roleplay.EntityID, min, max float64) bool {
	n, ok := r.npcs[npc]
	if !ok {
		return false
	}
	for _, p := range r.players {
		if !p.Alive || p.MapID != n.MapID {
			continue
		}
		d := p.Pos.Dist(n.Pos)
		if d >= min && d <= max {
			return true
		}
	}
	return false
}

// Distance is defined only between entities on the same map.
func (r *Registry) Distance(a, b roleplay.EntityID) (float64, bool) {
	am, ap, ok := r.locate(a)
	if !ok {
		return 0, false
	}
	bm, bp, ok := r.locate(b)
	if !ok || am != bm {
		return 0, false
	}
	return ap.Dist(bp), true
}

func (r *Registry) locate(id roleplay.EntityID) (uint32, Vec3, bool) {
	if p, ok := r.players[id]; ok {
		return p.MapID, p.Pos, true
	}
	if n, ok := r.npcs[id]; ok {
		return n.MapID, n.Pos, true
	}
	return 0, Vec3{}, false
}

// Reset forgets every entity.
func (r *Registry) Reset() []roleplay.EntityID {
	ids := r.NPCIDs()
	r.npcs = map[roleplay.EntityID]NPCState{}
	r.players = map[roleplay.EntityID]PlayerState{}
	return ids
}
