package ambient

import (
	"math/rand"
	"sort"
)

// MinIntervalMs floors every re-arm.
const MinIntervalMs int64 = 1000

// FirstDueMs arms a newly added NPC so it is evaluated on the next tick.
const FirstDueMs int64 = 1

// Scheduler keeps one countdown per NPC. No entry means not scheduled.
type Scheduler struct {
	remaining map[uint64]int64
}

func NewScheduler() *Scheduler {
	return &Scheduler{remaining: map[uint64]int64{}}
}

func (s *Scheduler) Arm(id uint64, ms int64) {
	if ms < 0 {
		ms = 0
	}
	s.remaining[id] = ms
}

// Advance subtracts diff from id's countdown and reports whether it is due.
// A due timer stays at zero until re-armed. Unscheduled ids are never due.
func (s *Scheduler) Advance(id uint64, diff int64) bool {
	rem, ok := s.remaining[id]
	if !ok {
		return false
	}
	if diff < 0 {
		diff = 0
	}
	rem -= diff
	if rem > 0 {
		s.remaining[id] = rem
		return false
	}
	s.remaining[id] = 0
	return true
}

func (s *Scheduler) Remaining(id uint64) (int64, bool) {
	rem, ok := s.remaining[id]
	return rem, ok
}

func (s *Scheduler) Forget(id uint64) { delete(s.remaining, id) }

func (s *Scheduler) Len() int { return len(s.remaining) }

// IDs returns scheduled ids in ascending order so ticks are deterministic.
func (s *Scheduler) IDs() []uint64 {
	out := make([]uint64, 0, len(s.remaining))
	for id := range s.remaining {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BaseInterval is the plain re-arm used when nobody is watching.
func BaseInterval(base int64) int64 {
	if base < MinIntervalMs {
		return MinIntervalMs
	}
	return base
}

// NextInterval returns base plus a uniform draw from [-jitter, +jitter], floored.
func NextInterval(rng *rand.Rand, base, jitter int64) int64 {
	next := base
	if jitter > 0 {
		next += rng.Int63n(2*jitter+1) - jitter
	}
	if next < MinIntervalMs {
		return MinIntervalMs
	}
	return next
}

// Roll reports success for a percentage chance. 0 never fires, 100 always does.
func Roll(rng *rand.Rand, pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return rng.Intn(100) < pct
}
