package deferred

import (
	"sort"

	"rpflavor/internal/sim/roleplay/logic/emotes"
)

// Task is a pending emote owned by one NPC.
type Task struct {
	Seq    uint64
	NPC    uint64
	Player uint64
	DueMs  int64
	Code   emotes.Code
}

// Queue holds delayed tasks keyed by NPC id so removal can cancel them.
type Queue struct {
	seq   uint64
	byNPC map[uint64][]Task
	n     int
}

func NewQueue() *Queue {
	return &Queue{byNPC: map[uint64][]Task{}}
}

// Schedule enqueues a task due at nowMs+delayMs.
func (q *Queue) Schedule(npc, player uint64, code emotes.Code, nowMs, delayMs int64) Task {
	if delayMs < 0 {
		delayMs = 0
	}
	q.seq++
	t := Task{Seq: q.seq, NPC: npc, Player: player, DueMs: nowMs + delayMs, Code: code}
	q.byNPC[npc] = append(q.byNPC[npc], t)
	q.n++
	return t
}

// Cancel drops every pending task for npc and returns how many were dropped.
func (q *Queue) Cancel(npc uint64) int {
	n := len(q.byNPC[npc])
	delete(q.byNPC, npc)
	q.n -= n
	return n
}

// Due removes and returns tasks with DueMs <= nowMs, ordered by due time then schedule order.
func (q *Queue) Due(nowMs int64) []Task {
	if q.n == 0 {
		return nil
	}
	var out []Task
	for npc := range q.byNPC {
		out = q.take(npc, nowMs, out)
	}
	sortTasks(out)
	return out
}

// DueFor is Due restricted to one NPC.
func (q *Queue) DueFor(npc uint64, nowMs int64) []Task {
	out := q.take(npc, nowMs, nil)
	sortTasks(out)
	return out
}

func (q *Queue) take(npc uint64, nowMs int64, out []Task) []Task {
	tasks := q.byNPC[npc]
	keep := tasks[:0]
	for _, t := range tasks {
		if t.DueMs <= nowMs {
			out = append(out, t)
			q.n--
		} else {
			keep = append(keep, t)
		}
	}
	if len(keep) == 0 {
		delete(q.byNPC, npc)
	} else {
		q.byNPC[npc] = keep
	}
	return out
}

func sortTasks(ts []Task) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].DueMs != ts[j].DueMs {
			return ts[i].DueMs < ts[j].DueMs
		}
		return ts[i].Seq < ts[j].Seq
	})
}

func (q *Queue) Pending(npc uint64) int { return len(q.byNPC[npc]) }

func (q *Queue) Len() int { return q.n }
