package roleplay

import (
	"io"
	"log"
	"math/rand"
	"time"

	"rpflavor/internal/sim/roleplay/feature/ambient"
	"rpflavor/internal/sim/roleplay/feature/deferred"
	"rpflavor/internal/sim/roleplay/feature/selector"
	"rpflavor/internal/sim/roleplay/logic/cooldown"
	"rpflavor/internal/sim/roleplay/logic/eligibility"
	"rpflavor/internal/sim/roleplay/logic/rates"
	"rpflavor/internal/sim/textpool"
)

// Gate names the check that stopped an interaction.
type Gate string

const (
	GateDisabled Gate = "disabled"
	GateUnknown  Gate = "unknown_entity"
	GateState    Gate = "state"
	GateFilter   Gate = "filter"
	GateGesture  Gate = "gesture"
	GateRange    Gate = "range"
	GateBudget   Gate = "budget"
	GateCooldown Gate = "cooldown"
	GateObserver Gate = "no_observer"
	GateChance   Gate = "chance"
	GateStale    Gate = "stale"
)

// Engine owns all per-NPC interaction state. It is not safe for concurrent
// use; the host drives it from a single goroutine.
type Engine struct {
	cfg      Config
	pools    *textpool.Store
	fallback selector.Fallback
	filter   eligibility.Filter
	world    World
	rng      *rand.Rand

	greetCD  *cooldown.Table
	reactCD  *cooldown.Table
	gossip   *rates.Budget
	react    *rates.Budget
	timers   *ambient.Scheduler
	pending  *deferred.Queue
	known    map[EntityID]struct{}
	requests map[Cause]uint64
	denials  map[Gate]uint64

	logger    *log.Logger
	decisions DecisionLogger
}

type Option func(*Engine)

func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithDecisionLogger(d DecisionLogger) Option {
	return func(e *Engine) { e.decisions = d }
}

func New(cfg Config, pools *textpool.Store, w World, opts ...Option) *Engine {
	e := &Engine{
		world:    w,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		greetCD:  cooldown.New(),
		reactCD:  cooldown.New(),
		gossip:   rates.NewBudget(),
		react:    rates.NewBudget(),
		timers:   ambient.NewScheduler(),
		pending:  deferred.NewQueue(),
		known:    map[EntityID]struct{}{},
		requests: map[Cause]uint64{},
		denials:  map[Gate]uint64{},
		logger:   log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(e)
	}
	e.apply(cfg, pools)
	return e
}

func (e *Engine) apply(cfg Config, pools *textpool.Store) {
	if pools == nil {
		pools = textpool.Empty()
	}
	if cfg.PrimaryLocale == "" {
		cfg.PrimaryLocale = LocaleEN
	}
	if cfg.TextPool.Category == "" {
		cfg.TextPool.Category = GossipCategory
	}
	e.cfg = cfg
	e.pools = pools
	e.fallback = selector.Fallback{Primary: cfg.PrimaryLocale, Phrases: cfg.Texts}
	e.filter = eligibility.New(cfg.Whitelist, cfg.Blacklist)
}

func (e *Engine) Config() Config         { return e.cfg }
func (e *Engine) Pools() *textpool.Store { return e.pools }
func (e *Engine) ReloadAllowed() bool    { return e.cfg.TextPool.ReloadCommand }

func (e *Engine) Known(id EntityID) bool {
	_, ok := e.known[id]
	return ok
}

func (e *Engine) ambientOn() bool { return e.cfg.Enable && e.cfg.Ambient.Enable }

func (e *Engine) deny(g Gate) []Request {
	e.denials[g]++
	return nil
}

func (e *Engine) meta(npc EntityID, c Cause, now int64) Meta {
	return Meta{NPC: npc, Cause: c, NowMs: now}
}

func (e *Engine) emit(out []Request, r Request) []Request {
	e.requests[r.Header().Cause]++
	if e.decisions != nil {
		e.decisions.LogRequest(r)
	}
	return append(out, r)
}

// OnNPCAdded starts tracking an NPC and arms its ambient timer when ambient
// behavior is on and the NPC passes the allow/deny lists.
func (e *Engine) OnNPCAdded(id EntityID) {
	e.known[id] = struct{}{}
	e.armIfEligible(id)
}

func (e *Engine) armIfEligible(id EntityID) {
	if !e.ambientOn() {
		return
	}
	if n, ok := e.world.NPC(id); ok && !e.filter.Allowed(n.Entry) {
		return
	}
	if _, armed := e.timers.Remaining(uint64(id)); !armed {
		e.timers.Arm(uint64(id), ambient.FirstDueMs)
	}
}

// OnNPCRemoved drops every piece of state held for the NPC, including
// reactions still waiting for their delay.
func (e *Engine) OnNPCRemoved(id EntityID) {
	k := uint64(id)
	delete(e.known, id)
	e.greetCD.Forget(k)
	e.reactCD.Forget(k)
	e.gossip.Forget(k)
	e.react.Forget(k)
	e.timers.Forget(k)
	if n := e.pending.Cancel(k); n > 0 {
		e.logger.Printf("npc %d removed with %d pending reactions", id, n)
	}
}

// Footprint reports which state tables hold an entry for id.
type Footprint struct {
	GreetCooldown bool
	ReactCooldown bool
	GossipBudget  bool
	ReactBudget   bool
	AmbientTimer  bool
	Deferred      int
}

func (f Footprint) Empty() bool {
	return !f.GreetCooldown && !f.ReactCooldown && !f.GossipBudget && !f.ReactBudget && !f.AmbientTimer && f.Deferred == 0
}

func (e *Engine) Footprint(id EntityID) Footprint {
	k := uint64(id)
	var f Footprint
	f.GreetCooldown = e.greetCD.Has(k)
	f.ReactCooldown = e.reactCD.Has(k)
	_, f.GossipBudget = e.gossip.Peek(k)
	_, f.ReactBudget = e.react.Peek(k)
	_, f.AmbientTimer = e.timers.Remaining(k)
	f.Deferred = e.pending.Pending(k)
	return f
}

// AmbientRemaining is the NPC's countdown to its next ambient evaluation.
func (e *Engine) AmbientRemaining(id EntityID) (int64, bool) {
	return e.timers.Remaining(uint64(id))
}

type Stats struct {
	NPCs               int               `json:"npcs"`
	GreetCooldownNPCs  int               `json:"greet_cooldown_npcs"`
	GreetCooldownPairs int               `json:"greet_cooldown_pairs"`
	ReactCooldownNPCs  int               `json:"react_cooldown_npcs"`
	ReactCooldownPairs int               `json:"react_cooldown_pairs"`
	GossipBudgets      int               `json:"gossip_budgets"`
	ReactBudgets       int               `json:"react_budgets"`
	AmbientTimers      int               `json:"ambient_timers"`
	Deferred           int               `json:"deferred"`
	PoolDigest         string            `json:"pool_digest"`
	Requests           map[string]uint64 `json:"requests"`
	Denials            map[string]uint64 `json:"denials"`
}

func (e *Engine) Stats() Stats {
	s := Stats{
		NPCs:               len(e.known),
		GreetCooldownNPCs:  e.greetCD.Len(),
		GreetCooldownPairs: e.greetCD.Pairs(),
		ReactCooldownNPCs:  e.reactCD.Len(),
		ReactCooldownPairs: e.reactCD.Pairs(),
		GossipBudgets:      e.gossip.Len(),
		ReactBudgets:       e.react.Len(),
		AmbientTimers:      e.timers.Len(),
		Deferred:           e.pending.Len(),
		PoolDigest:         e.pools.Digest(),
		Requests:           make(map[string]uint64, len(e.requests)),
		Denials:            make(map[string]uint64, len(e.denials)),
	}
	for k, v := range e.requests {
		s.Requests[string(k)] = v
	}
	for k, v := range e.denials {
		s.Denials[string(k)] = v
	}
	return s
}
