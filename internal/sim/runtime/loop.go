package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"rpflavor/internal/protocol"
	"rpflavor/internal/sim/mirror"
	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/roleplay/logic/emotes"
	"rpflavor/internal/sim/textpool"
)

// Source re-reads configuration and content for a reload. It runs off the
// loop goroutine. notes carry non-fatal problems such as a missing pool file.
type Source func() (cfg roleplay.Config, pools *textpool.Store, notes []string, err error)

type Options struct {
	Logger    *log.Logger
	Decisions DecisionLogger
	Reloads   ReloadLogger
	Source    Source
	Seed      int64
	InboxSize int
}

// Envelope carries one decoded host message into the loop.
type Envelope struct {
	SessionID string
	Msg       any
}

type AttachRequest struct {
	SessionID string
	HostName  string
	Out       chan []byte
	Resp      chan AttachResponse
}

type AttachResponse struct {
	OK         bool
	Code       string
	PoolDigest string
}

type State struct {
	SessionID       string         `json:"session_id,omitempty"`
	HostName        string         `json:"host_name,omitempty"`
	NPCs            int            `json:"npcs"`
	Players         int            `json:"players"`
	InboxDepth      int            `json:"inbox_depth"`
	DroppedOutbound uint64         `json:"dropped_outbound"`
	LastNowMs       int64          `json:"last_now_ms"`
	Engine          roleplay.Stats `json:"engine"`
}

type reloadReq struct {
	checkOnly bool
	cfg       roleplay.Config
	pools     *textpool.Store
	resp      chan roleplay.ReloadResult
}

// Loop owns the engine and the host mirror. Everything that touches them
// runs on the goroutine executing Run.
type Loop struct {
	engine *roleplay.Engine
	mirror *mirror.Registry
	logger *log.Logger

	decisions DecisionLogger
	reloads   ReloadLogger
	source    Source

	inbox     chan Envelope
	attach    chan AttachRequest
	detach    chan string
	reloadReq chan reloadReq
	stateReq  chan chan State
	stop      chan struct{}
	stopOnce  sync.Once

	sessionID string
	hostName  string
	out       chan []byte
	dropped   uint64
	lastNow   int64
}

func New(cfg roleplay.Config, pools *textpool.Store, opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	size := opts.InboxSize
	if size <= 0 {
		size = 1024
	}
	l := &Loop{
		mirror:    mirror.New(),
		logger:    logger,
		decisions: opts.Decisions,
		reloads:   opts.Reloads,
		source:    opts.Source,
		inbox:     make(chan Envelope, size),
		attach:    make(chan AttachRequest),
		detach:    make(chan string, 8),
		reloadReq: make(chan reloadReq),
		stateReq:  make(chan chan State),
		stop:      make(chan struct{}),
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	l.engine = roleplay.New(cfg, pools, l.mirror,
		roleplay.WithSeed(seed),
		roleplay.WithLogger(logger),
		roleplay.WithDecisionLogger(decisionAdapter{l}),
	)
	return l
}

func (l *Loop) Inbox() chan<- Envelope       { return l.inbox }
func (l *Loop) Attach() chan<- AttachRequest { return l.attach }
func (l *Loop) Detach() chan<- string        { return l.detach }
func (l *Loop) Stop()                        { l.stopOnce.Do(func() { close(l.stop) }) }

func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case req := <-l.attach:
			l.handleAttach(req)
		case id := <-l.detach:
			l.handleDetach(id)
		case req := <-l.reloadReq:
			l.handleReload(req)
		case ch := <-l.stateReq:
			ch <- l.state()
		case env := <-l.inbox:
			if env.SessionID != l.sessionID {
				continue
			}
			if items := l.Handle(env.Msg); len(items) > 0 {
				l.send(protocol.RequestsMsg{
					Type:            protocol.TypeRequests,
					ProtocolVersion: protocol.Version,
					NowMs:           l.lastNow,
					Requests:        items,
				})
			}
		}
	}
}

func (l *Loop) handleAttach(req AttachRequest) {
	if l.sessionID != "" {
		req.Resp <- AttachResponse{OK: false, Code: protocol.ErrHostBusy}
		return
	}
	l.sessionID = req.SessionID
	l.hostName = req.HostName
	l.out = req.Out
	l.logger.Printf("host attached session=%s host=%s", req.SessionID, req.HostName)
	req.Resp <- AttachResponse{OK: true, PoolDigest: l.engine.Pools().Digest()}
}

// handleDetach forgets every entity of the departing host, so per-NPC state
// does not outlive the session.
func (l *Loop) handleDetach(id string) {
	if id == "" || id != l.sessionID {
		return
	}
	removed := l.mirror.Reset()
	for _, npc := range removed {
		l.engine.OnNPCRemoved(npc)
	}
	l.logger.Printf("host detached session=%s npcs_removed=%d", id, len(removed))
	l.sessionID = ""
	l.hostName = ""
	l.out = nil
}

// Handle applies one host message and returns the wire requests it produced.
// It must be called from the loop goroutine, or when Run is not running.
func (l *Loop) Handle(msg any) []protocol.RequestItem {
	var reqs []roleplay.Request
	switch m := msg.(type) {
	case *protocol.EntityMsg:
		l.applyEntity(m)
	case *protocol.TickMsg:
		l.lastNow = m.NowMs
		reqs = l.engine.Tick(m.NowMs, m.DiffMs)
	case *protocol.GossipHelloMsg:
		l.lastNow = m.NowMs
		reqs = l.engine.OnGossipHello(m.NowMs, roleplay.EntityID(m.NPCID), roleplay.EntityID(m.PlayerID))
	case *protocol.PlayerEmoteMsg:
		l.lastNow = m.NowMs
		code, ok := emotes.Parse(m.Emote)
		if !ok {
			return nil
		}
		reqs = l.engine.OnPlayerEmote(m.NowMs, roleplay.EntityID(m.PlayerID), code, roleplay.EntityID(m.TargetID))
	default:
		return nil
	}
	if len(reqs) == 0 {
		return nil
	}
	items := make([]protocol.RequestItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, EncodeRequest(r))
	}
	return items
}

func (l *Loop) applyEntity(m *protocol.EntityMsg) {
	id := roleplay.EntityID(m.ID)
	switch m.Kind {
	case protocol.KindNPC:
		if m.Op == protocol.OpRemove {
			l.mirror.RemoveNPC(id)
			l.engine.OnNPCRemoved(id)
			return
		}
		added := l.mirror.UpsertNPC(mirror.NPCState{
			ID:       id,
			Entry:    m.Entry,
			Name:     m.Name,
			MapID:    m.MapID,
			Pos:      mirror.Vec3(m.Pos),
			Alive:    m.Alive,
			InCombat: m.InCombat,
			Moving:   m.Moving,
		})
		if added {
			l.engine.OnNPCAdded(id)
		}
	case protocol.KindPlayer:
		if m.Op == protocol.OpRemove {
			l.mirror.RemovePlayer(id)
			return
		}
		l.mirror.UpsertPlayer(mirror.PlayerState{
			ID:       id,
			Name:     m.Name,
			Locale:   m.Locale,
			MapID:    m.MapID,
			Pos:      mirror.Vec3(m.Pos),
			Alive:    m.Alive,
			InCombat: m.InCombat,
		})
	}
}

func (l *Loop) send(v any) {
	if l.out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		l.logger.Printf("encode outbound: %v", err)
		return
	}
	select {
	case l.out <- b:
	default:
		l.dropped++
		if l.dropped == 1 || l.dropped%1000 == 0 {
			l.logger.Printf("outbound queue full; dropped=%d", l.dropped)
		}
	}
}

func (l *Loop) state() State {
	npcs, players := l.mirror.Counts()
	return State{
		SessionID:       l.sessionID,
		HostName:        l.hostName,
		NPCs:            npcs,
		Players:         players,
		InboxDepth:      len(l.inbox),
		DroppedOutbound: l.dropped,
		LastNowMs:       l.lastNow,
		Engine:          l.engine.Stats(),
	}
}

// State asks the loop for a consistent view of its counters.
func (l *Loop) State(ctx context.Context) (State, error) {
	ch := make(chan State, 1)
	select {
	case l.stateReq <- ch:
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case s := <-ch:
		return s, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (l *Loop) handleReload(req reloadReq) {
	if req.checkOnly {
		if !l.engine.ReloadAllowed() {
			req.resp <- roleplay.ReloadResult{Status: roleplay.ReloadDisabled}
			return
		}
		req.resp <- roleplay.ReloadResult{}
		return
	}
	req.resp <- l.engine.Reload(req.cfg, req.pools)
}

func (l *Loop) roundTrip(ctx context.Context, req reloadReq) (roleplay.ReloadResult, error) {
	req.resp = make(chan roleplay.ReloadResult, 1)
	select {
	case l.reloadReq <- req:
	case <-ctx.Done():
		return roleplay.ReloadResult{}, ctx.Err()
	}
	select {
	case res := <-req.resp:
		return res, nil
	case <-ctx.Done():
		return roleplay.ReloadResult{}, ctx.Err()
	}
}

var ErrNoSource = errors.New("no reload source configured")

// Reload re-reads configuration and content off the loop, then swaps them in
// on the loop. The previous data stays active until the swap, and stays
// active for good if reading fails.
func (l *Loop) Reload(ctx context.Context) (roleplay.ReloadResult, error) {
	allowed, err := l.roundTrip(ctx, reloadReq{checkOnly: true})
	if err != nil {
		return allowed, err
	}
	if allowed.Status == roleplay.ReloadDisabled {
		l.recordReload(ReloadRecord{Status: roleplay.ReloadDisabled})
		return allowed, nil
	}
	if l.source == nil {
		return roleplay.ReloadResult{}, ErrNoSource
	}
	cfg, pools, notes, err := l.source()
	if err != nil {
		l.logger.Printf("reload failed: %v", err)
		l.recordReload(ReloadRecord{Status: ReloadFailed, Notes: notes, Error: err.Error()})
		return roleplay.ReloadResult{}, err
	}
	for _, n := range notes {
		l.logger.Printf("reload: %s", n)
	}
	res, err := l.roundTrip(ctx, reloadReq{cfg: cfg, pools: pools})
	if err != nil {
		return res, err
	}
	l.recordReload(ReloadRecord{
		Status:         res.Status,
		PoolDigest:     res.PoolDigest,
		Lines:          res.Lines,
		Categories:     res.Categories,
		AmbientArmed:   res.AmbientArmed,
		AmbientDropped: res.AmbientDropped,
		Notes:          notes,
	})
	return res, nil
}

func (l *Loop) recordReload(r ReloadRecord) {
	if l.reloads == nil {
		return
	}
	r.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := l.reloads.WriteReload(r); err != nil {
		l.logger.Printf("write reload record: %v", err)
	}
}

type decisionAdapter struct{ l *Loop }

func (d decisionAdapter) LogRequest(r roleplay.Request) {
	if d.l.decisions == nil {
		return
	}
	_ = d.l.decisions.WriteDecision(DecisionRecord{SessionID: d.l.sessionID, RequestItem: EncodeRequest(r)})
}
