package protocol

// HELLO (host -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HostName        string `json:"host_name"`
}

// WELCOME (server -> host)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	PoolDigest      string `json:"pool_digest"`
}

const (
	OpUpsert = "UPSERT"
	OpRemove = "REMOVE"

	KindNPC    = "NPC"
	KindPlayer = "PLAYER"
)

// ENTITY (host -> server): one NPC or player appeared, changed or left.
type EntityMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Op              string     `json:"op"`
	Kind            string     `json:"kind"`
	ID              uint64     `json:"id"`
	Entry           uint32     `json:"entry,omitempty"`
	Name            string     `json:"name,omitempty"`
	Locale          string     `json:"locale,omitempty"`
	MapID           uint32     `json:"map_id,omitempty"`
	Pos             [3]float64 `json:"pos"`
	Alive           bool       `json:"alive"`
	InCombat        bool       `json:"in_combat,omitempty"`
	Moving          bool       `json:"moving,omitempty"`
}

// TICK (host -> server)
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	NowMs           int64  `json:"now_ms"`
	DiffMs          int64  `json:"diff_ms"`
}

// GOSSIP_HELLO (host -> server): a player opened an interaction with an NPC.
type GossipHelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	NowMs           int64  `json:"now_ms"`
	NPCID           uint64 `json:"npc_id"`
	PlayerID        uint64 `json:"player_id"`
}

// PLAYER_EMOTE (host -> server)
type PlayerEmoteMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	NowMs           int64  `json:"now_ms"`
	PlayerID        uint64 `json:"player_id"`
	Emote           string `json:"emote"`
	TargetID        uint64 `json:"target_id,omitempty"`
}

const (
	RequestSpeech = "SPEECH"
	RequestEmote  = "EMOTE"
)

// RequestItem is one render instruction. Speech fields are set for SPEECH,
// Emote for EMOTE.
type RequestItem struct {
	Kind     string `json:"kind"`
	NPCID    uint64 `json:"npc_id"`
	Cause    string `json:"cause"`
	AtMs     int64  `json:"at_ms"`
	TargetID uint64 `json:"target_id,omitempty"`
	Speech   string `json:"speech,omitempty"`
	Audience string `json:"audience,omitempty"`
	Text     string `json:"text,omitempty"`
	Emote    string `json:"emote,omitempty"`
}

// REQUESTS (server -> host)
type RequestsMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	NowMs           int64         `json:"now_ms"`
	Requests        []RequestItem `json:"requests"`
}

// ERROR (server -> host)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
