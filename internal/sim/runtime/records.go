package runtime

import (
	"rpflavor/internal/protocol"
	"rpflavor/internal/sim/roleplay"
)

// DecisionRecord is one produced request as written to the journal and index.
type DecisionRecord struct {
	SessionID string `json:"session_id,omitempty"`
	protocol.RequestItem
}

// ReloadRecord describes one reload attempt, successful or not.
type ReloadRecord struct {
	RecordedAt     string         `json:"recorded_at"`
	Status         string         `json:"status"`
	PoolDigest     string         `json:"pool_digest,omitempty"`
	Lines          map[string]int `json:"lines,omitempty"`
	Categories     int            `json:"categories"`
	AmbientArmed   int            `json:"ambient_armed"`
	AmbientDropped int            `json:"ambient_dropped"`
	Notes          []string       `json:"notes,omitempty"`
	Error          string         `json:"error,omitempty"`
}

const ReloadFailed = "failed"

type DecisionLogger interface {
	WriteDecision(DecisionRecord) error
}

type ReloadLogger interface {
	WriteReload(ReloadRecord) error
}

// EncodeRequest converts an engine request into its wire form.
func EncodeRequest(r roleplay.Request) protocol.RequestItem {
	h := r.Header()
	item := protocol.RequestItem{
		NPCID: uint64(h.NPC),
		Cause: string(h.Cause),
		AtMs:  h.NowMs,
	}
	switch v := r.(type) {
	case roleplay.Speech:
		item.Kind = protocol.RequestSpeech
		item.Speech = v.Kind.String()
		item.Audience = string(v.Audience)
		item.Text = v.Text
		item.TargetID = uint64(v.Target)
	case roleplay.Emote:
		item.Kind = protocol.RequestEmote
		item.Emote = v.Code.String()
		item.TargetID = uint64(v.Target)
	}
	return item
}
