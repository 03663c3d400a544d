package protocol

import "encoding/json"

const Version = "1.0"

// Message types. Host to server: HELLO, ENTITY, TICK, GOSSIP_HELLO,
// PLAYER_EMOTE. Server to host: WELCOME, REQUESTS, ERROR.
const (
	TypeHello       = "HELLO"
	TypeWelcome     = "WELCOME"
	TypeEntity      = "ENTITY"
	TypeTick        = "TICK"
	TypeGossipHello = "GOSSIP_HELLO"
	TypePlayerEmote = "PLAYER_EMOTE"
	TypeRequests    = "REQUESTS"
	TypeError       = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
