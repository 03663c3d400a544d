package protocol_test

import (
	"testing"

	"rpflavor/internal/protocol"
)

func TestHostSchema_ValidateSamples(t *testing.T) {
	if _, err := protocol.HostSchema(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	valid := []string{
		`{"type":"HELLO","protocol_version":"1.0","host_name":"realm-1"}`,
		`{"type":"ENTITY","protocol_version":"1.0","op":"UPSERT","kind":"NPC","id":7,"entry":1234,"pos":[1,2.5,3],"alive":true}`,
		`{"type":"ENTITY","protocol_version":"1.0","op":"REMOVE","kind":"PLAYER","id":9}`,
		`{"type":"TICK","protocol_version":"1.0","now_ms":1000,"diff_ms":50}`,
		`{"type":"GOSSIP_HELLO","protocol_version":"1.0","now_ms":5,"npc_id":7,"player_id":9}`,
		`{"type":"PLAYER_EMOTE","protocol_version":"1.0","now_ms":5,"player_id":9,"emote":"WAVE","target_id":7}`,
	}
	for _, s := range valid {
		if err := protocol.ValidateHost([]byte(s)); err != nil {
			t.Fatalf("expected valid %s: %v", s, err)
		}
	}
}

func TestHostSchema_RejectsBadMessages(t *testing.T) {
	invalid := []string{
		`{"type":"HELLO"}`,
		`{"type":"WELCOME","protocol_version":"1.0"}`,
		`{"type":"ENTITY","protocol_version":"1.0","op":"UPSERT","kind":"NPC","id":7}`,
		`{"type":"ENTITY","protocol_version":"1.0","op":"MOVE","kind":"NPC","id":7,"pos":[0,0,0],"alive":true}`,
		`{"type":"TICK","protocol_version":"1.0","now_ms":-1,"diff_ms":50}`,
		`{"type":"GOSSIP_HELLO","protocol_version":"1.0","now_ms":5,"npc_id":0,"player_id":9}`,
		`{"type":"PLAYER_EMOTE","protocol_version":"1.0","now_ms":5,"player_id":9}`,
		`not json`,
	}
	for _, s := range invalid {
		if err := protocol.ValidateHost([]byte(s)); err == nil {
			t.Fatalf("expected %s to be rejected", s)
		}
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"TICK","protocol_version":"1.0"}`))
	if err != nil || m.Type != protocol.TypeTick || m.ProtocolVersion != protocol.Version {
		t.Fatalf("DecodeBase=%+v err=%v", m, err)
	}
}
