package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"rpflavor/internal/protocol"
	"rpflavor/internal/sim/roleplay"
	"rpflavor/internal/sim/runtime"
	"rpflavor/internal/sim/textpool"
)

func startServer(t *testing.T, opts Options) string {
	t.Helper()
	cfg := roleplay.DefaultConfig()
	cfg.Greeting.UseExtraEmote = false
	loop := runtime.New(cfg, textpool.Empty(), runtime.Options{Seed: 11})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = loop.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewServer(loop, nil, opts).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readType(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return base.Type, b
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, HostName: "realm-1"})
	typ, b := readType(t, conn)
	if typ != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %s: %s", typ, b)
	}
	var w protocol.WelcomeMsg
	_ = json.Unmarshal(b, &w)
	return w
}

func TestServer_GreetingRoundTrip(t *testing.T) {
	url := startServer(t, Options{Validate: true})
	conn := dial(t, url)
	w := hello(t, conn)
	if w.SessionID == "" || w.PoolDigest == "" {
		t.Fatalf("incomplete welcome: %+v", w)
	}

	send(t, conn, protocol.EntityMsg{Type: protocol.TypeEntity, ProtocolVersion: protocol.Version, Op: protocol.OpUpsert, Kind: protocol.KindNPC, ID: 1, Entry: 42, Alive: true})
	send(t, conn, protocol.EntityMsg{Type: protocol.TypeEntity, ProtocolVersion: protocol.Version, Op: protocol.OpUpsert, Kind: protocol.KindPlayer, ID: 2, Name: "Anduin", Locale: "en", Alive: true})
	send(t, conn, protocol.GossipHelloMsg{Type: protocol.TypeGossipHello, ProtocolVersion: protocol.Version, NowMs: 9000, NPCID: 1, PlayerID: 2})

	typ, b := readType(t, conn)
	if typ != protocol.TypeRequests {
		t.Fatalf("expected REQUESTS, got %s: %s", typ, b)
	}
	var m protocol.RequestsMsg
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m.Requests) < 2 || m.Requests[0].Emote != "WAVE" || m.Requests[0].Cause != "greeting" {
		t.Fatalf("unexpected requests: %+v", m.Requests)
	}
}

func TestServer_SecondHostIsBusy(t *testing.T) {
	url := startServer(t, Options{})
	first := dial(t, url)
	hello(t, first)

	second := dial(t, url)
	send(t, second, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, HostName: "realm-2"})
	typ, b := readType(t, second)
	if typ != protocol.TypeError {
		t.Fatalf("expected ERROR, got %s", typ)
	}
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if e.Code != protocol.ErrHostBusy {
		t.Fatalf("code=%s want %s", e.Code, protocol.ErrHostBusy)
	}
}

func TestServer_RejectsBadMessages(t *testing.T) {
	url := startServer(t, Options{Validate: true})
	conn := dial(t, url)
	hello(t, conn)

	cases := []struct {
		msg  string
		code string
	}{
		{`not json`, protocol.ErrProtoBadRequest},
		{`{"type":"TICK","protocol_version":"0.1","now_ms":1,"diff_ms":1}`, protocol.ErrProtoVersion},
		{`{"type":"TICK","protocol_version":"1.0","now_ms":-5,"diff_ms":1}`, protocol.ErrProtoBadRequest},
		{`{"type":"GOSSIP_HELLO","protocol_version":"1.0","now_ms":1,"npc_id":0,"player_id":2}`, protocol.ErrProtoBadRequest},
	}
	for _, tc := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tc.msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		typ, b := readType(t, conn)
		if typ != protocol.TypeError {
			t.Fatalf("%s: expected ERROR, got %s", tc.msg, typ)
		}
		var e protocol.ErrorMsg
		_ = json.Unmarshal(b, &e)
		if e.Code != tc.code {
			t.Fatalf("%s: code=%s want %s", tc.msg, e.Code, tc.code)
		}
	}
}

func TestServer_RateLimit(t *testing.T) {
	url := startServer(t, Options{MsgsPerSec: 0.001, Burst: 1})
	conn := dial(t, url)
	hello(t, conn)

	tick := protocol.TickMsg{Type: protocol.TypeTick, ProtocolVersion: protocol.Version, NowMs: 1, DiffMs: 1}
	send(t, conn, tick)
	send(t, conn, tick)
	typ, b := readType(t, conn)
	if typ != protocol.TypeError {
		t.Fatalf("expected ERROR, got %s", typ)
	}
	var e protocol.ErrorMsg
	_ = json.Unmarshal(b, &e)
	if e.Code != protocol.ErrRateLimit {
		t.Fatalf("code=%s want %s", e.Code, protocol.ErrRateLimit)
	}
}
