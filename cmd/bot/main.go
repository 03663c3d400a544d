package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"rpflavor/internal/protocol"
)

// bot plays a tiny host: a few NPCs around one player, a steady clock, and
// the occasional greeting or gesture. It prints what the server asks for.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "demo-host", "host name")
		npcs     = flag.Int("npcs", 3, "number of npcs to spawn")
		tickMs   = flag.Int64("tick_ms", 100, "host tick interval in ms")
		locale   = flag.String("locale", "en", "player locale")
		seed     = flag.Int64("seed", 0, "rng seed (0: time based)")
		duration = flag.Duration("duration", 0, "stop after this long (0: run until interrupted)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, HostName: *name}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	go readLoop(conn, logger)

	const playerID = 1000
	send := func(v any) {
		if err := conn.WriteJSON(v); err != nil {
			logger.Fatalf("send: %v", err)
		}
	}
	for i := 1; i <= *npcs; i++ {
		send(protocol.EntityMsg{
			Type: protocol.TypeEntity, ProtocolVersion: protocol.Version,
			Op: protocol.OpUpsert, Kind: protocol.KindNPC,
			ID: uint64(i), Entry: uint32(100 + i), Name: "Guard",
			Pos: [3]float64{float64(i * 2), 0, 0}, Alive: true,
		})
	}
	send(protocol.EntityMsg{
		Type: protocol.TypeEntity, ProtocolVersion: protocol.Version,
		Op: protocol.OpUpsert, Kind: protocol.KindPlayer,
		ID: playerID, Name: "Traveler", Locale: *locale,
		Pos: [3]float64{0, 0, 1}, Alive: true,
	})

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(*seed))
	gestures := []string{"WAVE", "BOW", "DANCE", "CHEER", "SALUTE"}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	ticker := time.NewTicker(time.Duration(*tickMs) * time.Millisecond)
	defer ticker.Stop()
	var now int64
	for {
		select {
		case <-stop:
			return
		case <-deadline:
			return
		case <-ticker.C:
		}
		now += *tickMs
		send(protocol.TickMsg{Type: protocol.TypeTick, ProtocolVersion: protocol.Version, NowMs: now, DiffMs: *tickMs})

		npc := uint64(1 + r.Intn(*npcs))
		switch r.Intn(40) {
		case 0:
			send(protocol.GossipHelloMsg{Type: protocol.TypeGossipHello, ProtocolVersion: protocol.Version, NowMs: now, NPCID: npc, PlayerID: playerID})
		case 1:
			send(protocol.PlayerEmoteMsg{
				Type: protocol.TypePlayerEmote, ProtocolVersion: protocol.Version, NowMs: now,
				PlayerID: playerID, Emote: gestures[r.Intn(len(gestures))], TargetID: npc,
			})
		}
	}
}

func readLoop(conn *websocket.Conn, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			os.Exit(0)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s pools=%.12s", w.SessionID, w.PoolDigest)

		case protocol.TypeRequests:
			var m protocol.RequestsMsg
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			for _, it := range m.Requests {
				if it.Kind == protocol.RequestSpeech {
					logger.Printf("npc=%d %s %s(%s): %s", it.NPCID, it.Cause, it.Speech, it.Audience, it.Text)
					continue
				}
				logger.Printf("npc=%d %s emote=%s target=%d", it.NPCID, it.Cause, it.Emote, it.TargetID)
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
}
