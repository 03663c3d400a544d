package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"rpflavor/internal/protocol"
	"rpflavor/internal/sim/runtime"
)

type Options struct {
	// MsgsPerSec limits inbound host messages; 0 disables the limit.
	MsgsPerSec float64
	Burst      int
	// OutQueue is the outbound buffer per session.
	OutQueue int
	// Validate runs every inbound message through the host schema.
	Validate bool
}

type Server struct {
	loop *runtime.Loop
	log  *log.Logger
	opts Options

	upgrader websocket.Upgrader
}

func NewServer(l *runtime.Loop, logger *log.Logger, opts Options) *Server {
	if opts.OutQueue <= 0 {
		opts.OutQueue = 256
	}
	if opts.Burst <= 0 {
		opts.Burst = 64
	}
	return &Server{
		loop: l,
		log:  logger,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // hosts are not browsers
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		var limiter *rate.Limiter
		if s.opts.MsgsPerSec > 0 {
			limiter = rate.NewLimiter(rate.Limit(s.opts.MsgsPerSec), s.opts.Burst)
		}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if limiter != nil && !limiter.Allow() {
				s.reply(out, protocol.ErrRateLimit, "message rate exceeded")
				continue
			}
			decoded, code, why := s.decode(msg)
			if code != "" {
				s.reply(out, code, why)
				continue
			}
			select {
			case s.loop.Inbox() <- runtime.Envelope{SessionID: sessionID, Msg: decoded}:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		s.loop.Detach() <- sessionID
		if s.log != nil {
			s.log.Printf("ws session closed session=%s", sessionID)
		}
	}
}

// decode validates and types one host message. A non-empty code means the
// message was rejected.
func (s *Server) decode(msg []byte) (any, string, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil, protocol.ErrProtoBadRequest, "invalid json"
	}
	if base.ProtocolVersion != protocol.Version {
		return nil, protocol.ErrProtoVersion, "bad protocol_version"
	}
	if s.opts.Validate {
		if err := protocol.ValidateHost(msg); err != nil {
			return nil, protocol.ErrProtoBadRequest, err.Error()
		}
	}
	var v any
	switch base.Type {
	case protocol.TypeEntity:
		v = &protocol.EntityMsg{}
	case protocol.TypeTick:
		v = &protocol.TickMsg{}
	case protocol.TypeGossipHello:
		v = &protocol.GossipHelloMsg{}
	case protocol.TypePlayerEmote:
		v = &protocol.PlayerEmoteMsg{}
	default:
		return nil, protocol.ErrProtoBadRequest, "unexpected type " + base.Type
	}
	if err := json.Unmarshal(msg, v); err != nil {
		return nil, protocol.ErrBadRequest, err.Error()
	}
	return v, "", ""
}

func (s *Server) reply(out chan []byte, code, message string) {
	b, err := json.Marshal(protocol.NewError(code, message))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, protocol.ErrNoSession, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return "", nil
	}
	if hello.HostName == "" {
		hello.HostName = "host"
	}

	out = make(chan []byte, s.opts.OutQueue)
	id := uuid.NewString()

	respCh := make(chan runtime.AttachResponse, 1)
	s.loop.Attach() <- runtime.AttachRequest{
		SessionID: id,
		HostName:  hello.HostName,
		Out:       out,
		Resp:      respCh,
	}
	resp := <-respCh
	if !resp.OK {
		closeWith(conn, resp.Code, "another host is attached")
		return "", nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       id,
		PoolDigest:      resp.PoolDigest,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.loop.Detach() <- id
		return "", nil
	}
	if s.log != nil {
		s.log.Printf("ws session open session=%s host=%s", id, hello.HostName)
	}
	return id, out
}

// closeWith sends an ERROR frame followed by a policy close.
func closeWith(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.NewError(code, message))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
