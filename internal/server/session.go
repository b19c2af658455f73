package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mzahid786/paircall/internal/config"
	"github.com/mzahid786/paircall/internal/room"
	"github.com/mzahid786/paircall/internal/wire"
)

var errSessionClosed = errors.New("session closed")

// outFrame is one unit of work for the write pump: either a control
// message or a close handshake. Queueing the close keeps it ordered after
// messages already queued, so a rejected joiner sees full before the close.
type outFrame struct {
	msg     wire.Message
	isClose bool
	code    int
	reason  string
}

// session wraps one websocket connection for the room. All writes go
// through the pump so there is exactly one writer per connection.
type session struct {
	id   string
	conn *websocket.Conn
	cfg  *config.Server
	log  zerolog.Logger

	out  chan outFrame
	quit chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn, cfg *config.Server, log zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:   id,
		conn: conn,
		cfg:  cfg,
		log:  log.With().Str("session", id).Logger(),
		out:  make(chan outFrame, cfg.SendBuffer),
		quit: make(chan struct{}),
	}
}

func (s *session) ID() string { return s.id }

// Send queues one message for the pump. A full buffer counts as a delivery
// failure; the room treats those as best-effort anyway.
func (s *session) Send(msg wire.Message) error {
	select {
	case <-s.quit:
		return errSessionClosed
	case s.out <- outFrame{msg: msg}:
		return nil
	default:
		return errors.New("outbound buffer full")
	}
}

// Close queues a close handshake behind any pending messages. If the pump
// is already gone or wedged the transport is torn down directly.
func (s *session) Close(code int, reason string) error {
	select {
	case s.out <- outFrame{isClose: true, code: code, reason: reason}:
	default:
		s.stop()
	}
	return nil
}

// stop signals the pump to exit; the pump owns closing the connection.
func (s *session) stop() {
	s.once.Do(func() { close(s.quit) })
}

// writePump drains outbound frames onto the socket and keeps the
// connection alive with pings. It owns all writes and the connection's
// lifetime.
func (s *session) writePump() {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.quit:
			return

		case f := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if f.isClose {
				msg := websocket.FormatCloseMessage(f.code, f.reason)
				if err := s.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
					s.log.Debug().Err(err).Msg("Error writing close frame")
				}
				s.stop()
				return
			}
			if err := s.conn.WriteJSON(f.msg); err != nil {
				s.log.Debug().Err(err).Msg("Error writing frame")
				s.stop()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.stop()
				return
			}
		}
	}
}

// readLoop feeds inbound frames into the room until the transport dies.
// Frames that do not parse as a known relay payload are dropped; they
// never reach the other member and never disturb room state.
func (s *session) readLoop(r *room.Room) {
	s.conn.SetReadLimit(s.cfg.MaxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure, websocket.ClosePolicyViolation) {
				s.log.Debug().Err(err).Msg("Unexpected close")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if _, err := wire.DecodeRelay(data); err != nil {
			s.log.Debug().Err(err).Msg("Dropping unrecognized frame")
			continue
		}
		r.Relay(s, json.RawMessage(data))
	}
}
