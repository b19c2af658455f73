// Package room holds the per-code relay state: at most two member
// sessions, their roles, and the broadcast rules between them.
package room

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mzahid786/paircall/internal/wire"
)

// Session is one member's transport handle as the room sees it. The server
// side is a websocket wrapper; tests use in-memory fakes.
type Session interface {
	// ID identifies the session in logs.
	ID() string

	// Send queues one control message. Failures are the session's problem;
	// the room ignores them.
	Send(msg wire.Message) error

	// Close tears the transport down with a close code and reason.
	Close(code int, reason string) error
}

// Room relays messages between its two members. All operations on one room
// are serialized by its mutex, which is what keeps the two-slot cap intact
// under concurrent joins. Nothing here blocks: sends are queue-and-forget.
type Room struct {
	code string
	log  zerolog.Logger

	mu      sync.Mutex
	members []Session
	roles   map[Session]wire.Role
}

func newRoom(code string, log zerolog.Logger) *Room {
	return &Room{
		code:  code,
		log:   log.With().Str("room", code).Logger(),
		roles: make(map[Session]wire.Role),
	}
}

// Code returns the normalized code this room is keyed by.
func (r *Room) Code() string { return r.code }

// Join admits a session if a slot is free: the first member becomes role a,
// the second role b. The newcomer's hello goes out before any broadcast so
// it never learns of itself secondhand. A third joiner is told the room is
// full and closed without ever touching membership.
func (r *Room) Join(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= 2 {
		r.log.Info().Str("session", s.ID()).Msg("Rejecting join, room is full")
		_ = s.Send(wire.Full())
		_ = s.Close(wire.CloseRoomFull, "room full")
		return
	}

	role := wire.RoleA
	if len(r.members) == 1 {
		role = wire.RoleB
	}
	r.members = append(r.members, s)
	r.roles[s] = role

	_ = s.Send(wire.Hello(role, len(r.members)))
	r.log.Info().Str("session", s.ID()).Str("role", string(role)).Int("peers", len(r.members)).Msg("Session joined")

	if len(r.members) == 2 {
		r.broadcastLocked(wire.PeerJoined(), s)
	}
}

// Leave removes a session if it is a member. The remaining member, if any,
// is told the peer left. Leaving twice, or leaving a room never joined, is
// a no-op.
func (r *Room) Leave(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[s]; !ok {
		return
	}
	delete(r.roles, s)
	for i, m := range r.members {
		if m == s {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	r.log.Info().Str("session", s.ID()).Int("peers", len(r.members)).Msg("Session left")

	r.broadcastLocked(wire.PeerLeft(), nil)
}

// Relay forwards an opaque payload to every member except the sender. With
// two-slot rooms that is zero or one recipient.
func (r *Room) Relay(from Session, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(wire.WrapRelay(payload), from)
}

// Role reports the role assigned to a member session, if it is one.
func (r *Room) Role(s Session) (wire.Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[s]
	return role, ok
}

// Len returns the current member count.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

// broadcastLocked sends to every member except the origin. Per-recipient
// failures are logged and ignored so one bad transport cannot starve the
// other member. Callers hold r.mu.
func (r *Room) broadcastLocked(msg wire.Message, except Session) {
	for _, m := range r.members {
		if m == except {
			continue
		}
		if err := m.Send(msg); err != nil {
			r.log.Debug().Err(err).Str("session", m.ID()).Msg("Dropping broadcast to member")
		}
	}
}
