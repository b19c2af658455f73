// Package rtc drives offer/answer/ICE negotiation over a signal channel
// using an injected media-transport engine.
package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mzahid786/paircall/internal/media"
	"github.com/mzahid786/paircall/internal/wire"
)

// State is the negotiation progress of one call attempt.
type State int

const (
	StateIdle State = iota
	StateOffering
	StateAnswering
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Callbacks surface session output to the caller. All fields are optional.
type Callbacks struct {
	// OnRemoteStream fires when the peer's stream gains a track it did not
	// have before; the same stream object is re-announced, never duplicated.
	OnRemoteStream func(stream *RemoteStream)
	// OnStatus receives human-readable progress, including the engine's
	// connection-state changes.
	OnStatus func(status string)
	// OnError receives non-fatal trouble, e.g. a failed media path.
	OnError func(msg string)
}

// Session is the role-aware negotiation state machine for one call
// attempt. Role a offers, role b answers; both feed received payloads
// through Handle. A session is not restartable: one instance, one attempt.
type Session struct {
	role   wire.Role
	local  media.Source
	send   func(wire.Relay)
	engine Engine
	cb     Callbacks

	mu          sync.Mutex
	state       State
	started     bool
	peerPresent bool
	closed      bool
	remote      *RemoteStream
}

// NewSession wires a session to its engine. The engine's notifications are
// registered here; nothing is sent until MaybeStart or Handle.
func NewSession(role wire.Role, local media.Source, send func(wire.Relay), engine Engine, cb Callbacks) *Session {
	s := &Session{
		role:   role,
		local:  local,
		send:   send,
		engine: engine,
		cb:     cb,
		remote: &RemoteStream{ID: "remote"},
	}

	engine.OnLocalCandidate(func(candidate json.RawMessage) {
		s.send(wire.ICE(candidate))
	})
	engine.OnTrack(s.handleTrack)
	engine.OnConnectionStateChange(s.handleConnectionState)

	return s
}

// State returns the current negotiation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetPeerPresent records whether the relay layer reports two members. It
// has no side effect on its own; callers follow it with MaybeStart.
func (s *Session) SetPeerPresent(present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peerPresent = present
}

// MaybeStart begins the offer exchange if this session is role a, the peer
// is present, and no attempt has been made yet. It fires at most once per
// session, however often peer presence toggles.
func (s *Session) MaybeStart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed || !s.peerPresent || s.role != wire.RoleA {
		return nil
	}
	s.started = true
	s.state = StateOffering

	s.status("Creating offer…")
	offer, err := s.engine.CreateOffer(ctx)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.engine.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	s.send(wire.Offer(offer))
	return nil
}

// Handle processes one relayed negotiation payload. The transport delivers
// payloads one at a time; each call runs to completion before the next.
func (s *Session) Handle(ctx context.Context, msg wire.Relay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	switch msg.T {
	case wire.TypeOffer:
		s.status("Incoming offer…")
		s.state = StateAnswering
		if err := s.engine.SetRemoteDescription(msg.SDP); err != nil {
			return fmt.Errorf("apply offer: %w", err)
		}
		answer, err := s.engine.CreateAnswer(ctx)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := s.engine.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local description: %w", err)
		}
		s.send(wire.Answer(answer))
		s.state = StateConnected
		return nil

	case wire.TypeAnswer:
		if err := s.engine.SetRemoteDescription(msg.SDP); err != nil {
			return fmt.Errorf("apply answer: %w", err)
		}
		s.state = StateConnected
		return nil

	case wire.TypeICE:
		// Candidates race the descriptions; a failure here just means the
		// remote description is not set yet. No retry, no escalation.
		_ = s.engine.AddICECandidate(msg.Candidate)
		return nil

	default:
		// Chat and anything future ride the same relay but are not
		// negotiation; they are not ours to handle.
		return nil
	}
}

// SetMediaEnabled toggles the local source's tracks of one kind without
// renegotiating; the peer keeps receiving (silent or frozen) frames.
func (s *Session) SetMediaEnabled(kind media.Kind, enabled bool) {
	if s.local != nil {
		s.local.SetEnabled(kind, enabled)
	}
}

// Close releases the engine. Safe from any state, any number of times; a
// session that never negotiated closes clean.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.engine.Close()
}

// handleTrack folds the engine's track notifications into one remote
// stream. Engines that group tracks replace the stream outright; bare
// tracks accumulate, and a track already present re-announces nothing.
func (s *Session) handleTrack(ev TrackEvent) {
	s.mu.Lock()
	if ev.Stream != nil {
		s.remote = ev.Stream
		stream := s.remote
		s.mu.Unlock()
		s.announceStream(stream)
		return
	}
	if ev.Track == nil || s.remote.has(ev.Track.ID) {
		s.mu.Unlock()
		return
	}
	s.remote.tracks = append(s.remote.tracks, *ev.Track)
	stream := s.remote
	s.mu.Unlock()
	s.announceStream(stream)
}

func (s *Session) handleConnectionState(state ConnectionState) {
	switch state {
	case ConnConnected:
		s.status("Connected")
	case ConnConnecting:
		s.status("Connecting…")
	case ConnDisconnected:
		s.status("Disconnected")
	case ConnFailed:
		if s.cb.OnError != nil {
			s.cb.OnError("Connection failed")
		}
	}
}

func (s *Session) announceStream(stream *RemoteStream) {
	if s.cb.OnRemoteStream != nil {
		s.cb.OnRemoteStream(stream)
	}
}

// status must not require s.mu; it may be called with or without it held.
func (s *Session) status(text string) {
	if s.cb.OnStatus != nil {
		s.cb.OnStatus(text)
	}
}
