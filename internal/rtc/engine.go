package rtc

import (
	"context"
	"encoding/json"
)

// ConnectionState is the engine's transport-level state. It is reported to
// callers as status text and is deliberately not part of the negotiation
// FSM, which only tracks offer/answer progress.
type ConnectionState int

const (
	ConnConnecting ConnectionState = iota
	ConnConnected
	ConnDisconnected
	ConnFailed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	case ConnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RemoteTrack describes one inbound media track.
type RemoteTrack struct {
	ID       string
	Kind     string // "audio" or "video"
	StreamID string
}

// RemoteStream groups the peer's tracks. Engines that already group tracks
// hand a stream over whole; otherwise the session builds one.
type RemoteStream struct {
	ID     string
	tracks []RemoteTrack
}

// Tracks returns the stream's tracks in arrival order.
func (s *RemoteStream) Tracks() []RemoteTrack {
	out := make([]RemoteTrack, len(s.tracks))
	copy(out, s.tracks)
	return out
}

func (s *RemoteStream) has(id string) bool {
	for _, t := range s.tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// TrackEvent is the engine's track-arrival notification. Exactly one of
// Stream and Track is set: Stream when the engine groups tracks itself,
// Track when it delivers them one at a time.
type TrackEvent struct {
	Stream *RemoteStream
	Track  *RemoteTrack
}

// Engine is the injectable media-transport surface the session drives.
// Descriptions and candidates cross this boundary as opaque JSON so the
// FSM stays independent of any particular WebRTC stack.
type Engine interface {
	CreateOffer(ctx context.Context) (json.RawMessage, error)
	CreateAnswer(ctx context.Context) (json.RawMessage, error)
	SetLocalDescription(sdp json.RawMessage) error
	SetRemoteDescription(sdp json.RawMessage) error
	AddICECandidate(candidate json.RawMessage) error

	OnLocalCandidate(fn func(candidate json.RawMessage))
	OnTrack(fn func(ev TrackEvent))
	OnConnectionStateChange(fn func(state ConnectionState))

	Close() error
}
