// Package wire defines the two JSON message vocabularies spoken over the
// signaling websocket: the room-control envelope exchanged between server
// and client, and the negotiation payload relayed opaquely between peers.
package wire

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is sent in every hello message.
const ProtocolVersion = 1

// Role identifies a member's slot in a room. The first joiner is "a" and
// initiates the offer; the second is "b" and answers.
type Role string

const (
	RoleA Role = "a"
	RoleB Role = "b"
)

// Room-control message tags.
const (
	TypeHello      = "hello"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeFull       = "full"
	TypeRelay      = "relay"
)

// Relay payload tags.
const (
	TypeOffer  = "offer"
	TypeAnswer = "answer"
	TypeICE    = "ice"
	TypeChat   = "chat"
)

// Close codes used on the signaling socket.
const (
	// CloseNormal marks an intentional client departure.
	CloseNormal = 1000
	// CloseRoomFull is the policy-violation code sent to a rejected third
	// joiner, and reproduced client-side when a full message arrives.
	CloseRoomFull = 1008
)

// Message is the room-control envelope. Only the fields relevant to the
// tag in T are populated; the relay payload stays opaque to the room.
type Message struct {
	T       string          `json:"t"`
	V       int             `json:"v,omitempty"`
	Role    Role            `json:"role,omitempty"`
	Peers   int             `json:"peers,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello builds the greeting sent to a newly joined session. peers reflects
// membership after the join.
func Hello(role Role, peers int) Message {
	return Message{T: TypeHello, V: ProtocolVersion, Role: role, Peers: peers}
}

// PeerJoined announces to an existing member that the second slot filled.
func PeerJoined() Message { return Message{T: TypePeerJoined} }

// PeerLeft announces to the remaining member that the other slot emptied.
func PeerLeft() Message { return Message{T: TypePeerLeft} }

// Full tells a rejected third joiner that both slots are taken.
func Full() Message { return Message{T: TypeFull} }

// WrapRelay wraps an opaque negotiation payload for forwarding.
func WrapRelay(payload json.RawMessage) Message {
	return Message{T: TypeRelay, Payload: payload}
}

// DecodeMessage parses a room-control frame, enforcing the discriminant.
// Unknown tags are an error so the caller can drop the frame at the
// boundary instead of acting on it.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode control frame: %w", err)
	}
	switch msg.T {
	case TypeHello:
		if msg.Role != RoleA && msg.Role != RoleB {
			return Message{}, fmt.Errorf("hello with unknown role %q", msg.Role)
		}
	case TypePeerJoined, TypePeerLeft, TypeFull:
	case TypeRelay:
		if len(msg.Payload) == 0 {
			return Message{}, fmt.Errorf("relay without payload")
		}
	default:
		return Message{}, fmt.Errorf("unknown control tag %q", msg.T)
	}
	return msg, nil
}

// Relay is the negotiation payload carried inside a relay envelope. SDP and
// Candidate bodies are opaque here; only the engine interprets them.
type Relay struct {
	T         string          `json:"t"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Text      string          `json:"text,omitempty"`
	TS        int64           `json:"ts,omitempty"`
}

// Offer builds an offer payload around an opaque session description.
func Offer(sdp json.RawMessage) Relay { return Relay{T: TypeOffer, SDP: sdp} }

// Answer builds an answer payload around an opaque session description.
func Answer(sdp json.RawMessage) Relay { return Relay{T: TypeAnswer, SDP: sdp} }

// ICE builds a candidate payload.
func ICE(candidate json.RawMessage) Relay { return Relay{T: TypeICE, Candidate: candidate} }

// Chat builds a chat payload. ts is milliseconds since the Unix epoch.
func Chat(text string, ts int64) Relay { return Relay{T: TypeChat, Text: text, TS: ts} }

// DecodeRelay parses a negotiation payload, enforcing the discriminant and
// the fields each tag requires. The room uses this to refuse forwarding
// arbitrary JSON; the client uses it to dispatch.
func DecodeRelay(data []byte) (Relay, error) {
	var msg Relay
	if err := json.Unmarshal(data, &msg); err != nil {
		return Relay{}, fmt.Errorf("decode relay payload: %w", err)
	}
	switch msg.T {
	case TypeOffer, TypeAnswer:
		if len(msg.SDP) == 0 {
			return Relay{}, fmt.Errorf("%s without sdp", msg.T)
		}
	case TypeICE:
		if len(msg.Candidate) == 0 {
			return Relay{}, fmt.Errorf("ice without candidate")
		}
	case TypeChat:
	default:
		return Relay{}, fmt.Errorf("unknown relay tag %q", msg.T)
	}
	return msg, nil
}

// Encode marshals a control message for the wire.
func (m Message) Encode() ([]byte, error) { return json.Marshal(m) }

// Encode marshals a relay payload for the wire.
func (r Relay) Encode() ([]byte, error) { return json.Marshal(r) }
