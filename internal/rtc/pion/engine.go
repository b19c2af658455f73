// Package pion implements the rtc.Engine port on pion/webrtc. It is the
// production media-transport; the negotiation FSM never imports it.
package pion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/mzahid786/paircall/internal/media"
	"github.com/mzahid786/paircall/internal/rtc"
)

// Config selects the ICE servers for the peer connection.
type Config struct {
	STUNServers []string
	TURNServer  string
	TURNUser    string
	TURNPass    string
}

// Engine wraps one PeerConnection behind the rtc.Engine port.
type Engine struct {
	pc *webrtc.PeerConnection
}

// New builds a peer connection with the local source's tracks attached.
// A source with no tracks yields a receive-only connection: the call still
// negotiates and carries the peer's media one way.
func New(cfg Config, local media.Source) (*Engine, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.STUNServers}}
	if cfg.TURNServer != "" {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       []string{cfg.TURNServer},
			Username:   cfg.TURNUser,
			Credential: cfg.TURNPass,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:           iceServers,
		ICECandidatePoolSize: 10,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	tracks := local.Tracks()
	for _, t := range tracks {
		if _, err := pc.AddTrack(t); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add local track: %w", err)
		}
	}
	if len(tracks) == 0 {
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				pc.Close()
				return nil, fmt.Errorf("add recvonly transceiver: %w", err)
			}
		}
	}

	return &Engine{pc: pc}, nil
}

func (e *Engine) CreateOffer(ctx context.Context) (json.RawMessage, error) {
	offer, err := e.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(offer)
}

func (e *Engine) CreateAnswer(ctx context.Context) (json.RawMessage, error) {
	answer, err := e.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answer)
}

func (e *Engine) SetLocalDescription(sdp json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(sdp, &desc); err != nil {
		return fmt.Errorf("parse local description: %w", err)
	}
	return e.pc.SetLocalDescription(desc)
}

func (e *Engine) SetRemoteDescription(sdp json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(sdp, &desc); err != nil {
		return fmt.Errorf("parse remote description: %w", err)
	}
	return e.pc.SetRemoteDescription(desc)
}

func (e *Engine) AddICECandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("parse ICE candidate: %w", err)
	}
	return e.pc.AddICECandidate(init)
}

// OnLocalCandidate forwards gathered candidates; the end-of-gathering nil
// candidate is not a candidate and is not forwarded.
func (e *Engine) OnLocalCandidate(fn func(candidate json.RawMessage)) {
	e.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(data)
	})
}

// OnTrack delivers inbound tracks one at a time; pion has no stream
// grouping of its own, the session synthesizes the stream. A drain
// goroutine keeps the RTP flowing so the transport does not stall.
func (e *Engine) OnTrack(fn func(ev rtc.TrackEvent)) {
	e.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		go drain(track)
		fn(rtc.TrackEvent{Track: &rtc.RemoteTrack{
			ID:       track.ID(),
			Kind:     track.Kind().String(),
			StreamID: track.StreamID(),
		}})
	})
}

func (e *Engine) OnConnectionStateChange(fn func(state rtc.ConnectionState)) {
	e.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateConnecting:
			fn(rtc.ConnConnecting)
		case webrtc.PeerConnectionStateConnected:
			fn(rtc.ConnConnected)
		case webrtc.PeerConnectionStateDisconnected:
			fn(rtc.ConnDisconnected)
		case webrtc.PeerConnectionStateFailed:
			fn(rtc.ConnFailed)
		}
	})
}

func (e *Engine) Close() error {
	return e.pc.Close()
}

func drain(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}
