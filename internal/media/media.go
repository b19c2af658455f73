// Package media supplies the local media source the call attaches to its
// peer connection. Capture devices and quality heuristics live outside
// this repository; a source only needs start/stop/enable semantics and
// tracks to hand to the engine.
package media

import "github.com/pion/webrtc/v4"

// Kind selects which of a source's tracks SetEnabled applies to.
type Kind string

const (
	Audio Kind = "audio"
	Video Kind = "video"
)

// Source is the local media collaborator.
type Source interface {
	// Start begins producing samples. Idempotent.
	Start() error

	// Stop ends production and releases any backing resources.
	Stop()

	// SetEnabled toggles tracks of one kind without removing them.
	SetEnabled(kind Kind, enabled bool)

	// Tracks returns the local tracks to attach to a peer connection,
	// possibly none.
	Tracks() []webrtc.TrackLocal
}

// Silent is a source with no tracks: the call becomes receive-only plus
// chat. It is what the CLI uses when no media file is supplied.
type Silent struct{}

func (Silent) Start() error                { return nil }
func (Silent) Stop()                       {}
func (Silent) SetEnabled(Kind, bool)       {}
func (Silent) Tracks() []webrtc.TrackLocal { return nil }
