package room

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mzahid786/paircall/internal/codes"
)

// ErrInvalidCode is returned for codes shorter than six characters after
// normalization, before any room state exists for them.
var ErrInvalidCode = errors.New("room code must be 6+ characters")

// Registry resolves a normalized room code to its one room instance.
// Resolution is create-if-absent and idempotent: every participant using
// the same code lands in the same room for the life of the process.
type Registry struct {
	log zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:   log,
		rooms: make(map[string]*Room),
	}
}

// Resolve validates the code and returns its room, creating it on first
// use. Emptied rooms are kept: a returning caller with the same code gets
// the same room identity back.
func (g *Registry) Resolve(code string) (*Room, error) {
	norm := codes.Normalize(code)
	if len(norm) < codes.MinLength {
		return nil, ErrInvalidCode
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[norm]
	if !ok {
		r = newRoom(norm, g.log)
		g.rooms[norm] = r
		g.log.Info().Str("room", norm).Msg("Room created")
	}
	return r, nil
}

// Len returns the number of rooms ever created.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.rooms)
}
