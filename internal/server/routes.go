// Package server exposes the signaling relay over HTTP: a health probe and
// the websocket upgrade endpoint that feeds sessions into rooms.
package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mzahid786/paircall/internal/codes"
	"github.com/mzahid786/paircall/internal/config"
	"github.com/mzahid786/paircall/internal/room"
)

// Server wires the room registry to its HTTP surface.
type Server struct {
	registry *room.Registry
	cfg      *config.Server
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// New builds the HTTP layer around a registry.
func New(registry *room.Registry, cfg *config.Server, log zerolog.Logger) *Server {
	return &Server{
		registry: registry,
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The room code is the only admission control; origins are not.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the router for both endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/ws/{code}", s.handleWS)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleWS validates the room code, upgrades the connection and runs the
// session until its transport dies. The code check comes first: a bad code
// fails the request before any room state exists.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	code, err := url.PathUnescape(chi.URLParam(r, "code"))
	if err != nil || !codes.Valid(code) {
		http.Error(w, "Room code must be 6+ characters", http.StatusBadRequest)
		return
	}

	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Upgrade required", http.StatusUpgradeRequired)
		return
	}

	rm, err := s.registry.Resolve(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	sess := newSession(conn, s.cfg, s.log.With().Str("room", rm.Code()).Logger())
	go sess.writePump()

	rm.Join(sess)
	defer func() {
		rm.Leave(sess)
		sess.stop()
	}()

	sess.readLoop(rm)
}
