// Package config resolves settings for both binaries with the same
// precedence everywhere: CLI flag, then environment variable, then default.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultAddr   = ":8080"
	DefaultServer = "ws://localhost:8080"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

// Server holds the signaling server settings.
type Server struct {
	Addr string

	// Websocket tuning shared with the session pumps.
	WriteWait    time.Duration
	PongWait     time.Duration
	PingPeriod   time.Duration
	MaxFrameSize int64
	SendBuffer   int
}

// LoadServer reads server settings from the environment.
func LoadServer() *Server {
	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = DefaultAddr
	}

	return &Server{
		Addr:         addr,
		WriteWait:    10 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   54 * time.Second,
		MaxFrameSize: 64 * 1024, // enough for any SDP
		SendBuffer:   32,
	}
}

// Client holds the call client settings.
type Client struct {
	// ServerURL is the signaling server base, http(s) or ws(s) scheme.
	ServerURL string

	STUNServers []string
	TURNServer  string
	TURNUser    string
	TURNPass    string
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Server   string
	STUN     string
	TURN     string
	TURNUser string
	TURNPass string
}

// LoadClient resolves client settings: flag over env over default.
func LoadClient(opts Options) (*Client, error) {
	server := firstOf(opts.Server, os.Getenv("PAIRCALL_SERVER"), DefaultServer)
	stun := firstOf(opts.STUN, os.Getenv("PAIRCALL_STUN"), DefaultSTUN)
	turn := firstOf(opts.TURN, os.Getenv("PAIRCALL_TURN"), "")

	cfg := &Client{
		ServerURL:   server,
		STUNServers: strings.Split(stun, ","),
		TURNServer:  turn,
		TURNUser:    firstOf(opts.TURNUser, os.Getenv("PAIRCALL_TURN_USER"), ""),
		TURNPass:    firstOf(opts.TURNPass, os.Getenv("PAIRCALL_TURN_PASS"), ""),
	}

	if cfg.TURNServer != "" && (cfg.TURNUser == "" || cfg.TURNPass == "") {
		return nil, fmt.Errorf("TURN server configured without credentials")
	}
	return cfg, nil
}

// SignalURL builds the websocket URL for a room code from the server base,
// converting http(s) schemes to their websocket counterparts.
func (c *Client) SignalURL(code string) (string, error) {
	base := strings.TrimSuffix(strings.TrimSpace(c.ServerURL), "/")
	switch {
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	default:
		return "", fmt.Errorf("server URL %q: unsupported scheme", c.ServerURL)
	}
	return base + "/ws/" + url.PathEscape(code), nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
