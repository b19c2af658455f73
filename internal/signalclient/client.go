// Package signalclient wraps one websocket connection to a room and turns
// its frames into a stream of control events.
package signalclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mzahid786/paircall/internal/wire"
)

const writeWait = 10 * time.Second

// ErrConnectFailed marks a terminal connect failure. There is no automatic
// reconnection; callers build a new channel to retry.
var ErrConnectFailed = errors.New("signaling connect failed")

type channelState int

const (
	stateIdle channelState = iota
	stateConnecting
	stateOpen
	stateClosed
)

// Channel is one client's connection to a room. Connect is single-flight,
// Send is fire-and-forget, and the event stream ends with at most one
// synthesized peer-left when the transport dies.
type Channel struct {
	url string

	mu      sync.Mutex
	state   channelState
	conn    *websocket.Conn
	writeMu sync.Mutex

	events chan wire.Message
	done   chan struct{}

	// opened records that a transport was established at least once; a
	// channel that never connected has no closure to report.
	opened bool

	// peerGone tracks whether the last membership event we delivered was a
	// peer-left; if so, the transport closing does not synthesize another.
	peerGone bool
}

// New builds a channel for the given websocket URL. Nothing is dialed
// until Connect.
func New(url string) *Channel {
	return &Channel{
		url:    url,
		events: make(chan wire.Message, 32),
		done:   make(chan struct{}),
	}
}

// Connect dials the room. Calling it while a connect is in flight or the
// channel is already open returns immediately without a second transport.
// A failed dial is terminal for this channel.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case stateConnecting, stateOpen:
		c.mu.Unlock()
		return nil
	case stateClosed:
		c.mu.Unlock()
		return fmt.Errorf("%w: channel is closed", ErrConnectFailed)
	}
	c.state = stateConnecting
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)

	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return fmt.Errorf("%w: channel closed during connect", ErrConnectFailed)
	}
	if err != nil {
		c.state = stateClosed
		c.mu.Unlock()
		c.finish()
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	c.conn = conn
	c.state = stateOpen
	c.opened = true
	c.mu.Unlock()

	go c.readPump(conn)
	return nil
}

// Events returns the inbound stream. It is closed after the transport dies
// and the final synthesized peer-left, if any, has been delivered.
func (c *Channel) Events() <-chan wire.Message {
	return c.events
}

// Send writes one negotiation payload. If the transport is not open the
// payload is silently dropped; nothing is queued for later.
func (c *Channel) Send(payload wire.Relay) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == stateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return
	}

	data, err := payload.Encode()
	if err != nil {
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears the channel down from any state: never connected, mid
// connect, open, or already closed. Intentional departure uses the normal
// close code.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.closeConn(conn, wire.CloseNormal, "bye")
	} else {
		c.finish()
	}
}

// readPump parses inbound frames and forwards them to the subscriber.
// Malformed frames are discarded. A full message is delivered and then the
// channel closes itself: the server has no member slot for us, so no relay
// traffic can follow.
func (c *Channel) readPump(conn *websocket.Conn) {
	defer c.finish()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := wire.DecodeMessage(data)
		if err != nil {
			continue
		}

		switch msg.T {
		case wire.TypePeerLeft:
			c.setPeerGone(true)
		case wire.TypePeerJoined:
			c.setPeerGone(false)
		case wire.TypeHello:
			c.setPeerGone(msg.Peers < 2)
		}

		c.deliver(msg)

		if msg.T == wire.TypeFull {
			c.mu.Lock()
			c.state = stateClosed
			c.mu.Unlock()
			c.closeConn(conn, wire.CloseRoomFull, "room full")
			return
		}
	}
}

// finish runs once per channel, when the transport is gone for good. It
// synthesizes the peer-left the server can no longer send, so callers need
// not distinguish "peer left" from "my transport died".
func (c *Channel) finish() {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return
	default:
	}
	close(c.done)
	c.state = stateClosed
	synthesize := c.opened && !c.peerGone
	c.mu.Unlock()

	if synthesize {
		select {
		case c.events <- wire.PeerLeft():
		default:
		}
	}
	close(c.events)
}

func (c *Channel) deliver(msg wire.Message) {
	select {
	case c.events <- msg:
	case <-c.done:
	}
}

func (c *Channel) setPeerGone(gone bool) {
	c.mu.Lock()
	c.peerGone = gone
	c.mu.Unlock()
}

func (c *Channel) closeConn(conn *websocket.Conn, code int, reason string) {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	c.writeMu.Unlock()
	conn.Close()
}
