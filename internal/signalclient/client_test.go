package signalclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mzahid786/paircall/internal/wire"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newWSServer runs handler for every websocket connection and returns the
// ws:// URL to dial.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) (string, *int32) {
	t.Helper()
	var upgrades int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&upgrades, 1)
		handler(conn)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http"), &upgrades
}

func recvEvent(t *testing.T, c *Channel) (wire.Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.Events():
		return msg, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return wire.Message{}, false
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	url, upgrades := newWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(url)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(upgrades); n != 1 {
		t.Errorf("server saw %d transports, want 1", n)
	}
}

func TestConnectFailureIsTerminal(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws/ABC123")

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("Connect returned %v, want ErrConnectFailed", err)
	}

	// The channel is done for: no events, and further connects fail.
	if _, ok := <-c.Events(); ok {
		t.Error("failed channel delivered an event")
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrConnectFailed) {
		t.Errorf("retry on the same channel returned %v, want ErrConnectFailed", err)
	}
}

func TestSendBeforeConnectIsDropped(t *testing.T) {
	c := New("ws://example.invalid/ws/ABC123")

	// Must neither panic nor queue anything.
	c.Send(wire.Chat("into the void", 1))
	c.Close()
}

func TestMalformedFramesAreDiscarded(t *testing.T) {
	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("garbage"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"wat"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"hello","v":1,"role":"a","peers":1}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(url)
	defer c.Close()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	msg, ok := recvEvent(t, c)
	if !ok || msg.T != wire.TypeHello {
		t.Errorf("first delivered event = %+v, want the hello after the garbage", msg)
	}
}

func TestFullDeliversThenSelfCloses(t *testing.T) {
	serverSawClose := make(chan int, 1)
	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"full"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					serverSawClose <- closeErr.Code
				}
				return
			}
		}
	})

	c := New(url)
	defer c.Close()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	msg, _ := recvEvent(t, c)
	if msg.T != wire.TypeFull {
		t.Fatalf("first event = %q, want full", msg.T)
	}

	select {
	case code := <-serverSawClose:
		if code != wire.CloseRoomFull {
			t.Errorf("channel closed with %d, want %d", code, wire.CloseRoomFull)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed itself after full")
	}
}

func TestTransportCloseSynthesizesOnePeerLeft(t *testing.T) {
	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"hello","v":1,"role":"a","peers":2}`))
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	})

	c := New(url)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	msg, _ := recvEvent(t, c)
	if msg.T != wire.TypeHello {
		t.Fatalf("first event = %q, want hello", msg.T)
	}

	msg, ok := recvEvent(t, c)
	if !ok || msg.T != wire.TypePeerLeft {
		t.Fatalf("expected synthesized peer-left, got %+v (ok=%v)", msg, ok)
	}

	if _, ok := recvEvent(t, c); ok {
		t.Error("received an event after the synthesized peer-left; stream should be closed")
	}
}

func TestServerPeerLeftIsNotDuplicatedOnClose(t *testing.T) {
	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"peer-left"}`))
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	})

	c := New(url)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	peerLefts := 0
	for msg := range c.Events() {
		if msg.T == wire.TypePeerLeft {
			peerLefts++
		}
	}
	if peerLefts != 1 {
		t.Errorf("received %d peer-left events, want exactly 1", peerLefts)
	}
}

func TestCloseIsSafeFromAnyState(t *testing.T) {
	// Never connected.
	c := New("ws://example.invalid/ws/ABC123")
	c.Close()
	c.Close() // and again

	// Open.
	url, _ := newWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c2 := New(url)
	if err := c2.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	c2.Close()
	c2.Close()

	// A closed channel's stream terminates.
	for range c2.Events() {
	}
}
