package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mzahid786/paircall/internal/wire"
)

// fakeSession records everything the room does to it.
type fakeSession struct {
	id string

	mu        sync.Mutex
	sent      []wire.Message
	closed    bool
	closeCode int
	sendErr   error
}

func newFakeSession(id string) *fakeSession { return &fakeSession{id: id} }

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) Send(msg wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSession) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCode = code
	return nil
}

func (f *fakeSession) messages() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wire.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSession) count(tag string) int {
	n := 0
	for _, m := range f.messages() {
		if m.T == tag {
			n++
		}
	}
	return n
}

func testRoom() *Room { return newRoom("ABC123", zerolog.Nop()) }

func TestJoinAssignsRolesInOrder(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	b := newFakeSession("b")

	r.Join(a)
	r.Join(b)

	if role, _ := r.Role(a); role != wire.RoleA {
		t.Errorf("first joiner got role %q, want a", role)
	}
	if role, _ := r.Role(b); role != wire.RoleB {
		t.Errorf("second joiner got role %q, want b", role)
	}

	aMsgs := a.messages()
	if len(aMsgs) == 0 || aMsgs[0].T != wire.TypeHello || aMsgs[0].Role != wire.RoleA || aMsgs[0].Peers != 1 {
		t.Errorf("first joiner's first message = %+v, want hello{role:a, peers:1}", aMsgs)
	}

	bMsgs := b.messages()
	if len(bMsgs) != 1 || bMsgs[0].T != wire.TypeHello || bMsgs[0].Role != wire.RoleB || bMsgs[0].Peers != 2 {
		t.Errorf("second joiner's messages = %+v, want only hello{role:b, peers:2}", bMsgs)
	}

	// The first joiner hears about the second, never about itself.
	if a.count(wire.TypePeerJoined) != 1 {
		t.Errorf("first joiner received %d peer-joined, want 1", a.count(wire.TypePeerJoined))
	}
	if b.count(wire.TypePeerJoined) != 0 {
		t.Errorf("second joiner received %d peer-joined, want 0", b.count(wire.TypePeerJoined))
	}
}

func TestThirdJoinerIsRejected(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	b := newFakeSession("b")
	c := newFakeSession("c")

	r.Join(a)
	r.Join(b)
	r.Join(c)

	if r.Len() != 2 {
		t.Fatalf("member count = %d, want 2", r.Len())
	}
	if _, ok := r.Role(c); ok {
		t.Error("rejected joiner was assigned a role")
	}

	cMsgs := c.messages()
	if len(cMsgs) != 1 || cMsgs[0].T != wire.TypeFull {
		t.Errorf("rejected joiner's messages = %+v, want only full", cMsgs)
	}
	if !c.closed || c.closeCode != wire.CloseRoomFull {
		t.Errorf("rejected joiner not closed with %d, got closed=%v code=%d", wire.CloseRoomFull, c.closed, c.closeCode)
	}

	// Existing members saw nothing from the rejected attempt.
	if a.count(wire.TypePeerJoined) != 1 || b.count(wire.TypePeerJoined) != 0 {
		t.Error("rejected join leaked a peer-joined broadcast")
	}
	if roleA, _ := r.Role(a); roleA != wire.RoleA {
		t.Error("rejected join disturbed existing roles")
	}
}

func TestRelayReachesOnlyTheOtherMember(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	b := newFakeSession("b")
	r.Join(a)
	r.Join(b)

	payload := json.RawMessage(`{"t":"offer","sdp":{"type":"offer","sdp":"v=0"}}`)
	r.Relay(a, payload)

	if a.count(wire.TypeRelay) != 0 {
		t.Error("sender received its own relay")
	}
	if b.count(wire.TypeRelay) != 1 {
		t.Fatalf("recipient received %d relays, want 1", b.count(wire.TypeRelay))
	}
	for _, m := range b.messages() {
		if m.T == wire.TypeRelay && string(m.Payload) != string(payload) {
			t.Errorf("payload changed in transit: got %s", m.Payload)
		}
	}
}

func TestRelayWithNoPeerGoesNowhere(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	r.Join(a)

	r.Relay(a, json.RawMessage(`{"t":"chat","text":"anyone?"}`))

	if a.count(wire.TypeRelay) != 0 {
		t.Error("lone member received its own relay")
	}
}

func TestLeaveNotifiesRemainingMemberOnce(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	b := newFakeSession("b")
	r.Join(a)
	r.Join(b)

	r.Leave(a)
	r.Leave(a) // repeat leave must not re-broadcast

	if got := b.count(wire.TypePeerLeft); got != 1 {
		t.Errorf("remaining member received %d peer-left, want 1", got)
	}
	if r.Len() != 1 {
		t.Errorf("member count = %d, want 1", r.Len())
	}
}

func TestLeaveOfNonMemberIsNoOp(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	stranger := newFakeSession("stranger")
	r.Join(a)

	r.Leave(stranger)

	if r.Len() != 1 {
		t.Errorf("member count = %d, want 1", r.Len())
	}
	if a.count(wire.TypePeerLeft) != 0 {
		t.Error("no-op leave broadcast a peer-left")
	}
}

func TestRoomRefillsAfterLeave(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	b := newFakeSession("b")
	c := newFakeSession("c")

	r.Join(a)
	r.Join(b)
	r.Leave(a)
	r.Join(c)

	// The freed slot goes to the newcomer with role b's predecessor logic:
	// one existing member means the joiner is the second.
	if role, _ := r.Role(c); role != wire.RoleB {
		t.Errorf("refill joiner got role %q, want b", role)
	}
	if r.Len() != 2 {
		t.Errorf("member count = %d, want 2", r.Len())
	}
}

func TestBroadcastFailureDoesNotAffectOthers(t *testing.T) {
	r := testRoom()
	a := newFakeSession("a")
	b := newFakeSession("b")
	a.sendErr = errors.New("transport wedged")
	r.Join(b) // joins fine
	r.Join(a) // hello fails, membership still granted

	if r.Len() != 2 {
		t.Fatalf("member count = %d, want 2", r.Len())
	}

	// Relay from b must still be attempted toward a without erroring, and a
	// relay from a must still reach b.
	r.Relay(b, json.RawMessage(`{"t":"chat","text":"x"}`))
	r.Relay(a, json.RawMessage(`{"t":"chat","text":"y"}`))

	if b.count(wire.TypeRelay) != 1 {
		t.Errorf("healthy member received %d relays, want 1", b.count(wire.TypeRelay))
	}
}

func TestConcurrentJoinsNeverExceedTwoMembers(t *testing.T) {
	r := testRoom()

	const attempts = 32
	var wg sync.WaitGroup
	sessions := make([]*fakeSession, attempts)
	for i := 0; i < attempts; i++ {
		sessions[i] = newFakeSession(fmt.Sprintf("s%d", i))
		wg.Add(1)
		go func(s *fakeSession) {
			defer wg.Done()
			r.Join(s)
		}(sessions[i])
	}
	wg.Wait()

	if r.Len() != 2 {
		t.Fatalf("member count = %d, want exactly 2", r.Len())
	}

	admitted, rejected := 0, 0
	for _, s := range sessions {
		if _, ok := r.Role(s); ok {
			admitted++
		} else {
			if s.count(wire.TypeFull) != 1 || !s.closed {
				t.Errorf("session %s rejected without full+close", s.id)
			}
			rejected++
		}
	}
	if admitted != 2 || rejected != attempts-2 {
		t.Errorf("admitted=%d rejected=%d, want 2/%d", admitted, rejected, attempts-2)
	}
}

func TestRegistryResolveIsIdempotent(t *testing.T) {
	g := NewRegistry(zerolog.Nop())

	r1, err := g.Resolve("abc123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	r2, err := g.Resolve("  ABC 123  ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r1 != r2 {
		t.Error("equivalent codes resolved to different rooms")
	}
	if g.Len() != 1 {
		t.Errorf("registry holds %d rooms, want 1", g.Len())
	}
}

func TestRegistryRejectsShortCodesWithoutCreatingRooms(t *testing.T) {
	g := NewRegistry(zerolog.Nop())

	for _, code := range []string{"", "abc", "ab c1", "     ", "ABC12"} {
		if _, err := g.Resolve(code); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("Resolve(%q) = %v, want ErrInvalidCode", code, err)
		}
	}
	if g.Len() != 0 {
		t.Errorf("registry created %d rooms for invalid codes", g.Len())
	}
}

func TestEmptiedRoomPersists(t *testing.T) {
	g := NewRegistry(zerolog.Nop())

	r1, _ := g.Resolve("ABC123")
	a := newFakeSession("a")
	r1.Join(a)
	r1.Leave(a)

	r2, _ := g.Resolve("ABC123")
	if r1 != r2 {
		t.Error("emptied room was evicted; same code should return the same instance")
	}
}
