package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/logger"
)

type fakeMetrics struct {
	mu      sync.Mutex
	rooms   int
	relayed map[string]int
	dropped map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{relayed: map[string]int{}, dropped: map[string]int{}}
}

func (m *fakeMetrics) AddSignalingRooms(delta int) {
	m.mu.Lock()
	m.rooms += delta
	m.mu.Unlock()
}

func (m *fakeMetrics) IncFrameRelayed(t string) {
	m.mu.Lock()
	m.relayed[t]++
	m.mu.Unlock()
}

func (m *fakeMetrics) IncFrameDropped(reason string) {
	m.mu.Lock()
	m.dropped[reason]++
	m.mu.Unlock()
}

type chanStore struct{ ch chan domain.ChatMessage }

func (s chanStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.ch <- msg
	return nil
}

func newRelay(t *testing.T) (*Relay, *Registry, *fakeMetrics, chanStore) {
	t.Helper()
	m := newFakeMetrics()
	reg := NewRegistry(2*time.Hour, logger.Nop(), m)
	store := chanStore{ch: make(chan domain.ChatMessage, 16)}
	return NewRelay(reg, store, 16, logger.Nop(), m), reg, m, store
}

func next(t *testing.T, p *Participant) Frame {
	t.Helper()
	select {
	case f := <-p.Outbound():
		return f
	case <-time.After(time.Second):
		t.Fatalf("participant %d received nothing", p.ID)
		return Frame{}
	}
}

func assertNoFrame(t *testing.T, p *Participant) {
	t.Helper()
	select {
	case f := <-p.Outbound():
		t.Fatalf("participant %d got unexpected %s frame", p.ID, f.Type)
	default:
	}
}

func payload(s string) json.RawMessage { return json.RawMessage(s) }

func TestRegistry_JoinPresenceAndStates(t *testing.T) {
	_, reg, m, _ := newRelay(t)
	client := NewParticipant(11, domain.RoleClient, 8)
	provider := NewParticipant(21, domain.RoleProvider, 8)

	reg.Activate("s1")
	state, ok := reg.State("s1")
	require.True(t, ok)
	assert.Equal(t, NoParticipants, state)

	assert.Equal(t, OneJoined, reg.Join("s1", client))
	joined := next(t, client)
	assert.Equal(t, FrameJoined, joined.Type)

	assert.Equal(t, BothJoined, reg.Join("s1", provider))

	var presence PresencePayload
	self := next(t, provider)
	require.Equal(t, FrameJoined, self.Type)
	require.NoError(t, json.Unmarshal(self.Payload, &presence))
	assert.Equal(t, []int64{11}, presence.Peers)

	notice := next(t, client)
	assert.Equal(t, FramePeerJoined, notice.Type)
	assert.Equal(t, int64(21), notice.From)

	assert.Equal(t, 1, m.rooms)
}

func TestRelay_ForwardsToPeersInOrder(t *testing.T) {
	relay, reg, m, _ := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 16)
	b := NewParticipant(21, domain.RoleProvider, 16)
	reg.Join("s1", a)
	reg.Join("s1", b)
	next(t, a) // joined
	next(t, a) // peer-joined
	next(t, b) // joined

	frames := []Frame{
		{Type: FrameOffer, Payload: payload(`{"sdp":"m1"}`)},
		{Type: FrameICECandidate, Payload: payload(`{"candidate":"m2"}`)},
		{Type: FrameICECandidate, Payload: payload(`{"candidate":"m3"}`)},
	}
	for _, f := range frames {
		require.NoError(t, relay.Relay("s1", a, f))
	}

	for _, want := range frames {
		got := next(t, b)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, int64(11), got.From)
		assert.JSONEq(t, string(want.Payload), string(got.Payload))
	}
	assertNoFrame(t, a)
	assert.Equal(t, 2, m.relayed[FrameICECandidate])
}

func TestRelay_PerSenderOrderUnderConcurrency(t *testing.T) {
	relay, reg, _, _ := newRelay(t)
	const perSender = 200
	a := NewParticipant(1, domain.RoleClient, perSender+8)
	b := NewParticipant(2, domain.RoleProvider, perSender+8)
	c := NewParticipant(3, domain.RoleClient, 2*perSender+8)
	reg.Join("s1", c)
	reg.Join("s1", a)
	reg.Join("s1", b)

	var wg sync.WaitGroup
	for _, sender := range []*Participant{a, b} {
		wg.Add(1)
		go func(p *Participant) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_ = relay.Relay("s1", p, Frame{Type: FrameICECandidate, Payload: payload(fmt.Sprintf(`{"seq":%d}`, i))})
			}
		}(sender)
	}
	wg.Wait()

	last := map[int64]int{1: -1, 2: -1}
	received := 0
	for received < 2*perSender {
		f := next(t, c)
		if f.Type != FrameICECandidate {
			continue
		}
		var body struct{ Seq int }
		require.NoError(t, json.Unmarshal(f.Payload, &body))
		assert.Equal(t, last[f.From]+1, body.Seq, "sender %d out of order", f.From)
		last[f.From] = body.Seq
		received++
	}
}

func TestRelay_RejectsInvalidFrames(t *testing.T) {
	relay, reg, _, _ := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 8)
	outsider := NewParticipant(99, domain.RoleClient, 8)
	reg.Join("s1", a)

	assert.ErrorIs(t, relay.Relay("s1", a, Frame{Type: FrameJoined}), ErrUnknownFrameType)
	assert.ErrorIs(t, relay.Relay("s1", outsider, Frame{Type: FrameOffer}), ErrNotJoined)
	assert.ErrorIs(t, relay.Relay("missing", a, Frame{Type: FrameOffer}), ErrRoomNotFound)

	long := fmt.Sprintf(`{"text":%q}`, strings.Repeat("a", domain.MaxChatMessageLength+1))
	assert.ErrorIs(t, relay.Relay("s1", a, Frame{Type: FrameChat, Payload: payload(long)}), ErrInvalidChat)
	assert.ErrorIs(t, relay.Relay("s1", a, Frame{Type: FrameChat, Payload: payload(`{"text":"  "}`)}), ErrInvalidChat)
}

func TestRelay_ChatIsPersistedAsynchronously(t *testing.T) {
	relay, reg, _, store := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 8)
	b := NewParticipant(21, domain.RoleProvider, 8)
	reg.Join("s1", a)
	reg.Join("s1", b)

	require.NoError(t, relay.Relay("s1", a, Frame{Type: FrameChat, Payload: payload(`{"text":"안녕하세요"}`)}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	select {
	case msg := <-store.ch:
		assert.Equal(t, "s1", msg.SessionID)
		assert.Equal(t, int64(11), msg.SenderID)
		assert.Equal(t, domain.RoleClient, msg.SenderRole)
		assert.Equal(t, "안녕하세요", msg.Text)
	case <-time.After(time.Second):
		t.Fatal("chat message was not persisted")
	}

	cancel()
	<-done
}

func TestRelay_ChatQueueFullDropsPersistenceOnly(t *testing.T) {
	m := newFakeMetrics()
	reg := NewRegistry(time.Hour, logger.Nop(), m)
	relay := NewRelay(reg, chanStore{ch: make(chan domain.ChatMessage, 1)}, 1, logger.Nop(), m)
	a := NewParticipant(11, domain.RoleClient, 8)
	b := NewParticipant(21, domain.RoleProvider, 8)
	reg.Join("s1", a)
	reg.Join("s1", b)
	next(t, b) // joined

	for i := 0; i < 3; i++ {
		require.NoError(t, relay.Relay("s1", a, Frame{Type: FrameChat, Payload: payload(`{"text":"hi"}`)}))
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, FrameChat, next(t, b).Type)
	}
	assert.Equal(t, 2, m.dropped["chat_queue_full"])
}

func TestRegistry_LeaveAndRejoin(t *testing.T) {
	relay, reg, _, _ := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 8)
	b := NewParticipant(21, domain.RoleProvider, 8)
	reg.Join("s1", a)
	reg.Join("s1", b)
	next(t, a)
	next(t, a)
	next(t, b)

	reg.Leave("s1", b)
	left := next(t, a)
	assert.Equal(t, FramePeerLeft, left.Type)
	state, _ := reg.State("s1")
	assert.Equal(t, OneJoined, state)

	// relay to a departed peer is silently dropped
	require.NoError(t, relay.Relay("s1", a, Frame{Type: FrameOffer, Payload: payload(`{}`)}))
	assertNoFrame(t, b)

	// rejoin replaces an older connection of the same participant
	a2 := NewParticipant(11, domain.RoleClient, 8)
	reg.Join("s1", a2)
	select {
	case <-a.Done():
	default:
		t.Fatal("replaced connection was not closed")
	}

	// the stale connection leaving does not evict the new one
	reg.Leave("s1", a)
	state, _ = reg.State("s1")
	assert.Equal(t, OneJoined, state)
}

func TestRegistry_SlowConsumerIsDisconnected(t *testing.T) {
	relay, reg, m, _ := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 8)
	slow := NewParticipant(21, domain.RoleProvider, 1)
	reg.Join("s1", a)
	reg.Join("s1", slow) // joined fills the buffer

	require.NoError(t, relay.Relay("s1", a, Frame{Type: FrameOffer, Payload: payload(`{}`)}))

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow participant was not disconnected")
	}
	assert.Equal(t, 1, m.dropped["slow_consumer"])
	state, _ := reg.State("s1")
	assert.Equal(t, OneJoined, state)
}

func TestRegistry_CloseAllDisconnectsEveryone(t *testing.T) {
	relay, reg, m, _ := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 8)
	b := NewParticipant(21, domain.RoleProvider, 8)
	c := NewParticipant(12, domain.RoleClient, 8)
	reg.Join("s1", a)
	reg.Join("s1", b)
	reg.Join("s2", c)
	for _, p := range []*Participant{a, a, b, c} {
		next(t, p)
	}

	assert.Equal(t, 3, reg.CloseAll())

	for _, p := range []*Participant{a, b, c} {
		select {
		case <-p.Done():
		default:
			t.Fatalf("participant %d still open", p.ID)
		}
		f := next(t, p)
		require.Equal(t, FrameError, f.Type)
		var e ErrorPayload
		require.NoError(t, json.Unmarshal(f.Payload, &e))
		assert.Equal(t, CodeServerShutdown, e.Code)
	}

	// a late leave from the closed connection is a no-op
	reg.Leave("s1", a)
	assert.Empty(t, m.dropped)
	assert.ErrorIs(t, relay.Relay("s1", a, Frame{Type: FrameOffer, Payload: payload(`{}`)}), ErrNotJoined)
	state, ok := reg.State("s1")
	require.True(t, ok)
	assert.Equal(t, NoParticipants, state)
}

func TestRegistry_ReapsOnlyIdleEmptyRooms(t *testing.T) {
	_, reg, m, _ := newRelay(t)
	start := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return start }

	reg.Activate("empty")
	busy := NewParticipant(11, domain.RoleClient, 8)
	reg.Join("busy", busy)

	assert.Equal(t, 0, reg.Reap(start.Add(time.Hour)))
	assert.Equal(t, 1, reg.Reap(start.Add(2*time.Hour)))

	_, ok := reg.State("empty")
	assert.False(t, ok)
	state, ok := reg.State("busy")
	require.True(t, ok)
	assert.Equal(t, OneJoined, state)
	assert.Equal(t, 1, m.rooms)

	// a single disconnect does not close the room before the idle timeout
	reg.Leave("busy", busy)
	assert.Equal(t, 0, reg.Reap(start.Add(time.Hour)))
	assert.Equal(t, 1, reg.Reap(start.Add(3*time.Hour)))
}

func TestRelay_SessionEnded(t *testing.T) {
	relay, reg, _, _ := newRelay(t)
	a := NewParticipant(11, domain.RoleClient, 8)
	reg.Join("s1", a)
	next(t, a)

	relay.SessionEnded("s1", 42)
	f := next(t, a)
	assert.Equal(t, FrameSessionEnded, f.Type)
	assert.JSONEq(t, `{"sessionId":"s1","bookingId":42}`, string(f.Payload))

	state, ok := reg.State("s1")
	require.True(t, ok)
	assert.Equal(t, OneJoined, state)

	relay.SessionEnded("unknown", 1)
}
