package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/signaling"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/logger"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/metrics"
)

const (
	sessionID  = "7f9c2b1e-5d4a-4c3b-9a8e-1f2d3c4b5a69"
	clientID   = int64(5)
	providerID = int64(7)
)

// fakeSessions пускает клиента 5 и консультанта 7
type fakeSessions struct{}

func (fakeSessions) AuthorizeSessionJoin(_ context.Context, id string, actor domain.Actor) (*models.SessionResponse, error) {
	if id != sessionID {
		return nil, domain.NewError(domain.ErrNotFound, "session not found")
	}
	if actor.UserID != clientID && actor.UserID != providerID {
		return nil, domain.ErrNotAuthorized
	}
	return &models.SessionResponse{SessionID: id, BookingID: 42, Status: string(domain.StatusInProgress)}, nil
}

type nopChat struct{}

func (nopChat) Append(context.Context, domain.ChatMessage) error { return nil }

// withTestActor кладёт актора из query параметра uid вместо проверки токена
func withTestActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
		role := domain.RoleClient
		if uid == providerID {
			role = domain.RoleProvider
		}
		actor := domain.Actor{UserID: uid, Role: role}
		next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), actor)))
	})
}

func newServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	var m *metrics.Metrics
	registry := signaling.NewRegistry(time.Hour, logger.Nop(), m)
	relay := signaling.NewRelay(registry, nopChat{}, 16, logger.Nop(), m)

	r := mux.NewRouter()
	r.Handle("/ws/sessions/{sessionId}", withTestActor(NewHandler(fakeSessions{}, registry, relay, cfg, logger.Nop(), m)))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, session string, uid int64) (*websocket.Conn, error) {
	t.Helper()
	url := fmt.Sprintf("ws%s/ws/sessions/%s?uid=%d", strings.TrimPrefix(srv.URL, "http"), session, uid)
	return websocket.Dial(url, "", "http://localhost/")
}

func send(t *testing.T, c *websocket.Conn, frameType string, payload interface{}) {
	t.Helper()
	f := signaling.Frame{Type: frameType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		f.Payload = data
	}
	require.NoError(t, websocket.JSON.Send(c, f))
}

func receive(t *testing.T, c *websocket.Conn) signaling.Frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f signaling.Frame
	require.NoError(t, websocket.JSON.Receive(c, &f))
	return f
}

func join(t *testing.T, srv *httptest.Server, uid int64) *websocket.Conn {
	t.Helper()
	c, err := dial(t, srv, sessionID, uid)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	send(t, c, signaling.FrameJoin, nil)
	require.Equal(t, signaling.FrameJoined, receive(t, c).Type)
	return c
}

func TestHandler_RelaysBetweenParticipants(t *testing.T) {
	srv := newServer(t, Config{})

	provider := join(t, srv, providerID)
	client := join(t, srv, clientID)

	peerJoined := receive(t, provider)
	assert.Equal(t, signaling.FramePeerJoined, peerJoined.Type)
	assert.Equal(t, clientID, peerJoined.From)

	offer := map[string]string{"sdp": "v=0 o=- 46117 2 IN IP4 127.0.0.1"}
	send(t, client, signaling.FrameOffer, offer)
	send(t, client, signaling.FrameICECandidate, map[string]string{"candidate": "c1"})
	send(t, client, signaling.FrameICECandidate, map[string]string{"candidate": "c2"})

	got := receive(t, provider)
	assert.Equal(t, signaling.FrameOffer, got.Type)
	assert.Equal(t, clientID, got.From)
	assert.JSONEq(t, `{"sdp":"v=0 o=- 46117 2 IN IP4 127.0.0.1"}`, string(got.Payload))
	assert.JSONEq(t, `{"candidate":"c1"}`, string(receive(t, provider).Payload))
	assert.JSONEq(t, `{"candidate":"c2"}`, string(receive(t, provider).Payload))

	send(t, provider, signaling.FrameAnswer, map[string]string{"sdp": "answer"})
	assert.Equal(t, signaling.FrameAnswer, receive(t, client).Type)

	send(t, client, signaling.FrameLeave, nil)
	left := receive(t, provider)
	assert.Equal(t, signaling.FramePeerLeft, left.Type)
	assert.Equal(t, clientID, left.From)
}

func TestHandler_RejectsBeforeUpgrade(t *testing.T) {
	srv := newServer(t, Config{})

	_, err := dial(t, srv, sessionID, 99)
	assert.Error(t, err, "stranger must not connect")

	_, err = dial(t, srv, "unknown-session", clientID)
	assert.Error(t, err, "unknown session must not connect")
}

func TestHandler_DisconnectsAfterViolations(t *testing.T) {
	srv := newServer(t, Config{MaxViolations: 2})

	c, err := dial(t, srv, sessionID, clientID)
	require.NoError(t, err)
	defer c.Close()

	send(t, c, signaling.FrameOffer, map[string]string{"sdp": "x"})
	first := receive(t, c)
	require.Equal(t, signaling.FrameError, first.Type)
	var payload signaling.ErrorPayload
	require.NoError(t, json.Unmarshal(first.Payload, &payload))
	assert.Equal(t, codeNotJoined, payload.Code)

	send(t, c, signaling.FrameOffer, map[string]string{"sdp": "x"})
	assert.Equal(t, signaling.FrameError, receive(t, c).Type)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f signaling.Frame
	assert.Error(t, websocket.JSON.Receive(c, &f), "connection must be closed")
}

func TestHandler_InvalidChatIsReported(t *testing.T) {
	srv := newServer(t, Config{})
	client := join(t, srv, clientID)

	send(t, client, signaling.FrameChat, signaling.ChatPayload{Text: strings.Repeat("가", domain.MaxChatMessageLength+1)})

	f := receive(t, client)
	require.Equal(t, signaling.FrameError, f.Type)
	var payload signaling.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	assert.Equal(t, string(domain.CodeValidation), payload.Code)
}

func TestHandler_OversizedFrame(t *testing.T) {
	srv := newServer(t, Config{MaxFrameBytes: 256})
	client := join(t, srv, clientID)

	send(t, client, signaling.FrameOffer, map[string]string{"sdp": strings.Repeat("a", 1024)})

	f := receive(t, client)
	require.Equal(t, signaling.FrameError, f.Type)
	var payload signaling.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &payload))
	assert.Equal(t, codeFrameTooLarge, payload.Code)
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(fakeSessions{}, nil, nil, Config{AllowedOrigins: []string{"https://app.mindbuddy.kr"}}, logger.Nop(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/x", nil)
	req.Header.Set("Origin", "https://app.mindbuddy.kr")
	assert.NoError(t, h.checkOrigin(&websocket.Config{}, req))

	req.Header.Set("Origin", "https://evil.example")
	assert.Error(t, h.checkOrigin(&websocket.Config{}, req))

	req.Header.Del("Origin")
	assert.NoError(t, h.checkOrigin(&websocket.Config{}, req))
}
