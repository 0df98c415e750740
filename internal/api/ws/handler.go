package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/signaling"
)

// Коды ошибок в кадрах error
const (
	codeRateLimited   = "RATE_LIMITED"
	codeFrameTooLarge = "FRAME_TOO_LARGE"
	codeMalformed     = "MALFORMED_FRAME"
	codeNotJoined     = "NOT_JOINED"
)

var (
	msgMissingSessionID = handlers.Message{KO: "세션 ID가 필요합니다", EN: "Session ID is required"}
	msgMissingActor     = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
)

var errTooManyViolations = errors.New("ws: too many protocol violations")

// Handler GET /ws/sessions/{sessionId}: websocket канал сигналинга и чата.
// Права проверяются до апгрейда, поэтому отказ приходит обычным HTTP ответом.
type Handler struct {
	sessions SessionAuthorizer
	registry Registry
	relay    Relay
	cfg      Config
	logger   Logger
	metrics  Metrics
}

func NewHandler(sessions SessionAuthorizer, registry Registry, relay Relay, cfg Config, logger Logger, metrics Metrics) *Handler {
	return &Handler{
		sessions: sessions,
		registry: registry,
		relay:    relay,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if sessionID == "" {
		handlers.RespondBadRequest(w, handlers.Localize(r, msgMissingSessionID))
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /ws/sessions/{id} - Missing actor")
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return
	}

	session, err := h.sessions.AuthorizeSessionJoin(r.Context(), sessionID, actor)
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("GET /ws/sessions/{id} - Join check failed: user_id=%d, error=%v", actor.UserID, err)
		} else {
			h.logger.Warn("GET /ws/sessions/{id} - Join rejected: user_id=%d, error=%v", actor.UserID, err)
		}
		handlers.RespondDomainError(w, r, err, nil)
		return
	}

	srv := websocket.Server{
		Handshake: h.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			h.serve(conn, session.SessionID, actor)
		},
	}
	srv.ServeHTTP(w, r)
}

func (h *Handler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// не браузерный клиент
		return nil
	}
	u, err := url.ParseRequestURI(origin)
	if err != nil {
		return fmt.Errorf("ws: bad origin %q: %v", origin, err)
	}
	cfg.Origin = u
	if len(h.cfg.AllowedOrigins) == 0 {
		return nil
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return nil
		}
	}
	h.logger.Warn("GET /ws/sessions/{id} - Origin not allowed: %s", origin)
	return fmt.Errorf("ws: origin %q not allowed", origin)
}

// conn одно подключённое соединение участника
type conn struct {
	ws         *websocket.Conn
	sessionID  string
	p          *signaling.Participant
	limiter    *rate.Limiter
	violations int
}

func (h *Handler) serve(wsConn *websocket.Conn, sessionID string, actor domain.Actor) {
	wsConn.MaxPayloadBytes = h.cfg.MaxFrameBytes
	defer wsConn.Close()
	// дедлайны http.Server переживают hijack
	_ = wsConn.SetDeadline(time.Time{})

	c := &conn{
		ws:        wsConn,
		sessionID: sessionID,
		p:         signaling.NewParticipant(actor.UserID, actor.Role, h.cfg.SendBuffer),
		limiter:   rate.NewLimiter(rate.Limit(h.cfg.FramesPerSecond), h.cfg.FrameBurst),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(c)
	}()

	err := h.awaitJoin(c)
	if err == nil {
		state := h.registry.Join(sessionID, c.p)
		h.logger.Info("ws: user %d (%s) connected to session, room %s", actor.UserID, actor.Role, state)

		err = h.readLoop(c)
		h.registry.Leave(sessionID, c.p)
	}
	c.p.Close()
	<-writerDone

	if err != nil {
		h.logger.Info("ws: user %d disconnected from session: %v", actor.UserID, err)
	}
}

// awaitJoin ждёт кадр join; до него другие кадры отклоняются
func (h *Handler) awaitJoin(c *conn) error {
	deadline := time.Now().Add(h.cfg.JoinTimeout)
	if err := c.ws.SetReadDeadline(deadline); err != nil {
		return err
	}
	defer c.ws.SetReadDeadline(time.Time{})

	for {
		f, err := h.receive(c)
		if err != nil {
			return err
		}
		if f == nil {
			continue
		}
		if f.Type == signaling.FrameJoin {
			return nil
		}
		if err := h.violation(c, codeNotJoined, "send a join frame first"); err != nil {
			return err
		}
	}
}

func (h *Handler) readLoop(c *conn) error {
	for {
		f, err := h.receive(c)
		if err != nil {
			return err
		}
		if f == nil {
			continue
		}

		switch f.Type {
		case signaling.FrameLeave:
			return nil
		case signaling.FrameJoin:
			// уже в комнате
			continue
		}

		if err := h.relay.Relay(c.sessionID, c.p, *f); err != nil {
			if errors.Is(err, signaling.ErrNotJoined) {
				// соединение заменено переподключением или комната удалена
				return err
			}
			if verr := h.violation(c, string(domain.CodeOf(err)), err.Error()); verr != nil {
				return verr
			}
		}
	}
}

// receive читает один кадр. nil кадр без ошибки означает нарушение,
// о котором клиент уже уведомлён.
func (h *Handler) receive(c *conn) (*signaling.Frame, error) {
	var f signaling.Frame
	err := websocket.JSON.Receive(c.ws, &f)
	switch {
	case err == nil:
	case errors.Is(err, websocket.ErrFrameTooLarge):
		h.metrics.IncFrameDropped("too_large")
		return nil, h.violation(c, codeFrameTooLarge, fmt.Sprintf("frame exceeds %d bytes", h.cfg.MaxFrameBytes))
	default:
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, h.violation(c, codeMalformed, "frame is not valid JSON")
		}
		return nil, err
	}

	if !c.limiter.Allow() {
		h.metrics.IncFrameDropped("rate_limited")
		return nil, h.violation(c, codeRateLimited, "too many frames")
	}
	return &f, nil
}

// violation отправляет клиенту кадр error и закрывает соединение после MaxViolations
func (h *Handler) violation(c *conn, code, message string) error {
	c.violations++
	c.p.Send(signaling.NewErrorFrame(code, message))
	if c.violations >= h.cfg.MaxViolations {
		h.logger.Warn("ws: user %d disconnected after %d violations, last: %s", c.p.ID, c.violations, code)
		return errTooManyViolations
	}
	return nil
}

func (h *Handler) writeLoop(c *conn) {
	for {
		select {
		case f := <-c.p.Outbound():
			if err := h.write(c, f); err != nil {
				c.ws.Close()
				return
			}
		case <-c.p.Done():
			// дописываем уже поставленные в очередь кадры (например, последний error)
			for {
				select {
				case f := <-c.p.Outbound():
					if h.write(c, f) != nil {
						c.ws.Close()
						return
					}
				default:
					c.ws.Close()
					return
				}
			}
		}
	}
}

func (h *Handler) write(c *conn, f signaling.Frame) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
		return err
	}
	return websocket.JSON.Send(c.ws, f)
}
