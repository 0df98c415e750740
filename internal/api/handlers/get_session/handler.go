package get_session

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
)

var (
	msgMissingSessionID = handlers.Message{KO: "세션 ID가 필요합니다", EN: "Session ID is required"}
	msgMissingActor     = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
)

var knownErrors = []handlers.ErrorMessage{
	{Err: bookings.ErrSessionNotFound, Msg: handlers.Message{KO: "세션을 찾을 수 없습니다", EN: "Session not found"}},
	{Err: bookings.ErrSessionNotActive, Msg: handlers.Message{KO: "진행 중인 세션이 아닙니다", EN: "Session is not in progress"}},
}

type Handler struct {
	service SessionService
	logger  Logger
}

func NewHandler(service SessionService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/sessions/{sessionId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	sessionID, actor, ok := h.params(w, r, "GET /sessions/{id}")
	if !ok {
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID, actor)
	if err != nil {
		h.fail(w, r, "GET /sessions/{id}", sessionID, err)
		return
	}

	h.logger.Info("GET /sessions/{id} - Session retrieved: booking_id=%d, user_id=%d", session.BookingID, actor.UserID)
	handlers.RespondJSON(w, http.StatusOK, session)
}

// Messages GET /api/v1/sessions/{sessionId}/messages
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID, actor, ok := h.params(w, r, "GET /sessions/{id}/messages")
	if !ok {
		return
	}

	history, err := h.service.GetSessionMessages(r.Context(), sessionID, actor)
	if err != nil {
		h.fail(w, r, "GET /sessions/{id}/messages", sessionID, err)
		return
	}

	h.logger.Info("GET /sessions/{id}/messages - Chat history retrieved: user_id=%d, messages=%d",
		actor.UserID, len(history.Messages))
	handlers.RespondJSON(w, http.StatusOK, history)
}

// End PUT /api/v1/sessions/{sessionId}/end
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	sessionID, actor, ok := h.params(w, r, "PUT /sessions/{id}/end")
	if !ok {
		return
	}

	session, err := h.service.EndBySession(r.Context(), sessionID, actor)
	if err != nil {
		h.fail(w, r, "PUT /sessions/{id}/end", sessionID, err)
		return
	}

	h.logger.Info("PUT /sessions/{id}/end - Session ended: booking_id=%d, user_id=%d", session.BookingID, actor.UserID)
	handlers.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request, route string) (string, domain.Actor, bool) {
	sessionID := mux.Vars(r)["sessionId"]
	if sessionID == "" {
		h.logger.Warn("%s - Missing session ID", route)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgMissingSessionID))
		return "", domain.Actor{}, false
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("%s - Missing actor", route)
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return "", domain.Actor{}, false
	}
	return sessionID, actor, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, route, sessionID string, err error) {
	// sessionID является секретом доступа к комнате, в лог пишем только префикс
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	if handlers.IsServerError(err) {
		h.logger.Error("%s - Request failed: session=%s, error=%v", route, short, err)
	} else {
		h.logger.Warn("%s - Request rejected: session=%s, error=%v", route, short, err)
	}
	handlers.RespondDomainError(w, r, err, knownErrors)
}
