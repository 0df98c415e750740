package list_bookings

import (
	"net/http"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
)

var (
	msgInvalidPaging = handlers.Message{KO: "page와 limit은 숫자여야 합니다", EN: "page and limit must be numbers"}
	msgMissingActor  = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
)

var knownErrors = []handlers.ErrorMessage{
	{Err: bookings.ErrInvalidInput, Msg: handlers.Message{KO: "status, page 또는 limit 값이 올바르지 않습니다 (limit 1~50)", EN: "Invalid status, page or limit (limit 1..50)"}},
}

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings
// Query params: status (optional), page (default 1), limit (default 10, max 50)
// Клиент видит свои бронирования, консультант назначенные ему, админ все.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings - Missing actor")
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return
	}

	page, err := handlers.QueryInt(r, "page")
	if err != nil {
		h.logger.Warn("GET /bookings - Invalid page: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidPaging))
		return
	}
	limit, err := handlers.QueryInt(r, "limit")
	if err != nil {
		h.logger.Warn("GET /bookings - Invalid limit: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidPaging))
		return
	}

	req := &models.ListBookingsRequest{Page: page, Limit: limit}
	if status := r.URL.Query().Get("status"); status != "" {
		req.Status = &status
	}

	list, err := h.service.List(r.Context(), actor, req)
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("GET /bookings - Failed to list bookings: user_id=%d, error=%v", actor.UserID, err)
		} else {
			h.logger.Warn("GET /bookings - List rejected: user_id=%d, error=%v", actor.UserID, err)
		}
		handlers.RespondDomainError(w, r, err, knownErrors)
		return
	}

	h.logger.Info("GET /bookings - Bookings retrieved: user_id=%d, role=%s, total=%d",
		actor.UserID, actor.Role, list.Total)
	handlers.RespondJSON(w, http.StatusOK, list)
}
