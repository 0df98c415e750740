package update_booking_status

import (
	"context"
	"net/http"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
)

var (
	msgInvalidBookingID = handlers.Message{KO: "예약 ID가 올바르지 않습니다", EN: "Invalid booking ID"}
	msgMissingActor     = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
)

var knownErrors = []handlers.ErrorMessage{
	{Err: bookings.ErrBookingNotFound, Msg: handlers.Message{KO: "예약을 찾을 수 없습니다", EN: "Booking not found"}},
}

// transition один переход статуса, вызываемый через сервис
type transition func(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error)

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

// Confirm PUT /api/v1/bookings/{bookingId}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "PUT /bookings/{id}/confirm", h.service.Confirm)
}

// Start PUT /api/v1/bookings/{bookingId}/start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "PUT /bookings/{id}/start", h.service.Start)
}

// End PUT /api/v1/bookings/{bookingId}/end
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "PUT /bookings/{id}/end", h.service.End)
}

// MarkNoShow PUT /api/v1/bookings/{bookingId}/no-show (только администратор)
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "PUT /bookings/{id}/no-show", h.service.MarkNoShow)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, route string, apply transition) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("%s - Invalid booking ID: %v", route, err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidBookingID))
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("%s - Missing actor", route)
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return
	}

	booking, err := apply(r.Context(), bookingID, actor)
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("%s - Transition failed: booking_id=%d, error=%v", route, bookingID, err)
		} else {
			h.logger.Warn("%s - Transition rejected: booking_id=%d, user_id=%d, role=%s, error=%v",
				route, bookingID, actor.UserID, actor.Role, err)
		}
		handlers.RespondDomainError(w, r, err, knownErrors)
		return
	}

	h.logger.Info("%s - Booking moved to %s: booking_id=%d, user_id=%d, version=%d",
		route, booking.Status, bookingID, actor.UserID, booking.Version)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
