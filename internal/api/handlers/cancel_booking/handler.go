package cancel_booking

import (
	"net/http"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
)

var (
	msgInvalidBookingID   = handlers.Message{KO: "예약 ID가 올바르지 않습니다", EN: "Invalid booking ID"}
	msgInvalidRequestBody = handlers.Message{KO: "요청 본문이 올바르지 않습니다", EN: "Invalid request body"}
	msgMissingActor       = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
)

var knownErrors = []handlers.ErrorMessage{
	{Err: bookings.ErrBookingNotFound, Msg: handlers.Message{KO: "예약을 찾을 수 없습니다", EN: "Booking not found"}},
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

// Handle PUT /api/v1/bookings/{bookingId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("PUT /bookings/{id}/cancel - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidBookingID))
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("PUT /bookings/{id}/cancel - Missing actor")
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return
	}

	var req CancelBookingRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(r, &req); err != nil {
			h.logger.Warn("PUT /bookings/{id}/cancel - Invalid request body: %v", err)
			handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidRequestBody))
			return
		}
	}

	booking, err := h.service.Cancel(r.Context(), bookingID, actor, req.ToServiceRequest())
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("PUT /bookings/{id}/cancel - Failed to cancel booking: booking_id=%d, error=%v", bookingID, err)
		} else {
			h.logger.Warn("PUT /bookings/{id}/cancel - Cancellation rejected: booking_id=%d, user_id=%d, error=%v",
				bookingID, actor.UserID, err)
		}
		handlers.RespondDomainError(w, r, err, knownErrors)
		return
	}

	h.logger.Info("PUT /bookings/{id}/cancel - Booking cancelled: booking_id=%d, user_id=%d, payment_status=%s",
		bookingID, actor.UserID, booking.PaymentStatus)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
