package get_booking

import (
	"net/http"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
)

var (
	msgInvalidBookingID = handlers.Message{KO: "예약 ID가 올바르지 않습니다", EN: "Invalid booking ID"}
	msgMissingActor     = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
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

// Handle GET /api/v1/bookings/{bookingId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("GET /bookings/{id} - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidBookingID))
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /bookings/{id} - Missing actor")
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return
	}

	// Сервис сам проверит, что актор участник бронирования или админ
	booking, err := h.service.GetByID(r.Context(), bookingID, actor)
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("GET /bookings/{id} - Failed to get booking: booking_id=%d, error=%v", bookingID, err)
		} else {
			h.logger.Warn("GET /bookings/{id} - Booking not returned: booking_id=%d, user_id=%d, error=%v",
				bookingID, actor.UserID, err)
		}
		handlers.RespondDomainError(w, r, err, knownErrors)
		return
	}

	h.logger.Info("GET /bookings/{id} - Booking retrieved successfully: booking_id=%d, user_id=%d",
		bookingID, actor.UserID)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
