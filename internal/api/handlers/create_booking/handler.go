package create_booking

import (
	"errors"
	"net/http"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
	createBooking "github.com/humanaid-digital/mindbuddy-scheduler/internal/usecase/create_booking"
)

var (
	msgInvalidRequestBody = handlers.Message{KO: "요청 본문이 올바르지 않습니다", EN: "Invalid request body"}
	msgInvalidDate        = handlers.Message{KO: "날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)", EN: "Invalid date, expected YYYY-MM-DD"}
	msgInvalidTime        = handlers.Message{KO: "시간 형식이 올바르지 않습니다 (HH:MM)", EN: "Invalid time, expected HH:MM"}
	msgInvalidMethod      = handlers.Message{KO: "상담 방식은 video, voice, chat 중 하나여야 합니다", EN: "Method must be one of video, voice, chat"}
	msgInvalidTopic       = handlers.Message{KO: "상담 주제가 올바르지 않습니다", EN: "Unknown consultation topic"}
	msgClientsOnly        = handlers.Message{KO: "내담자만 예약할 수 있습니다", EN: "Only clients can create bookings"}
	msgMissingActor       = handlers.Message{KO: "인증 정보가 없습니다", EN: "Missing actor"}
)

var knownErrors = []handlers.ErrorMessage{
	{Err: createBooking.ErrSlotNotAvailable, Msg: handlers.Message{KO: "선택한 시간대는 이미 예약되었습니다", EN: "The selected time slot is not available"}},
	{Err: createBooking.ErrProviderNotFound, Msg: handlers.Message{KO: "상담사를 찾을 수 없습니다", EN: "Provider not found"}},
	{Err: createBooking.ErrMethodNotSupported, Msg: handlers.Message{KO: "상담사가 지원하지 않는 상담 방식입니다", EN: "The provider does not offer this method"}},
	{Err: createBooking.ErrDurationOutOfRange, Msg: handlers.Message{KO: "상담 시간은 30분 이상 120분 이하여야 합니다", EN: "Duration must be between 30 and 120 minutes"}},
	{Err: createBooking.ErrInvalidDate, Msg: handlers.Message{KO: "지난 시간은 예약할 수 없습니다", EN: "Cannot book a slot in the past"}},
	{Err: createBooking.ErrPaymentDeclined, Msg: handlers.Message{KO: "결제가 거절되었습니다", EN: "Payment was declined"}},
	{Err: createBooking.ErrPaymentUnavailable, Msg: handlers.Message{KO: "결제 서비스를 일시적으로 사용할 수 없습니다", EN: "Payment service is temporarily unavailable"}},
	{Err: createBooking.ErrProviderServiceUnavailable, Msg: handlers.Message{KO: "상담사 정보를 일시적으로 확인할 수 없습니다", EN: "Provider directory is temporarily unavailable"}},
	{Err: createBooking.ErrLockTimeout, Msg: handlers.Message{KO: "예약 요청이 많습니다. 잠시 후 다시 시도해 주세요", EN: "Too many concurrent booking requests, please retry"}},
}

type Handler struct {
	useCase CreateBookingUseCase
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing actor")
		handlers.RespondUnauthorized(w, handlers.Localize(r, msgMissingActor))
		return
	}
	if actor.Role != domain.RoleClient {
		h.logger.Warn("POST /bookings - Non-client actor: user_id=%d, role=%s", actor.UserID, actor.Role)
		handlers.RespondForbidden(w, handlers.Localize(r, msgClientsOnly))
		return
	}

	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidRequestBody))
		return
	}

	// Конвертируем HTTP запрос в модель use case (с парсингом даты и времени)
	useCaseReq, err := req.ToUseCaseRequest(actor.UserID)
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse request: %v", err)
		switch {
		case errors.Is(err, errParseTime):
			handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidTime))
		case errors.Is(err, errParseMethod):
			handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidMethod))
		case errors.Is(err, errParseTopic):
			handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidTopic))
		default:
			handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidDate))
		}
		return
	}

	booking, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("POST /bookings - Failed to create booking: client_id=%d, provider_id=%d, error=%v",
				actor.UserID, req.ProviderID, err)
		} else {
			h.logger.Warn("POST /bookings - Booking rejected: client_id=%d, provider_id=%d, date=%s %s-%s, error=%v",
				actor.UserID, req.ProviderID, req.Date, req.StartTime, req.EndTime, err)
		}
		handlers.RespondDomainError(w, r, err, knownErrors)
		return
	}

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%d, client_id=%d, provider_id=%d",
		booking.ID, actor.UserID, booking.ProviderID)
	handlers.RespondJSON(w, http.StatusCreated, models.FromDomainBooking(booking))
}
