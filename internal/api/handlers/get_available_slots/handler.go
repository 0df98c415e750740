package get_available_slots

import (
	"net/http"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	getAvailableSlots "github.com/humanaid-digital/mindbuddy-scheduler/internal/usecase/get_available_slots"
)

var (
	msgInvalidProviderID = handlers.Message{KO: "상담사 ID가 올바르지 않습니다", EN: "Invalid provider ID"}
	msgMissingDate       = handlers.Message{KO: "날짜가 필요합니다", EN: "Date is required"}
	msgInvalidDate       = handlers.Message{KO: "날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)", EN: "Invalid date, expected YYYY-MM-DD"}
	msgInvalidDuration   = handlers.Message{KO: "상담 시간이 올바르지 않습니다", EN: "Invalid duration"}
)

var knownErrors = []handlers.ErrorMessage{
	{Err: getAvailableSlots.ErrProviderNotFound, Msg: handlers.Message{KO: "상담사를 찾을 수 없습니다", EN: "Provider not found"}},
	{Err: getAvailableSlots.ErrInvalidInput, Msg: handlers.Message{KO: "상담 시간은 30분 이상 120분 이하여야 합니다", EN: "Duration must be between 30 and 120 minutes"}},
	{Err: getAvailableSlots.ErrProviderServiceUnavailable, Msg: handlers.Message{KO: "상담사 정보를 일시적으로 확인할 수 없습니다", EN: "Provider directory is temporarily unavailable"}},
}

type Handler struct {
	useCase GetAvailableSlotsUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/providers/{providerId}/slots
// Query params: date (required, YYYY-MM-DD), duration (optional, minutes)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	providerID, err := handlers.PathInt64(r, "providerId")
	if err != nil {
		h.logger.Warn("GET /providers/{id}/slots - Invalid provider ID: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidProviderID))
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		h.logger.Warn("GET /providers/{id}/slots - Missing date: provider_id=%d", providerID)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgMissingDate))
		return
	}

	duration, err := handlers.QueryInt(r, "duration")
	if err != nil {
		h.logger.Warn("GET /providers/{id}/slots - Invalid duration: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidDuration))
		return
	}

	useCaseReq, err := ToUseCaseRequest(providerID, dateStr, duration)
	if err != nil {
		h.logger.Warn("GET /providers/{id}/slots - Invalid date format: %v", err)
		handlers.RespondBadRequest(w, handlers.Localize(r, msgInvalidDate))
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		if handlers.IsServerError(err) {
			h.logger.Error("GET /providers/{id}/slots - Failed to get slots: provider_id=%d, date=%s, error=%v",
				providerID, dateStr, err)
		} else {
			h.logger.Warn("GET /providers/{id}/slots - Request rejected: provider_id=%d, date=%s, error=%v",
				providerID, dateStr, err)
		}
		handlers.RespondDomainError(w, r, err, knownErrors)
		return
	}

	h.logger.Info("GET /providers/{id}/slots - Slots retrieved successfully: provider_id=%d, date=%s, slots_count=%d",
		providerID, dateStr, len(result.Slots))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
