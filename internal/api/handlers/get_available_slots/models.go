package get_available_slots

import (
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	getAvailableSlots "github.com/humanaid-digital/mindbuddy-scheduler/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	ProviderID      int64           `json:"providerId"`
	Date            string          `json:"date"`
	DurationMinutes int             `json:"duration"`
	Slots           []AvailableSlot `json:"slots"`
}

// AvailableSlot модель временного слота
type AvailableSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			StartTime: slot.Slot.Start.String(),
			EndTime:   slot.Slot.End.String(),
			Available: slot.Available,
		}
	}

	return &AvailableSlotsResponse{
		ProviderID:      resp.ProviderID,
		Date:            resp.Date.Format(domain.DateFormat),
		DurationMinutes: resp.DurationMinutes,
		Slots:           slots,
	}
}

// ToUseCaseRequest создает запрос use case из параметров запроса
func ToUseCaseRequest(providerID int64, dateStr string, duration int) (*getAvailableSlots.Request, error) {
	date, err := time.Parse(domain.DateFormat, dateStr)
	if err != nil {
		return nil, err
	}

	return &getAvailableSlots.Request{
		ProviderID:      providerID,
		Date:            date,
		DurationMinutes: duration,
	}, nil
}
