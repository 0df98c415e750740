package create_booking

import (
	"fmt"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// validateRequest валидирует входные данные и возвращает запрошенный слот
func validateRequest(req *Request, policy Policy) (domain.Slot, error) {
	if req.ClientID <= 0 {
		return domain.Slot{}, fmt.Errorf("%w: clientID must be positive", ErrInvalidInput)
	}

	if req.ProviderID <= 0 {
		return domain.Slot{}, fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return domain.Slot{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return domain.Slot{}, fmt.Errorf("%w: startTime and endTime are required", ErrInvalidInput)
	}

	slot, err := domain.NewSlot(req.StartTime, req.EndTime)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	duration := slot.DurationMinutes()
	if duration < policy.MinDurationMinutes || duration > policy.MaxDurationMinutes {
		return domain.Slot{}, fmt.Errorf("%w: %d minutes, allowed %d..%d",
			ErrDurationOutOfRange, duration, policy.MinDurationMinutes, policy.MaxDurationMinutes)
	}

	if !req.Method.Valid() {
		return domain.Slot{}, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, req.Method)
	}

	if req.Topic != nil && !req.Topic.Valid() {
		return domain.Slot{}, fmt.Errorf("%w: unknown topic %q", ErrInvalidInput, *req.Topic)
	}

	if req.Notes != nil && len([]rune(*req.Notes)) > domain.MaxNotesLength {
		return domain.Slot{}, fmt.Errorf("%w: notes longer than %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}

	return slot, nil
}

// dateOnly приводит дату к полуночи UTC, в таком виде она хранится в бронировании
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// lockKey ключ блокировки дня консультанта
func lockKey(providerID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", providerID, date.Format(domain.DateFormat))
}
