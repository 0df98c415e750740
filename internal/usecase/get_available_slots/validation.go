package get_available_slots

import "fmt"

// validateRequest валидирует входные данные и возвращает длительность сессии
func validateRequest(req *Request, policy Policy) (int, error) {
	if req.ProviderID <= 0 {
		return 0, fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return 0, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = policy.DefaultDurationMinutes
	}
	if duration < policy.MinDurationMinutes || duration > policy.MaxDurationMinutes {
		return 0, fmt.Errorf("%w: duration %d minutes, allowed %d..%d",
			ErrInvalidInput, duration, policy.MinDurationMinutes, policy.MaxDurationMinutes)
	}

	return duration, nil
}
