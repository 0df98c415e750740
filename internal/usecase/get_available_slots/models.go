package get_available_slots

import (
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	ProviderID      int64     // ID консультанта
	Date            time.Time // Дата (без времени)
	DurationMinutes int       // Длительность сессии; 0 означает длительность по умолчанию
}

// Response модель ответа со списком слотов
type Response struct {
	ProviderID      int64
	Date            time.Time
	DurationMinutes int
	Slots           []domain.AvailableSlot
}

// Policy параметры сетки слотов
type Policy struct {
	Location               *time.Location
	StepMinutes            int
	DefaultDurationMinutes int
	MinDurationMinutes     int
	MaxDurationMinutes     int
}

// DefaultPolicy политика по умолчанию: шаг 30 минут, сессия 60 минут
func DefaultPolicy() Policy {
	return Policy{
		Location:               time.UTC,
		StepMinutes:            30,
		DefaultDurationMinutes: 60,
		MinDurationMinutes:     domain.MinDurationMinutes,
		MaxDurationMinutes:     domain.MaxDurationMinutes,
	}
}
