package providerservice

import (
	"strings"
	"time"
)

// Статусы модерации консультанта
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

// Provider модель консультанта из сервиса каталога
type Provider struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	IsActive     bool         `json:"is_active"`
	Methods      []string     `json:"methods"`
	Fee          int64        `json:"fee"`
	WorkingHours WorkingHours `json:"availability"`
}

// IsBookable консультант прошёл модерацию и принимает записи
func (p *Provider) IsBookable() bool {
	return p.Status == StatusApproved && p.IsActive
}

// SupportsMethod консультант работает в указанном формате (video|voice|chat)
func (p *Provider) SupportsMethod(method string) bool {
	for _, m := range p.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// TimeWindow интервал приёма [Start, End) в формате HH:MM
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WorkingHours окна приёма по дням недели
type WorkingHours struct {
	Monday    []TimeWindow `json:"monday"`
	Tuesday   []TimeWindow `json:"tuesday"`
	Wednesday []TimeWindow `json:"wednesday"`
	Thursday  []TimeWindow `json:"thursday"`
	Friday    []TimeWindow `json:"friday"`
	Saturday  []TimeWindow `json:"saturday"`
	Sunday    []TimeWindow `json:"sunday"`
}

// ForWeekday окна приёма на день недели
func (w WorkingHours) ForWeekday(day time.Weekday) []TimeWindow {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	default:
		return nil
	}
}

// ErrorResponse модель ошибки от сервиса каталога
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
