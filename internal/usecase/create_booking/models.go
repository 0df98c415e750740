package create_booking

import (
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/types"
)

// Request модель запроса на создание бронирования
type Request struct {
	ClientID   int64            // ID клиента (из токена)
	ProviderID int64            // ID консультанта
	Date       time.Time        // Дата бронирования (без времени)
	StartTime  types.TimeString // Время начала, HH:MM
	EndTime    types.TimeString // Время окончания, HH:MM
	Method     domain.Method    // video | voice | chat
	Topic      *domain.Topic    // Тема консультации (опционально)
	Notes      *string          // Заметки клиента (опционально)
}

// Policy ограничения на создание бронирований
type Policy struct {
	Location           *time.Location // часовой пояс, в котором заданы дата и время
	MinDurationMinutes int
	MaxDurationMinutes int
	LockTimeout        time.Duration // ожидание блокировки дня консультанта
	ChargeTimeout      time.Duration // списание оплаты внутри транзакции
}

// DefaultPolicy политика по умолчанию
func DefaultPolicy() Policy {
	return Policy{
		Location:           time.UTC,
		MinDurationMinutes: domain.MinDurationMinutes,
		MaxDurationMinutes: domain.MaxDurationMinutes,
		LockTimeout:        5 * time.Second,
		ChargeTimeout:      3 * time.Second,
	}
}
