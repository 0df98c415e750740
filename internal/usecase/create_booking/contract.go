package create_booking

import (
	"context"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/providerservice"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	ListSlotHolders(ctx context.Context, providerID int64, date time.Time) ([]*domain.Booking, error)
	UpdatePayment(ctx context.Context, id int64, status domain.PaymentStatus, paymentID *string) error
}

// ProviderServiceClient интерфейс клиента каталога консультантов
type ProviderServiceClient interface {
	GetProvider(ctx context.Context, providerID int64) (*providerservice.Provider, error)
}

// PaymentGateway интерфейс платёжного шлюза
type PaymentGateway interface {
	ChargeFee(ctx context.Context, bookingID int64, amount int64) (string, error)
	Refund(ctx context.Context, bookingID int64, paymentID string, amount int64) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// SlotLocker сериализует создание бронирований на один день консультанта
type SlotLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// EventPublisher публикует события смены статуса
type EventPublisher interface {
	Publish(event domain.StatusChangedEvent)
}

// Metrics интерфейс метрик бронирований
type Metrics interface {
	IncBookingConflict()
	IncBookingTransition(from, to string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
