package bookings

import (
	"context"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/jitsi"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, int, error)
	Update(ctx context.Context, booking *domain.Booking, expectedVersion int) error
	UpdatePayment(ctx context.Context, id int64, status domain.PaymentStatus, paymentID *string) error
}

// RefundGateway интерфейс возврата оплаты
type RefundGateway interface {
	Refund(ctx context.Context, bookingID int64, paymentID string, amount int64) error
}

// ChatHistory интерфейс хранилища сообщений чата
type ChatHistory interface {
	History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)
}

// VideoRooms выдаёт параметры видеокомнаты для сессий с методом video
type VideoRooms interface {
	Meeting(sessionID string, userID int64, moderator bool) (jitsi.Meeting, error)
}

// EventPublisher публикует события смены статуса
type EventPublisher interface {
	Publish(event domain.StatusChangedEvent)
}

// Metrics интерфейс метрик переходов
type Metrics interface {
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

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time { return time.Now() }
