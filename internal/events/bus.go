package events

import (
	"sync"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// AllEvents подписка на все типы событий
const AllEvents = "*"

// Ключи маршрутизации из domain.StatusChangedEvent.Type.
const (
	EventBookingCreated    = "booking.created"
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingInProgress = "booking.in-progress"
	EventBookingCompleted  = "booking.completed"
	EventBookingNoShow     = "booking.no-show"
)

// Handler обработчик смены статуса. Не должен блокировать: медленная работа
// уходит в собственную очередь обработчика.
type Handler func(event domain.StatusChangedEvent) error

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Bus внутрипроцессная шина событий смены статуса бронирования.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	logger      Logger
}

func NewBus(logger Logger) *Bus {
	return &Bus{subscribers: make(map[string][]Handler), logger: logger}
}

// Subscribe регистрирует handler на eventType или AllEvents.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish синхронно вызывает обработчики. Их ошибки и паники только
// логируются и до публикующего не доходят.
func (b *Bus) Publish(event domain.StatusChangedEvent) {
	if b == nil {
		return
	}

	eventType := event.Type()
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[eventType]...)
	handlers = append(handlers, b.subscribers[AllEvents]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(eventType, event, h)
	}
}

func (b *Bus) dispatch(eventType string, event domain.StatusChangedEvent, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("events: handler for %s booking=%d panicked: %v", eventType, event.BookingID, r)
		}
	}()
	if err := h(event); err != nil {
		b.logger.Warn("events: handler for %s booking=%d failed: %v", eventType, event.BookingID, err)
	}
}
