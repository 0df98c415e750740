package ws

import (
	"context"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/signaling"
)

// SessionAuthorizer проверяет право актора подключиться к идущей сессии
type SessionAuthorizer interface {
	AuthorizeSessionJoin(ctx context.Context, sessionID string, actor domain.Actor) (*models.SessionResponse, error)
}

// Registry комнаты сессий
type Registry interface {
	Join(sessionID string, p *signaling.Participant) signaling.RoomState
	Leave(sessionID string, p *signaling.Participant)
}

// Relay пересылка кадров участникам сессии
type Relay interface {
	Relay(sessionID string, sender *signaling.Participant, f signaling.Frame) error
}

// Metrics интерфейс метрик транспорта
type Metrics interface {
	IncFrameDropped(reason string)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
