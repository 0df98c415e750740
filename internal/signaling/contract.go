package signaling

import (
	"context"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// ChatStore хранилище сообщений чата
type ChatStore interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
}

// Metrics интерфейс метрик сигналинга
type Metrics interface {
	AddSignalingRooms(delta int)
	IncFrameRelayed(frameType string)
	IncFrameDropped(reason string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
