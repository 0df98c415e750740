package get_session

import (
	"context"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
)

type SessionService interface {
	GetSession(ctx context.Context, sessionID string, actor domain.Actor) (*models.SessionResponse, error)
	GetSessionMessages(ctx context.Context, sessionID string, actor domain.Actor) (*models.ChatHistoryResponse, error)
	EndBySession(ctx context.Context, sessionID string, actor domain.Actor) (*models.SessionResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
