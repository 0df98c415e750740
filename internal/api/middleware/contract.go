package middleware

import (
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/actortoken"
)

// TokenVerifier проверяет токен актора
type TokenVerifier interface {
	Verify(token string) (actortoken.Claims, error)
}

// HTTPMetrics интерфейс для метрик HTTP запросов
type HTTPMetrics interface {
	ObserveHTTPRequest(method, route string, status int, d time.Duration)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
