package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// RedisStore хранит историю чата сессии в redis-списке chat:session:<id>.
// Хранится не больше maxMessages последних сообщений, ключ живёт ttl с последней записи.
type RedisStore struct {
	client      redis.UniversalClient
	ttl         time.Duration
	maxMessages int64
	logger      Logger
}

// NewRedisClient создает клиент redis
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration, maxMessages int, logger Logger) *RedisStore {
	return &RedisStore{
		client:      client,
		ttl:         ttl,
		maxMessages: int64(maxMessages),
		logger:      logger,
	}
}

func key(sessionID string) string {
	return "chat:session:" + sessionID
}

// Append добавляет сообщение в конец истории
func (s *RedisStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: Append - session %s: %v", ErrEncode, msg.SessionID, err)
	}

	k := key(msg.SessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, data)
		if s.maxMessages > 0 {
			pipe.LTrim(ctx, k, -s.maxMessages, -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: Append - session %s: %v", ErrAppend, msg.SessionID, err)
	}
	return nil
}

// History возвращает сообщения сессии в порядке отправки.
// Повреждённые записи пропускаются.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: History - session %s: %v", ErrHistory, sessionID, err)
	}

	messages := make([]domain.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			s.logger.Warn("chat.store: skipping malformed message in session %s: %v", sessionID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
