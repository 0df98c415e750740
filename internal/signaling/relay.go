package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// Relay пересылает кадры сигналинга и чата между участниками сессии.
// Содержимое offer/answer/ice не разбирается, сохранение чата не блокирует пересылку.
type Relay struct {
	registry  *Registry
	chat      ChatStore
	chatQueue chan domain.ChatMessage
	now       func() time.Time
	logger    Logger
	metrics   Metrics
}

func NewRelay(registry *Registry, chat ChatStore, chatQueueSize int, logger Logger, metrics Metrics) *Relay {
	if chatQueueSize <= 0 {
		chatQueueSize = 1
	}
	return &Relay{
		registry:  registry,
		chat:      chat,
		chatQueue: make(chan domain.ChatMessage, chatQueueSize),
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}
}

// Relay пересылает f от sender остальным участникам сессии.
// Ушедшие собеседники молча пропускаются. Кадры chat проверяются
// и ставятся в очередь на сохранение.
func (rl *Relay) Relay(sessionID string, sender *Participant, f Frame) error {
	if !IsRelayable(f.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}

	var chatMsg *domain.ChatMessage
	if f.Type == FrameChat {
		text, err := parseChat(f.Payload)
		if err != nil {
			return err
		}
		chatMsg = &domain.ChatMessage{
			SessionID:  sessionID,
			SenderID:   sender.ID,
			SenderRole: sender.Role,
			Text:       text,
			SentAt:     rl.now().UTC(),
		}
	}

	out := Frame{Type: f.Type, From: sender.ID, Payload: f.Payload}
	err := rl.registry.withRoom(sessionID, func(r *room) error {
		if r.participants[sender.ID] != sender {
			return fmt.Errorf("%w: participant %d in session %s", ErrNotJoined, sender.ID, sessionID)
		}
		r.lastActivity = rl.registry.now()
		for id, peer := range r.participants {
			if id != sender.ID {
				r.deliver(peer, out, rl.registry)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	rl.metrics.IncFrameRelayed(f.Type)

	if chatMsg != nil {
		rl.enqueueChat(*chatMsg)
	}
	return nil
}

// Notify отправляет серверный кадр всем участникам сессии.
// Отсутствие комнаты не ошибка: слушать некому.
func (rl *Relay) Notify(sessionID string, f Frame) {
	if err := rl.registry.Broadcast(sessionID, f); err != nil {
		rl.logger.Info("signaling: notify %s to session %s skipped: %v", f.Type, sessionID, err)
	}
}

// SessionEnded сообщает комнате о завершении бронирования.
// Сама комната живёт до реапера.
func (rl *Relay) SessionEnded(sessionID string, bookingID int64) {
	rl.Notify(sessionID, Frame{Type: FrameSessionEnded, Payload: mustPayload(map[string]interface{}{
		"sessionId": sessionID,
		"bookingId": bookingID,
	})})
}

// Run сохраняет сообщения чата из очереди до отмены ctx, затем дочищает очередь.
func (rl *Relay) Run(ctx context.Context) {
	for {
		select {
		case msg := <-rl.chatQueue:
			rl.persist(ctx, msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-rl.chatQueue:
					rl.persist(context.WithoutCancel(ctx), msg)
				default:
					return
				}
			}
		}
	}
}

func (rl *Relay) enqueueChat(msg domain.ChatMessage) {
	select {
	case rl.chatQueue <- msg:
	default:
		rl.metrics.IncFrameDropped("chat_queue_full")
		rl.logger.Warn("signaling: chat queue full, message from %d in session %s not persisted", msg.SenderID, msg.SessionID)
	}
}

func (rl *Relay) persist(ctx context.Context, msg domain.ChatMessage) {
	if err := rl.chat.Append(ctx, msg); err != nil {
		rl.logger.Error("signaling: failed to persist chat message in session %s: %v", msg.SessionID, err)
	}
}

func parseChat(payload json.RawMessage) (string, error) {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidChat, err)
	}
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidChat)
	}
	if n := len([]rune(text)); n > domain.MaxChatMessageLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrInvalidChat, n, domain.MaxChatMessageLength)
	}
	return text, nil
}
