package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// TypeBookingStatusChanged тип задачи asynq, который обрабатывает сервис уведомлений
const TypeBookingStatusChanged = "booking:status_changed"

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqSink кладёт события в очередь asynq. Повторная постановка того же
// события отбрасывается по TaskID, поэтому ретраи диспетчера безопасны.
type AsynqSink struct {
	client   enqueuer
	queue    string
	maxRetry int
}

func NewAsynqSink(client *asynq.Client, queue string, maxRetry int) *AsynqSink {
	return newAsynqSink(client, queue, maxRetry)
}

func newAsynqSink(client enqueuer, queue string, maxRetry int) *AsynqSink {
	return &AsynqSink{client: client, queue: queue, maxRetry: maxRetry}
}

// NewStatusChangedTask строит задачу для события.
func NewStatusChangedTask(event domain.StatusChangedEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBookingStatusChanged, payload), nil
}

func (s *AsynqSink) Deliver(ctx context.Context, event domain.StatusChangedEvent) error {
	task, err := NewStatusChangedTask(event)
	if err != nil {
		return fmt.Errorf("notifier: marshal event: %w", err)
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(s.queue),
		asynq.MaxRetry(s.maxRetry),
		asynq.TaskID(event.Key()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("notifier: enqueue %s: %w", event.Key(), err)
	}
	return nil
}
