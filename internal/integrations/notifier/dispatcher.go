package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// Sink доставляет событие во внешнюю систему уведомлений.
type Sink interface {
	Deliver(ctx context.Context, event domain.StatusChangedEvent) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Metrics счётчик результатов доставки (delivered|retried|failed|dropped)
type Metrics interface {
	IncNotification(result string)
}

// Dispatcher принимает события без блокировки вызывающего и доставляет их
// в Sink фоновыми воркерами с экспоненциальными повторами.
// Если очередь переполнена, событие отбрасывается с записью в лог.
// При остановке воркеры дочищают очередь не дольше drainTimeout.
type Dispatcher struct {
	queue        chan domain.StatusChangedEvent
	sink         Sink
	retry        RetryPolicy
	workers      int
	drainTimeout time.Duration
	logger       Logger
	metrics      Metrics

	wg sync.WaitGroup
}

func NewDispatcher(
	sink Sink,
	queueSize, workers int,
	retry RetryPolicy,
	drainTimeout time.Duration,
	logger Logger,
	metrics Metrics,
) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &Dispatcher{
		queue:        make(chan domain.StatusChangedEvent, queueSize),
		sink:         sink,
		retry:        retry,
		workers:      workers,
		drainTimeout: drainTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

// Emit ставит событие в очередь. Никогда не блокирует.
func (d *Dispatcher) Emit(event domain.StatusChangedEvent) error {
	select {
	case d.queue <- event:
	default:
		d.metrics.IncNotification("dropped")
		d.logger.Error("Notifier: queue full, dropping %s", event.Key())
	}
	return nil
}

// Start запускает воркеров. После отмены ctx они доставляют оставшиеся
// в очереди события; доставка прерывается через drainTimeout после отмены.
func (d *Dispatcher) Start(ctx context.Context) {
	deliverCtx, cancelDeliver := context.WithCancel(context.WithoutCancel(ctx))
	context.AfterFunc(ctx, func() {
		time.AfterFunc(d.drainTimeout, cancelDeliver)
	})

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.work(ctx, deliverCtx)
		}()
	}

	go func() {
		d.wg.Wait()
		cancelDeliver()
	}()
}

// Wait ждёт, пока воркеры дочистят очередь после отмены контекста.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx, deliverCtx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain(deliverCtx)
			return
		case event := <-d.queue:
			d.deliver(deliverCtx, event)
		}
	}
}

// drain доставляет то, что осталось в очереди; после истечения срока события отбрасываются
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			if ctx.Err() != nil {
				d.metrics.IncNotification("dropped")
				d.logger.Error("Notifier: shutdown deadline passed, dropping %s", event.Key())
				continue
			}
			d.deliver(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.StatusChangedEvent) {
	for attempt := 1; ; attempt++ {
		err := d.sink.Deliver(ctx, event)
		if err == nil {
			d.metrics.IncNotification("delivered")
			return
		}
		if attempt > d.retry.MaxRetries {
			d.metrics.IncNotification("failed")
			d.logger.Error("Notifier: giving up on %s after %d attempts: %v", event.Key(), attempt, err)
			return
		}

		delay := d.retry.NextDelay(attempt)
		d.metrics.IncNotification("retried")
		d.logger.Warn("Notifier: deliver %s attempt %d failed, retry in %s: %v", event.Key(), attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			d.metrics.IncNotification("dropped")
			d.logger.Error("Notifier: stopped while retrying %s: %v", event.Key(), err)
			return
		case <-timer.C:
		}
	}
}
