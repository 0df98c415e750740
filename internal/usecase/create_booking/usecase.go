package create_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/payment"
	providerClient "github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/providerservice"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/txmanager"
)

// UseCase use case для создания бронирования
type UseCase struct {
	bookingRepo    BookingRepository
	providerClient ProviderServiceClient
	payments       PaymentGateway
	txManager      TransactionManager
	locker         SlotLocker
	publisher      EventPublisher
	metrics        Metrics
	policy         Policy
	timeProvider   TimeProvider
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	providerClient ProviderServiceClient,
	payments PaymentGateway,
	txManager TransactionManager,
	locker SlotLocker,
	publisher EventPublisher,
	metrics Metrics,
	policy Policy,
	logger Logger,
) *UseCase {
	if policy.Location == nil {
		policy.Location = DefaultPolicy().Location
	}
	if policy.ChargeTimeout <= 0 {
		policy.ChargeTimeout = DefaultPolicy().ChargeTimeout
	}
	return &UseCase{
		bookingRepo:    bookingRepo,
		providerClient: providerClient,
		payments:       payments,
		txManager:      txManager,
		locker:         locker,
		publisher:      publisher,
		metrics:        metrics,
		policy:         policy,
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
	}
}

// Execute выполняет use case создания бронирования.
// Проверка пересечений, вставка и списание оплаты выполняются под блокировкой
// дня консультанта в сериализуемой транзакции.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Booking, error) {
	uc.logger.Info("CreateBooking: client=%d, provider=%d, date=%s, time=%s-%s, method=%s",
		req.ClientID, req.ProviderID, req.Date.Format(domain.DateFormat), req.StartTime, req.EndTime, req.Method)

	// 1. Валидация входных данных
	slot, err := validateRequest(req, uc.policy)
	if err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}
	date := dateOnly(req.Date)

	// 2. Слот должен начинаться в будущем
	now := uc.timeProvider.Now()
	if startsAt := slot.Start.On(date, uc.policy.Location); !startsAt.After(now) {
		uc.logger.Warn("CreateBooking: slot %s %s is in the past", date.Format(domain.DateFormat), slot.Start)
		return nil, fmt.Errorf("%w: slot starts at %s", ErrInvalidDate, startsAt.Format("2006-01-02 15:04 MST"))
	}

	// 3. Получаем консультанта
	provider, err := uc.providerClient.GetProvider(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, providerClient.ErrProviderNotFound) {
			uc.logger.Warn("CreateBooking: provider id=%d not found", req.ProviderID)
			return nil, ErrProviderNotFound
		}
		uc.logger.Error("CreateBooking: failed to get provider id=%d: %v", req.ProviderID, err)
		if errors.Is(err, providerClient.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderServiceUnavailable, err)
		}
		return nil, fmt.Errorf("%w: failed to get provider: %v", ErrInternal, err)
	}

	if !provider.IsBookable() {
		uc.logger.Warn("CreateBooking: provider id=%d is not bookable (status=%s, active=%t)",
			provider.ID, provider.Status, provider.IsActive)
		return nil, fmt.Errorf("%w: provider %d is not accepting bookings", ErrProviderNotFound, provider.ID)
	}

	if !provider.SupportsMethod(string(req.Method)) {
		uc.logger.Warn("CreateBooking: provider id=%d does not support method %s", provider.ID, req.Method)
		return nil, fmt.Errorf("%w: %s", ErrMethodNotSupported, req.Method)
	}

	// 4. Блокировка дня консультанта
	lockCtx, cancel := context.WithTimeout(ctx, uc.policy.LockTimeout)
	defer cancel()
	unlock, err := uc.locker.Lock(lockCtx, lockKey(req.ProviderID, date))
	if err != nil {
		uc.logger.Warn("CreateBooking: lock provider=%d date=%s: %v", req.ProviderID, date.Format(domain.DateFormat), err)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	defer unlock()

	var (
		result    *domain.Booking
		paymentID string
	)

	// 5. Проверка пересечений, вставка и оплата в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// Повтор после serialization failure: предыдущее списание откатываем
		if paymentID != "" {
			uc.compensate(ctx, result, paymentID)
			paymentID = ""
		}
		result = nil

		// 5.1. Бронирования дня консультанта, удерживающие слоты (FOR UPDATE)
		holders, err := uc.bookingRepo.ListSlotHolders(txCtx, req.ProviderID, date)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to get bookings: %v", err)
			return fmt.Errorf("%w: failed to get bookings: %w", ErrInternal, err)
		}

		// 5.2. Проверяем доступность слота
		if existing, found := domain.FindConflict(req.ProviderID, date, slot, holders); found {
			uc.metrics.IncBookingConflict()
			uc.logger.Warn("CreateBooking: slot %s-%s overlaps booking id=%d (%s-%s)",
				slot.Start, slot.End, existing.ID, existing.StartTime, existing.EndTime)
			return ErrSlotNotAvailable
		}

		// 5.3. Создаём бронирование
		booking := &domain.Booking{
			ClientID:        req.ClientID,
			ProviderID:      req.ProviderID,
			Date:            date,
			StartTime:       slot.Start,
			EndTime:         slot.End,
			DurationMinutes: slot.DurationMinutes(),
			Method:          req.Method,
			Topic:           req.Topic,
			Notes:           req.Notes,
			Fee:             provider.Fee,
			Status:          domain.StatusPending,
			PaymentStatus:   domain.PaymentPending,
			Version:         1,
		}

		created, err := uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				uc.metrics.IncBookingConflict()
				uc.logger.Warn("CreateBooking: insert rejected by slot constraint: %v", err)
				return fmt.Errorf("%w: %v", ErrSlotNotAvailable, err)
			}
			uc.logger.Error("CreateBooking: failed to create booking: %v", err)
			return fmt.Errorf("%w: failed to create booking: %w", ErrInternal, err)
		}
		result = created

		// 5.4. Списываем оплату; ошибка откатывает создание
		if created.Fee <= 0 {
			return nil
		}
		chargeCtx, cancelCharge := context.WithTimeout(txCtx, uc.policy.ChargeTimeout)
		id, err := uc.payments.ChargeFee(chargeCtx, created.ID, created.Fee)
		cancelCharge()
		if err != nil {
			uc.logger.Warn("CreateBooking: charge booking id=%d amount=%d failed: %v", created.ID, created.Fee, err)
			switch {
			case errors.Is(err, payment.ErrDeclined):
				return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
			case errors.Is(err, payment.ErrUnavailable):
				return fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
			default:
				return fmt.Errorf("%w: charge: %v", ErrInternal, err)
			}
		}
		paymentID = id

		if err := uc.bookingRepo.UpdatePayment(txCtx, created.ID, domain.PaymentPaid, &paymentID); err != nil {
			uc.logger.Error("CreateBooking: failed to store payment for booking id=%d: %v", created.ID, err)
			return fmt.Errorf("%w: failed to store payment: %w", ErrInternal, err)
		}
		created.PaymentStatus = domain.PaymentPaid
		created.PaymentID = &paymentID
		return nil
	})

	if err != nil {
		// Оплата прошла, но транзакция не зафиксирована
		if paymentID != "" {
			uc.compensate(ctx, result, paymentID)
		}
		if errors.Is(err, txmanager.ErrSerialization) {
			uc.logger.Warn("CreateBooking: provider=%d date=%s: %v", req.ProviderID, date.Format(domain.DateFormat), err)
			return nil, fmt.Errorf("%w: %v", ErrConcurrentBooking, err)
		}
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict) ||
			errors.Is(err, domain.ErrTransient) || errors.Is(err, ErrInternal) {
			return nil, err
		}
		uc.logger.Error("CreateBooking: transaction failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	uc.logger.Info("CreateBooking: successfully created booking id=%d", result.ID)

	// 6. Событие для уведомлений
	uc.metrics.IncBookingTransition("", string(domain.StatusPending))
	uc.publisher.Publish(domain.NewStatusChangedEvent(result, domain.Transition{
		To:      domain.StatusPending,
		ActorID: req.ClientID,
		At:      now,
	}))

	return result, nil
}

// compensate возвращает оплату за бронирование, которое не было сохранено
func (uc *UseCase) compensate(ctx context.Context, booking *domain.Booking, paymentID string) {
	if booking == nil {
		return
	}
	if err := uc.payments.Refund(context.WithoutCancel(ctx), booking.ID, paymentID, booking.Fee); err != nil {
		uc.logger.Error("CreateBooking: compensating refund for booking id=%d payment=%s failed: %v",
			booking.ID, paymentID, err)
		return
	}
	uc.logger.Warn("CreateBooking: refunded payment=%s of rolled back booking id=%d", paymentID, booking.ID)
}
