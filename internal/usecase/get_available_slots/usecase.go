package get_available_slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	providerClient "github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/providerservice"
)

// UseCase use case для получения сетки слотов консультанта на дату
type UseCase struct {
	bookingRepo    BookingRepository
	providerClient ProviderServiceClient
	policy         Policy
	timeProvider   TimeProvider
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	providerClient ProviderServiceClient,
	policy Policy,
	logger Logger,
) *UseCase {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.StepMinutes <= 0 {
		policy.StepMinutes = DefaultPolicy().StepMinutes
	}
	return &UseCase{
		bookingRepo:    bookingRepo,
		providerClient: providerClient,
		policy:         policy,
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
	}
}

// Execute выполняет use case получения слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: provider=%d, date=%s, duration=%d",
		req.ProviderID, req.Date.Format(domain.DateFormat), req.DurationMinutes)

	// 1. Валидация входных данных
	duration, err := validateRequest(req, uc.policy)
	if err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}
	y, m, d := req.Date.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	response := &Response{
		ProviderID:      req.ProviderID,
		Date:            date,
		DurationMinutes: duration,
		Slots:           []domain.AvailableSlot{},
	}

	// 2. Получаем консультанта
	provider, err := uc.providerClient.GetProvider(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, providerClient.ErrProviderNotFound) {
			uc.logger.Warn("GetAvailableSlots: provider id=%d not found", req.ProviderID)
			return nil, ErrProviderNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get provider id=%d: %v", req.ProviderID, err)
		if errors.Is(err, providerClient.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrProviderServiceUnavailable, err)
		}
		return nil, fmt.Errorf("%w: failed to get provider: %v", ErrInternal, err)
	}

	if !provider.IsBookable() {
		uc.logger.Warn("GetAvailableSlots: provider id=%d is not bookable", provider.ID)
		return nil, ErrProviderNotFound
	}

	// 3. Окна приёма на день недели
	windows := provider.WorkingHours.ForWeekday(date.Weekday())
	if len(windows) == 0 {
		uc.logger.Info("GetAvailableSlots: provider id=%d does not work on %s", provider.ID, date.Weekday())
		return response, nil
	}

	// 4. Сетка слотов
	slots := generateSlots(windows, duration, uc.policy.StepMinutes)

	// 5. Бронирования, удерживающие слоты
	holders, err := uc.bookingRepo.ListSlotHolders(ctx, req.ProviderID, date)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get bookings: %v", err)
		return nil, fmt.Errorf("%w: failed to get bookings: %v", ErrInternal, err)
	}

	// 6. Помечаем занятые слоты
	response.Slots = markAvailability(req.ProviderID, date, slots, holders, uc.timeProvider.Now(), uc.policy.Location)

	uc.logger.Info("GetAvailableSlots: generated %d slots for provider=%d, date=%s",
		len(response.Slots), req.ProviderID, date.Format(domain.DateFormat))

	return response, nil
}
