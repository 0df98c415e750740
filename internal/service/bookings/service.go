package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
)

// Service сервис переходов и чтения отдельных бронирований.
// Переходы выполняются оптимистично: чтение, переход в домене,
// запись с проверкой версии. Проигравший в гонке получает ErrVersionConflict.
type Service struct {
	bookingRepo  BookingRepository
	payments     RefundGateway
	chat         ChatHistory
	video        VideoRooms
	publisher    EventPublisher
	metrics      Metrics
	policy       domain.CancellationPolicy
	newSessionID func() string
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	payments RefundGateway,
	chat ChatHistory,
	video VideoRooms,
	publisher EventPublisher,
	metrics Metrics,
	policy domain.CancellationPolicy,
	logger Logger,
) *Service {
	if policy.Window == 0 {
		policy.Window = domain.DefaultCancellationWindow
	}
	return &Service{
		bookingRepo:  bookingRepo,
		payments:     payments,
		chat:         chat,
		video:        video,
		publisher:    publisher,
		metrics:      metrics,
		policy:       policy,
		newSessionID: domain.NewSessionID,
		timeProvider: realTimeProvider{},
		logger:       logger,
	}
}

// GetByID получает бронирование по ID.
// Доступно клиенту, консультанту бронирования и администратору.
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d", id, actor.UserID)

	booking, err := s.load(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	if err := booking.Authorize(domain.ActionView, actor); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", actor.UserID, id)
		return nil, err
	}

	return models.FromDomainBooking(booking), nil
}

// List получает бронирования текущего пользователя, новые сначала.
// Клиент видит свои бронирования, консультант назначенные ему, администратор все.
func (s *Service) List(ctx context.Context, actor domain.Actor, req *models.ListBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("List: fetching bookings for user=%d role=%s status=%v page=%d limit=%d",
		actor.UserID, actor.Role, req.Status, req.Page, req.Limit)

	page, limit := req.Page, req.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = domain.DefaultPageSize
	}
	if page < 1 || limit < 1 || limit > domain.MaxPageSize {
		return nil, fmt.Errorf("%w: page must be >= 1 and limit within 1..%d", ErrInvalidInput, domain.MaxPageSize)
	}

	filter := domain.BookingsFilter{Offset: (page - 1) * limit, Limit: limit}
	switch actor.Role {
	case domain.RoleClient:
		filter.ClientID = &actor.UserID
	case domain.RoleProvider:
		filter.ProviderID = &actor.ProviderID
	case domain.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrNotAuthorized, actor.Role)
	}

	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("List: invalid status=%s for user=%d", *req.Status, actor.UserID)
			return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, *req.Status)
		}
		filter.Status = &status
	}

	bookings, total, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error for user=%d: %v", actor.UserID, err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: fetched %d of %d bookings for user=%d", len(bookings), total, actor.UserID)
	return models.FromDomainBookingList(bookings, total, page, limit), nil
}

// Confirm подтверждает бронирование (pending -> confirmed). Только консультант.
func (s *Service) Confirm(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	booking, err := s.load(ctx, "Confirm", id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "Confirm", booking, func(b *domain.Booking, now time.Time) (domain.Transition, error) {
		return b.Confirm(actor, now)
	})
}

// Cancel отменяет бронирование не позднее чем за окно отмены до начала.
// Оплаченное бронирование возвращается; ошибка возврата не отменяет отмену.
func (s *Service) Cancel(ctx context.Context, id int64, actor domain.Actor, req *models.CancelBookingRequest) (*models.BookingResponse, error) {
	booking, err := s.load(ctx, "Cancel", id)
	if err != nil {
		return nil, err
	}

	resp, err := s.apply(ctx, "Cancel", booking, func(b *domain.Booking, now time.Time) (domain.Transition, error) {
		return b.Cancel(actor, req.Reason, now, s.policy)
	})
	if err != nil {
		return nil, err
	}

	if booking.PaymentStatus == domain.PaymentPaid && booking.PaymentID != nil && booking.Fee > 0 {
		s.refund(ctx, booking)
		resp.PaymentStatus = string(booking.PaymentStatus)
	}
	return resp, nil
}

// Start начинает сессию (confirmed -> in-progress) и выдаёт идентификатор сессии
func (s *Service) Start(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	booking, err := s.load(ctx, "Start", id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "Start", booking, func(b *domain.Booking, now time.Time) (domain.Transition, error) {
		return b.Start(actor, now, s.newSessionID)
	})
}

// End завершает сессию (in-progress -> completed) и фиксирует фактическую длительность
func (s *Service) End(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	booking, err := s.load(ctx, "End", id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "End", booking, func(b *domain.Booking, now time.Time) (domain.Transition, error) {
		return b.End(actor, now)
	})
}

// EndBySession завершает сессию по её идентификатору
func (s *Service) EndBySession(ctx context.Context, sessionID string, actor domain.Actor) (*models.SessionResponse, error) {
	booking, err := s.loadBySession(ctx, "EndBySession", sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.apply(ctx, "EndBySession", booking, func(b *domain.Booking, now time.Time) (domain.Transition, error) {
		return b.End(actor, now)
	}); err != nil {
		return nil, err
	}
	return models.FromDomainSession(booking), nil
}

// MarkNoShow отмечает неявку (confirmed -> no-show). Только администратор.
func (s *Service) MarkNoShow(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	booking, err := s.load(ctx, "MarkNoShow", id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "MarkNoShow", booking, func(b *domain.Booking, now time.Time) (domain.Transition, error) {
		return b.MarkNoShow(actor, now)
	})
}

// GetSession получает сводку сессии. Только участники.
// Для video-сессий в ответ добавляются параметры видеокомнаты участника.
func (s *Service) GetSession(ctx context.Context, sessionID string, actor domain.Actor) (*models.SessionResponse, error) {
	booking, err := s.participantSession(ctx, "GetSession", sessionID, actor)
	if err != nil {
		return nil, err
	}

	resp := models.FromDomainSession(booking)
	if booking.Method != domain.MethodVideo || s.video == nil {
		return resp, nil
	}
	meeting, err := s.video.Meeting(sessionID, actor.UserID, actor.IsProviderOf(booking))
	if err != nil {
		s.logger.Error("GetSession: video room for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("%w: GetSession - video room: %v", ErrInternal, err)
	}
	resp.Video = models.FromMeeting(meeting)
	return resp, nil
}

// GetSessionMessages получает историю чата сессии. Только участники.
func (s *Service) GetSessionMessages(ctx context.Context, sessionID string, actor domain.Actor) (*models.ChatHistoryResponse, error) {
	if _, err := s.participantSession(ctx, "GetSessionMessages", sessionID, actor); err != nil {
		return nil, err
	}

	messages, err := s.chat.History(ctx, sessionID)
	if err != nil {
		s.logger.Error("GetSessionMessages: chat store error for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("%w: GetSessionMessages - chat store error: %v", ErrInternal, err)
	}
	return models.FromDomainChatHistory(sessionID, messages), nil
}

// AuthorizeSessionJoin проверяет, что участник может подключиться к идущей сессии
func (s *Service) AuthorizeSessionJoin(ctx context.Context, sessionID string, actor domain.Actor) (*models.SessionResponse, error) {
	booking, err := s.loadBySession(ctx, "AuthorizeSessionJoin", sessionID)
	if err != nil {
		return nil, err
	}
	if err := booking.Authorize(domain.ActionJoin, actor); err != nil {
		s.logger.Warn("AuthorizeSessionJoin: user=%d is not a participant of session %s", actor.UserID, sessionID)
		return nil, err
	}
	if booking.Status != domain.StatusInProgress {
		s.logger.Warn("AuthorizeSessionJoin: session %s is %s", sessionID, booking.Status)
		return nil, fmt.Errorf("%w: booking %d is %s", ErrSessionNotActive, booking.ID, booking.Status)
	}
	return models.FromDomainSession(booking), nil
}

// Вспомогательные методы

func (s *Service) participantSession(ctx context.Context, op, sessionID string, actor domain.Actor) (*domain.Booking, error) {
	booking, err := s.loadBySession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if err := booking.Authorize(domain.ActionJoin, actor); err != nil {
		s.logger.Warn("%s: access denied for user=%d to session %s", op, actor.UserID, sessionID)
		return nil, err
	}
	return booking, nil
}

// apply выполняет переход над загруженным бронированием и сохраняет его с проверкой версии.
// При ошибке перехода бронирование в хранилище не меняется.
func (s *Service) apply(
	ctx context.Context,
	op string,
	booking *domain.Booking,
	transition func(b *domain.Booking, now time.Time) (domain.Transition, error),
) (*models.BookingResponse, error) {
	version := booking.Version

	t, err := transition(booking, s.timeProvider.Now())
	if err != nil {
		s.logger.Warn("%s: booking id=%d rejected: %v", op, booking.ID, err)
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, booking, version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.logger.Warn("%s: booking id=%d: %v", op, booking.ID, err)
			return nil, err
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, booking.ID, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}

	s.logger.Info("%s: booking id=%d %s -> %s by user=%d", op, booking.ID, t.From, t.To, t.ActorID)
	s.metrics.IncBookingTransition(string(t.From), string(t.To))
	s.publisher.Publish(domain.NewStatusChangedEvent(booking, t))

	return models.FromDomainBooking(booking), nil
}

// refund возвращает оплату отменённого бронирования. Ошибки только логируются.
func (s *Service) refund(ctx context.Context, booking *domain.Booking) {
	if err := s.payments.Refund(ctx, booking.ID, *booking.PaymentID, booking.Fee); err != nil {
		s.logger.Error("Cancel: refund for booking id=%d amount=%d failed: %v", booking.ID, booking.Fee, err)
		return
	}
	if err := s.bookingRepo.UpdatePayment(ctx, booking.ID, domain.PaymentRefunded, nil); err != nil {
		s.logger.Error("Cancel: failed to store refund for booking id=%d: %v", booking.ID, err)
		return
	}
	booking.PaymentStatus = domain.PaymentRefunded
	s.logger.Info("Cancel: refunded %d for booking id=%d", booking.Fee, booking.ID)
}

func (s *Service) load(ctx context.Context, op string, id int64) (*domain.Booking, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: booking id must be positive", ErrInvalidInput)
	}
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("%s: booking id=%d not found", op, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}

func (s *Service) loadBySession(ctx context.Context, op string, sessionID string) (*domain.Booking, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	booking, err := s.bookingRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("%s: session %s not found", op, sessionID)
			return nil, ErrSessionNotFound
		}
		s.logger.Error("%s: repository error for session %s: %v", op, sessionID, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}
