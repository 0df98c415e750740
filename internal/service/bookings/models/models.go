package models

import (
	"errors"
	"time"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/integrations/jitsi"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid booking status")
)

// Request модели

// CancelBookingRequest запрос на отмену бронирования
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// ListBookingsRequest запрос на получение бронирований текущего пользователя
type ListBookingsRequest struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page"`  // с 1; 0 означает первую страницу
	Limit  int     `json:"limit"` // 1..50; 0 означает размер по умолчанию
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID              int64   `json:"id"`
	ClientID        int64   `json:"clientId"`
	ProviderID      int64   `json:"providerId"`
	Date            string  `json:"date"`      // "2024-06-01"
	StartTime       string  `json:"startTime"` // "14:00"
	EndTime         string  `json:"endTime"`   // "15:00"
	DurationMinutes int     `json:"duration"`
	Method          string  `json:"method"`
	Topic           *string `json:"topic,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	Fee             int64   `json:"fee"`
	Status          string  `json:"status"`
	PaymentStatus   string  `json:"paymentStatus"`

	SessionID             *string    `json:"sessionId,omitempty"`
	SessionStartedAt      *time.Time `json:"sessionStartedAt,omitempty"`
	SessionEndedAt        *time.Time `json:"sessionEndedAt,omitempty"`
	ActualDurationMinutes *int       `json:"actualDuration,omitempty"`

	CancelledBy        *int64  `json:"cancelledBy,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"` // ISO 8601 format
	CancellationReason *string `json:"cancellationReason,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// SessionResponse сводка сессии для её участников
type SessionResponse struct {
	SessionID             string     `json:"sessionId"`
	BookingID             int64      `json:"bookingId"`
	ClientID              int64      `json:"clientId"`
	ProviderID            int64      `json:"providerId"`
	Method                string     `json:"method"`
	Status                string     `json:"status"`
	Date                  string     `json:"date"`
	StartTime             string     `json:"startTime"`
	EndTime               string     `json:"endTime"`
	DurationMinutes       int        `json:"duration"`
	StartedAt             *time.Time `json:"startedAt,omitempty"`
	EndedAt               *time.Time `json:"endedAt,omitempty"`
	ActualDurationMinutes *int       `json:"actualDuration,omitempty"`

	Video *VideoRoomResponse `json:"jitsiConfig,omitempty"`
}

// VideoRoomResponse параметры подключения к видеокомнате Jitsi Meet
type VideoRoomResponse struct {
	Domain    string `json:"domain"`
	RoomName  string `json:"roomName"`
	JWT       string `json:"jwt,omitempty"`
	Moderator bool   `json:"moderator"`
}

// ChatMessageResponse сообщение чата сессии
type ChatMessageResponse struct {
	SenderID   int64     `json:"senderId"`
	SenderRole string    `json:"senderRole"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
}

// ChatHistoryResponse история чата сессии
type ChatHistoryResponse struct {
	SessionID string                `json:"sessionId"`
	Messages  []ChatMessageResponse `json:"messages"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	resp := &BookingResponse{
		ID:                    b.ID,
		ClientID:              b.ClientID,
		ProviderID:            b.ProviderID,
		Date:                  b.Date.Format(domain.DateFormat),
		StartTime:             b.StartTime.String(),
		EndTime:               b.EndTime.String(),
		DurationMinutes:       b.DurationMinutes,
		Method:                string(b.Method),
		Notes:                 b.Notes,
		Fee:                   b.Fee,
		Status:                string(b.Status),
		PaymentStatus:         string(b.PaymentStatus),
		SessionID:             b.SessionID,
		SessionStartedAt:      b.SessionStartedAt,
		SessionEndedAt:        b.SessionEndedAt,
		ActualDurationMinutes: b.ActualDurationMinutes,
		CancelledBy:           b.CancelledBy,
		CancellationReason:    b.CancellationReason,
		Version:               b.Version,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}

	if b.Topic != nil {
		topic := string(*b.Topic)
		resp.Topic = &topic
	}

	// Конвертируем CancelledAt в строку ISO 8601
	if b.CancelledAt != nil {
		cancelledStr := b.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelledStr
	}

	return resp
}

// FromDomainBookingList конвертирует страницу domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking, total, page, limit int) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
		Total:    total,
		Page:     page,
		Limit:    limit,
	}

	for _, booking := range bookings {
		if bookingResp := FromDomainBooking(booking); bookingResp != nil {
			resp.Bookings = append(resp.Bookings, *bookingResp)
		}
	}

	return resp
}

// FromDomainSession собирает сводку сессии из бронирования
func FromDomainSession(b *domain.Booking) *SessionResponse {
	resp := &SessionResponse{
		BookingID:             b.ID,
		ClientID:              b.ClientID,
		ProviderID:            b.ProviderID,
		Method:                string(b.Method),
		Status:                string(b.Status),
		Date:                  b.Date.Format(domain.DateFormat),
		StartTime:             b.StartTime.String(),
		EndTime:               b.EndTime.String(),
		DurationMinutes:       b.DurationMinutes,
		StartedAt:             b.SessionStartedAt,
		EndedAt:               b.SessionEndedAt,
		ActualDurationMinutes: b.ActualDurationMinutes,
	}
	if b.SessionID != nil {
		resp.SessionID = *b.SessionID
	}
	return resp
}

// FromMeeting конвертирует параметры видеокомнаты в DTO
func FromMeeting(m jitsi.Meeting) *VideoRoomResponse {
	return &VideoRoomResponse{
		Domain:    m.Domain,
		RoomName:  m.RoomName,
		JWT:       m.JWT,
		Moderator: m.Moderator,
	}
}

// FromDomainChatHistory конвертирует историю чата в DTO
func FromDomainChatHistory(sessionID string, messages []domain.ChatMessage) *ChatHistoryResponse {
	resp := &ChatHistoryResponse{
		SessionID: sessionID,
		Messages:  make([]ChatMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, ChatMessageResponse{
			SenderID:   m.SenderID,
			SenderRole: string(m.SenderRole),
			Text:       m.Text,
			SentAt:     m.SentAt,
		})
	}
	return resp
}

// ToDomainBookingStatus конвертирует строку в domain.BookingStatus с валидацией
func ToDomainBookingStatus(status string) (domain.BookingStatus, error) {
	s, ok := domain.ParseBookingStatus(status)
	if !ok {
		return "", ErrInvalidStatus
	}
	return s, nil
}
