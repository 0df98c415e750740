package bookings

import (
	"errors"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = domain.NewError(domain.ErrNotFound, "bookings: booking not found")

	// ErrSessionNotFound возвращается, когда сессия не найдена
	ErrSessionNotFound = domain.NewError(domain.ErrNotFound, "bookings: session not found")

	// ErrSessionNotActive возвращается при подключении к сессии, которая не идёт
	ErrSessionNotActive = domain.NewError(domain.ErrInvalidState, "bookings: session is not in progress")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = domain.NewError(domain.ErrValidation, "bookings: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("bookings: internal error")
)
