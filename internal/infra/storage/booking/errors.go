package booking

import (
	"errors"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = domain.NewError(domain.ErrNotFound, "booking.repository: booking not found")

	// ErrSlotTaken возвращается, когда вставка нарушает ограничение на пересечение слотов
	ErrSlotTaken = domain.NewError(domain.ErrConflict, "booking.repository: slot overlaps an existing booking")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("booking.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("booking.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("booking.repository: failed to scan row")
)
