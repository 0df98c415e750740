package create_booking

import (
	"errors"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = domain.NewError(domain.ErrValidation, "create_booking: invalid input data")

	// ErrInvalidDate возвращается, когда слот уже начался или в прошлом
	ErrInvalidDate = domain.NewError(domain.ErrValidation, "create_booking: booking date is in the past")

	// ErrDurationOutOfRange возвращается, когда длительность вне допустимых границ
	ErrDurationOutOfRange = domain.NewError(domain.ErrValidation, "create_booking: duration is out of range")

	// ErrProviderNotFound возвращается, когда консультант не найден, не активен или не одобрен
	ErrProviderNotFound = domain.NewError(domain.ErrNotFound, "create_booking: provider not found")

	// ErrMethodNotSupported возвращается, когда консультант не работает в выбранном формате
	ErrMethodNotSupported = domain.NewError(domain.ErrValidation, "create_booking: provider does not support this method")

	// ErrSlotNotAvailable возвращается, когда слот пересекается с существующим бронированием
	ErrSlotNotAvailable = domain.NewError(domain.ErrConflict, "create_booking: slot is not available")

	// ErrPaymentDeclined возвращается, когда списание оплаты отклонено
	ErrPaymentDeclined = domain.NewError(domain.ErrValidation, "create_booking: payment declined")

	// ErrPaymentUnavailable возвращается, когда платёжный шлюз недоступен
	ErrPaymentUnavailable = domain.NewError(domain.ErrTransient, "create_booking: payment gateway unavailable")

	// ErrProviderServiceUnavailable возвращается, когда каталог консультантов недоступен
	ErrProviderServiceUnavailable = domain.NewError(domain.ErrTransient, "create_booking: provider service unavailable")

	// ErrLockTimeout возвращается, когда не удалось дождаться блокировки дня консультанта
	ErrLockTimeout = domain.NewError(domain.ErrTransient, "create_booking: timed out waiting for slot lock")

	// ErrConcurrentBooking возвращается, когда транзакция не прошла из-за параллельных бронирований
	ErrConcurrentBooking = domain.NewError(domain.ErrTransient, "create_booking: concurrent booking in progress, retry")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
