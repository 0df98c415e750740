package get_available_slots

import (
	"errors"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

var (
	// ErrProviderNotFound возвращается, когда консультант не найден или не принимает записи
	ErrProviderNotFound = domain.NewError(domain.ErrNotFound, "get_available_slots: provider not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = domain.NewError(domain.ErrValidation, "get_available_slots: invalid input data")

	// ErrProviderServiceUnavailable возвращается, когда каталог консультантов недоступен
	ErrProviderServiceUnavailable = domain.NewError(domain.ErrTransient, "get_available_slots: provider service unavailable")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("get_available_slots: internal error")
)
