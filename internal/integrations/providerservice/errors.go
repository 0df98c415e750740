package providerservice

import "errors"

var (
	// ErrProviderNotFound возвращается, когда консультант не найден
	ErrProviderNotFound = errors.New("providerservice client: provider not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("providerservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("providerservice client: invalid response")

	// ErrUnavailable сервис недоступен (таймаут, 5xx)
	ErrUnavailable = errors.New("providerservice client: service unavailable")
)
