package payment

import "errors"

var (
	// ErrDeclined платёж отклонён (карта, лимиты, 3DS)
	ErrDeclined = errors.New("payment: charge declined")

	// ErrUnavailable платёжный шлюз недоступен, операцию можно повторить
	ErrUnavailable = errors.New("payment: gateway unavailable")

	// ErrInvalidAmount сумма списания/возврата некорректна
	ErrInvalidAmount = errors.New("payment: invalid amount")
)
