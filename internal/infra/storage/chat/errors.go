package chat

import "errors"

var (
	// ErrAppend возвращается при ошибке записи сообщения
	ErrAppend = errors.New("chat.store: failed to append message")

	// ErrHistory возвращается при ошибке чтения истории
	ErrHistory = errors.New("chat.store: failed to read history")

	// ErrEncode возвращается при ошибке сериализации сообщения
	ErrEncode = errors.New("chat.store: failed to encode message")
)
