package signaling

import "github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"

var (
	// ErrUnknownFrameType тип кадра нельзя пересылать
	ErrUnknownFrameType = domain.NewError(domain.ErrValidation, "signaling: unknown frame type")

	// ErrInvalidChat сообщение чата пустое, слишком длинное или некорректное
	ErrInvalidChat = domain.NewError(domain.ErrValidation, "signaling: invalid chat message")

	// ErrNotJoined отправитель не зарегистрирован в комнате
	ErrNotJoined = domain.NewError(domain.ErrForbidden, "signaling: participant has not joined the session")

	// ErrRoomNotFound комнаты нет (не активирована или удалена по простою)
	ErrRoomNotFound = domain.NewError(domain.ErrNotFound, "signaling: session room not found")
)
