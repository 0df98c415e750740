package signaling

import "encoding/json"

// Типы кадров соединения сессии.
const (
	FrameJoin         = "join"
	FrameOffer        = "offer"
	FrameAnswer       = "answer"
	FrameICECandidate = "ice-candidate"
	FrameChat         = "chat"
	FrameLeave        = "leave"

	FrameJoined       = "joined"
	FramePeerJoined   = "peer-joined"
	FramePeerLeft     = "peer-left"
	FrameSessionEnded = "session-ended"
	FrameError        = "error"
)

// CodeServerShutdown код ошибки для участников, отключённых при остановке сервера
const CodeServerShutdown = "SERVER_SHUTDOWN"

// Frame конверт кадра. Payload пересылается собеседникам без изменений.
type Frame struct {
	Type    string          `json:"type"`
	From    int64           `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IsRelayable true, если кадры типа t пересылаются собеседникам
func IsRelayable(t string) bool {
	switch t {
	case FrameOffer, FrameAnswer, FrameICECandidate, FrameChat:
		return true
	}
	return false
}

// ChatPayload содержимое кадра chat
type ChatPayload struct {
	Text string `json:"text"`
}

// PresencePayload участник в кадрах joined/peer-joined/peer-left
type PresencePayload struct {
	SessionID     string  `json:"sessionId"`
	ParticipantID int64   `json:"participantId"`
	Role          string  `json:"role"`
	Peers         []int64 `json:"peers,omitempty"`
}

// ErrorPayload содержимое кадра error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func mustPayload(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// NewErrorFrame собирает кадр ошибки для отправителя
func NewErrorFrame(code, message string) Frame {
	return Frame{Type: FrameError, Payload: mustPayload(ErrorPayload{Code: code, Message: message})}
}
