package handlers

import (
	"errors"
	"net/http"

	"golang.org/x/text/language"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
)

// Поддерживаемые языки ответов; первый используется по умолчанию.
var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

// Message локализованный текст ответа
type Message struct {
	KO string
	EN string
}

// In возвращает текст на языке tag, по умолчанию корейский
func (m Message) In(tag language.Tag) string {
	if base, _ := tag.Base(); base.String() == "en" && m.EN != "" {
		return m.EN
	}
	return m.KO
}

// ErrorMessage сопоставляет sentinel ошибку с текстом
type ErrorMessage struct {
	Err error
	Msg Message
}

var genericMessages = map[domain.Code]Message{
	domain.CodeValidation:      {KO: "요청 값이 올바르지 않습니다", EN: "The request is invalid"},
	domain.CodeConflict:        {KO: "다른 요청과 충돌했습니다. 다시 시도해 주세요", EN: "The request conflicts with the current state, please retry"},
	domain.CodePolicyViolation: {KO: "정책상 허용되지 않는 요청입니다", EN: "The request violates a booking policy"},
	domain.CodeForbidden:       {KO: "권한이 없습니다", EN: "You are not allowed to perform this action"},
	domain.CodeNotFound:        {KO: "대상을 찾을 수 없습니다", EN: "The resource was not found"},
	domain.CodeInvalidState:    {KO: "현재 상태에서는 수행할 수 없습니다", EN: "The action is not allowed in the current state"},
	domain.CodeTransient:       {KO: "일시적인 오류입니다. 잠시 후 다시 시도해 주세요", EN: "Temporary failure, please retry later"},
	domain.CodeInternal:        {KO: "서버 내부 오류가 발생했습니다", EN: "Internal server error"},
}

// Сообщения для ошибок жизненного цикла, общие для всех обработчиков
var lifecycleMessages = []ErrorMessage{
	{domain.ErrCancellationWindow, Message{KO: "예약 시작 24시간 전까지만 취소할 수 있습니다", EN: "Bookings can only be cancelled more than 24 hours before the start"}},
	{domain.ErrVersionConflict, Message{KO: "예약이 동시에 변경되었습니다. 새로 고친 후 다시 시도해 주세요", EN: "The booking was modified concurrently, reload and retry"}},
	{domain.ErrReasonTooLong, Message{KO: "취소 사유는 500자를 넘을 수 없습니다", EN: "The cancellation reason must not exceed 500 characters"}},
	{domain.ErrTransitionNotAllowed, Message{KO: "현재 예약 상태에서는 수행할 수 없습니다", EN: "The booking status does not allow this action"}},
	{domain.ErrNotAuthorized, Message{KO: "이 예약에 대한 권한이 없습니다", EN: "You are not allowed to act on this booking"}},
}

var statusByCode = map[domain.Code]int{
	domain.CodeValidation:      http.StatusBadRequest,
	domain.CodeConflict:        http.StatusConflict,
	domain.CodePolicyViolation: http.StatusUnprocessableEntity,
	domain.CodeForbidden:       http.StatusForbidden,
	domain.CodeNotFound:        http.StatusNotFound,
	domain.CodeInvalidState:    http.StatusConflict,
	domain.CodeTransient:       http.StatusServiceUnavailable,
	domain.CodeInternal:        http.StatusInternalServerError,
}

// Language выбирает язык ответа по Accept-Language
func Language(r *http.Request) language.Tag {
	if r == nil {
		return supported[0]
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// StatusOf HTTP статус для ошибки по её коду
func StatusOf(err error) int {
	return statusByCode[domain.CodeOf(err)]
}

// IsServerError true для ошибок, о которых стоит писать в лог уровня Error
func IsServerError(err error) bool {
	code := domain.CodeOf(err)
	return code == domain.CodeInternal || code == domain.CodeTransient
}

// RespondDomainError отправляет ошибку с кодом из domain.CodeOf.
// Текст берётся из known (первое совпадение), затем из общих сообщений жизненного цикла,
// затем общий текст для кода.
func RespondDomainError(w http.ResponseWriter, r *http.Request, err error, known []ErrorMessage) {
	code := domain.CodeOf(err)
	RespondError(w, statusByCode[code], string(code), messageFor(err, code, known).In(Language(r)))
}

func messageFor(err error, code domain.Code, known []ErrorMessage) Message {
	if code == domain.CodeInternal {
		return genericMessages[code]
	}
	for _, list := range [][]ErrorMessage{known, lifecycleMessages} {
		for _, m := range list {
			if errors.Is(err, m.Err) {
				return m.Msg
			}
		}
	}
	return genericMessages[code]
}

// Localize текст m на языке запроса
func Localize(r *http.Request, m Message) string {
	return m.In(Language(r))
}
