package domain

import "errors"

// Error kinds. Every error that crosses a package boundary wraps exactly one of them.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrPolicyViolation = errors.New("policy violation")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrTransient       = errors.New("transient failure")
)

// Code is the stable, transport-independent error code.
type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodePolicyViolation Code = "POLICY_VIOLATION"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeTransient       Code = "TRANSIENT"
	CodeInternal        Code = "INTERNAL"
)

var kindCodes = []struct {
	kind error
	code Code
}{
	{ErrValidation, CodeValidation},
	{ErrConflict, CodeConflict},
	{ErrPolicyViolation, CodePolicyViolation},
	{ErrForbidden, CodeForbidden},
	{ErrNotFound, CodeNotFound},
	{ErrInvalidState, CodeInvalidState},
	{ErrTransient, CodeTransient},
}

// CodeOf returns the code of the first kind found in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return CodeInternal
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewError returns a sentinel with its own message that also matches kind via errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Lifecycle sentinels.
var (
	ErrNotAuthorized        = NewError(ErrForbidden, "booking: actor is not allowed to perform this action")
	ErrTransitionNotAllowed = NewError(ErrInvalidState, "booking: transition is not allowed from current status")
	ErrCancellationWindow   = NewError(ErrPolicyViolation, "booking: cancellation window has closed")
	ErrReasonTooLong        = NewError(ErrValidation, "booking: cancellation reason is too long")
	ErrVersionConflict      = NewError(ErrConflict, "booking: modified concurrently, reload and retry")
)
