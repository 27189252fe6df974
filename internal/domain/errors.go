package domain

import "errors"

// Kind classifies engine errors.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindWorkerFault Kind = "worker_fault"
	KindTimeout     Kind = "timeout"
	KindUnsupported Kind = "unsupported"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrWorkerFault = &Error{Kind: KindWorkerFault}
	ErrTimeout     = &Error{Kind: KindTimeout}
	ErrUnsupported = &Error{Kind: KindUnsupported}
)

// Error is the typed error surfaced to callers of the engine.
type Error struct {
	Kind        Kind
	Message     string
	Context     string
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a bare kind sentinel matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// NewValidationError reports a caller precondition violation.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Recoverable: true}
}

// NewNotFoundError reports a missing index.
func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Recoverable: true}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRecoverable reports whether the caller may retry after err.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}
