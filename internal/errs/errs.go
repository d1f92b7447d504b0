package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a domain error.
type Kind string

const (
	NotFound          Kind = "NOT_FOUND"
	InvalidInput      Kind = "INVALID_INPUT"
	InsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	Conflict          Kind = "CONFLICT"
	Unauthenticated   Kind = "UNAUTHENTICATED"
)

type Error struct {
	Kind    Kind
	Message string
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports equality on kind and message, so package level sentinels keep
// matching after being rebuilt with Newf or wrapped with %w.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf returns the kind of the first *Error in the chain, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
