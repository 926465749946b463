package crawler

import (
	"errors"
	"fmt"
)

// ErrorKind names a category of failure.
type ErrorKind string

// Error kinds.
const (
	KindSourceNotFound        ErrorKind = "SourceNotFound"
	KindSourceUnreadable      ErrorKind = "SourceUnreadable"
	KindUnexpected            ErrorKind = "UnexpectedError"
	KindDestinationUnwritable ErrorKind = "DestinationUnwritable"
)

// Sentinels for errors.Is checks against the kind of an *Error.
var (
	ErrSourceNotFound        = &Error{Kind: KindSourceNotFound}
	ErrSourceUnreadable      = &Error{Kind: KindSourceUnreadable}
	ErrUnexpected            = &Error{Kind: KindUnexpected}
	ErrDestinationUnwritable = &Error{Kind: KindDestinationUnwritable}
)

// Error carries a failure kind, the path or URL it concerns, and the cause.
type Error struct {
	Kind    ErrorKind
	Subject string
	Err     error
}

// NewError builds an *Error.
func NewError(kind ErrorKind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindSourceNotFound:
		msg = fmt.Sprintf("input file %q does not exist", e.Subject)
	case KindSourceUnreadable:
		msg = fmt.Sprintf("cannot read input file %q", e.Subject)
	case KindDestinationUnwritable:
		msg = fmt.Sprintf("cannot write report to %q", e.Subject)
	default:
		msg = fmt.Sprintf("unexpected error for %s", e.Subject)
	}
	if e.Subject == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnexpected
}
