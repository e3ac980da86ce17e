package task

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a failure class. The set is closed; callers switch on
// the kind rather than on error instances.
type ErrorKind int

const (
	// KindTimeout indicates the task deadline elapsed before the work completed.
	KindTimeout ErrorKind = iota
	// KindResourceUnavailable indicates admission was denied by the resource ledger
	// or the wait queue was full.
	KindResourceUnavailable
	// KindCancelled indicates explicit or shutdown-triggered cancellation.
	KindCancelled
	// KindNoResult indicates the internal completion race produced neither a
	// value nor an error. It is an invariant violation, surfaced rather than
	// swallowed so it shows up in testing.
	KindNoResult
	// KindUnknown covers internal invariant violations.
	KindUnknown
	// KindCustom carries a caller-defined failure message unchanged.
	KindCustom
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindResourceUnavailable:
		return "resourceUnavailable"
	case KindCancelled:
		return "cancelled"
	case KindNoResult:
		return "noResult"
	case KindUnknown:
		return "unknown"
	case KindCustom:
		return "custom"
	default:
		return "invalid"
	}
}

// Error is the engine failure type. Identity is by kind, and additionally by
// message for custom errors, never by instance.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Message)
}

// Is reports kind equality so that errors.Is(err, &Error{Kind: ...}) works
// across instances. Custom errors additionally compare messages.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != other.Kind {
		return false
	}
	if e.Kind == KindCustom {
		return e.Message == other.Message
	}
	return true
}

// NewTimeoutError creates a timeout failure.
func NewTimeoutError(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

// NewResourceUnavailableError creates an admission-denied failure.
func NewResourceUnavailableError(message string) *Error {
	return &Error{Kind: KindResourceUnavailable, Message: message}
}

// NewCancelledError creates a cancellation failure.
func NewCancelledError(message string) *Error {
	return &Error{Kind: KindCancelled, Message: message}
}

// NewUnknownError creates an internal invariant-violation failure.
func NewUnknownError(message string) *Error {
	return &Error{Kind: KindUnknown, Message: message}
}

// NewCustomError wraps a caller-defined failure message.
func NewCustomError(message string) *Error {
	return &Error{Kind: KindCustom, Message: message}
}

// KindOf classifies an arbitrary error. Engine errors report their own kind;
// anything else is custom.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindCustom
}
