package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies a failure by what the caller can do about it.
type Kind int

const (
	// KindTransient covers network faults and unexpected backend errors; the caller may retry.
	KindTransient Kind = iota + 1
	// KindValidation is a user-actionable rejection (lookup miss, wrong currency, field errors).
	KindValidation
	// KindRateLimited carries a wait duration decoded from the backend.
	KindRateLimited
	// KindUnauthorized is an authorization failure not yet resolved by a refresh.
	KindUnauthorized
	// KindFatal means the session was torn down.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

const (
	// GenericMessage is shown when the backend gives nothing more specific.
	GenericMessage = "An unexpected error occurred. Please try again."
	// RetryLaterMessage is shown for rate limits without a usable wait descriptor.
	RetryLaterMessage = "Too many requests. Please try again later."
	// SessionExpiredMessage accompanies a session teardown.
	SessionExpiredMessage = "Your session has expired. Please sign in again."
)

// ErrSessionExpired is wrapped by every Fatal failure.
var ErrSessionExpired = errors.New("session expired")

// Error is the tagged failure returned by every remote operation.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string][]string
	Wait    time.Duration
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// FieldMessage returns the first message of the first present field, in order.
func (e *Error) FieldMessage(keys ...string) string {
	if e == nil {
		return ""
	}
	for _, key := range keys {
		if msgs := e.Fields[key]; len(msgs) > 0 && msgs[0] != "" {
			return msgs[0]
		}
	}
	return ""
}

// Transient wraps a transport or unexpected failure.
func Transient(err error, message string) *Error {
	if message == "" {
		message = GenericMessage
	}
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// Validation builds a user-actionable failure.
func Validation(message string, fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message, Fields: fields}
}

// RateLimited builds a rate-limit failure with its rendered wait message.
func RateLimited(wait time.Duration, ok bool) *Error {
	msg := RetryLaterMessage
	if ok {
		msg = WaitMessage(wait)
	}
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: msg, Wait: wait}
}

// Fatal marks a session teardown.
func Fatal(err error) *Error {
	if err == nil {
		err = ErrSessionExpired
	} else if !errors.Is(err, ErrSessionExpired) {
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return &Error{Kind: KindFatal, Status: http.StatusUnauthorized, Message: SessionExpiredMessage, Err: err}
}

// As extracts the tagged failure from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the failure kind, treating untagged errors as transient.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindTransient
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-visible message for err, or fallback.
func MessageOf(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}
