// Package errs classifies failures so callers can tell a safe business rejection
// apart from a storage fault.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindInfrastructure is the zero value so an unclassified error is never
	// read as a safe rejection.
	KindInfrastructure Kind = iota
	KindRejected
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "infrastructure"
	}
}

// Common rejection codes.
const (
	CodeNumberClosed        = "NUMBER_CLOSED"
	CodeExceedsLimit        = "EXCEEDS_LIMIT"
	CodeInvalidRoundState   = "INVALID_ROUND_STATE"
	CodeTicketNotCancelable = "TICKET_NOT_CANCELLABLE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeAccountSuspended    = "ACCOUNT_SUSPENDED"
	CodeRoundHasTickets     = "ROUND_HAS_TICKETS"
	CodeRequestNotPending   = "REQUEST_NOT_PENDING"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// With attaches the numeric inputs that drove the outcome.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

func Reject(code, msg string) *Error {
	return &Error{Kind: KindRejected, Code: code, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: what + " not found"}
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: msg}
}

func Infra(err error, msg string) *Error {
	return &Error{Kind: KindInfrastructure, Code: "STORAGE_FAILURE", Message: msg, Err: err}
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err. Errors that were never classified count as
// infrastructure failures.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInfrastructure
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
