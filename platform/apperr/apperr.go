// Package apperr is the typed error used across services. Each error has a
// Kind, which the HTTP layer maps to a status, and a stable Code such as
// QUOTE_NOT_FOUND that clients can switch on.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	// KindConflict covers duplicates. Conflicts on generated identifiers are retryable.
	KindConflict
	// KindInvalidTransition is a lifecycle guard refusing the change.
	KindInvalidTransition
	KindForbidden
	// KindBadRequest is input that could not be interpreted at all.
	KindBadRequest
	KindInternal
)

// Default codes used when a constructor is called without WithCode.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeForbidden         = "INSUFFICIENT_PERMISSIONS"
	CodeBadRequest        = "BAD_REQUEST"
	CodeInternal          = "INTERNAL_ERROR"
)

type kindInfo struct {
	status int
	code   string
}

var kinds = map[Kind]kindInfo{
	KindNotFound:          {http.StatusNotFound, CodeNotFound},
	KindValidation:        {http.StatusBadRequest, CodeValidation},
	KindConflict:          {http.StatusConflict, CodeConflict},
	KindInvalidTransition: {http.StatusConflict, CodeInvalidTransition},
	KindForbidden:         {http.StatusForbidden, CodeForbidden},
	KindBadRequest:        {http.StatusBadRequest, CodeBadRequest},
	KindInternal:          {http.StatusInternalServerError, CodeInternal},
}

func info(kind Kind) kindInfo {
	if ki, ok := kinds[kind]; ok {
		return ki
	}
	return kinds[KindInternal]
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
	// Details is rendered next to the message, e.g. per-field problems.
	Details interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status for the error's kind. Unknown kinds are 500.
func (e *Error) HTTPStatus() int {
	return info(e.Kind).status
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: info(kind).code, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	e := New(kind, message)
	e.Err = err
	return e
}

// WithCode sets the machine-readable code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetails attaches data rendered in the error body.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error          { return New(KindNotFound, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }
func Conflict(message string) *Error          { return New(KindConflict, message) }
func InvalidTransition(message string) *Error { return New(KindInvalidTransition, message) }
func Forbidden(message string) *Error         { return New(KindForbidden, message) }
func BadRequest(message string) *Error        { return New(KindBadRequest, message) }
func Internal(message string) *Error          { return New(KindInternal, message) }

// As extracts an *Error from anywhere in the wrap chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetKind returns KindUnknown when the chain holds no *Error.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// GetCode extracts the machine-readable code, or "" for untyped errors.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// HasCode checks if err is an *Error carrying the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}
