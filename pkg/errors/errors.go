package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error independently from its HTTP mapping.
type Kind string

// Error kinds surfaced by the roster core.
const (
	KindNotFound          Kind = "NOT_FOUND"
	KindUniqueConstraint  Kind = "UNIQUE_CONSTRAINT"
	KindIdenticalObject   Kind = "IDENTICAL_OBJECT"
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindUnknown           Kind = "UNKNOWN_ERROR"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Entity  string `json:"entity,omitempty"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so sentinels can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Kind reports the error kind.
func (e *Error) Kind() Kind {
	if e == nil {
		return ""
	}
	return Kind(e.Code)
}

// Expected reports whether the error is a client-side domain error.
func (e *Error) Expected() bool {
	return e != nil && e.Status < http.StatusInternalServerError
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New(string(KindNotFound), http.StatusNotFound, "resource not found")
	ErrUniqueConstraint   = New(string(KindUniqueConstraint), http.StatusConflict, "unique constraint violated")
	ErrIdenticalObject    = New(string(KindIdenticalObject), http.StatusBadRequest, "no change to apply")
	ErrMalformedResponse  = New(string(KindMalformedResponse), http.StatusBadRequest, "malformed store response")
	ErrValidation         = New(string(KindValidation), http.StatusBadRequest, "validation failed")
	ErrUnauthorized       = New(string(KindUnauthorized), http.StatusUnauthorized, "unauthorized")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUnknown            = New(string(KindUnknown), http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// NotFound reports a missing entity looked up by the given field.
func NotFound(entity, field string, value any) *Error {
	v := fmt.Sprint(value)
	return &Error{
		Code:    ErrNotFound.Code,
		Status:  ErrNotFound.Status,
		Message: fmt.Sprintf("%s with %s %s not found", entity, field, v),
		Entity:  entity,
		Field:   field,
		Value:   v,
	}
}

// UniqueConstraint reports a write that would duplicate a unique key.
func UniqueConstraint(entity, field string, value any) *Error {
	v := fmt.Sprint(value)
	msg := fmt.Sprintf("%s with %s %s already exists", entity, field, v)
	if v == "" {
		msg = fmt.Sprintf("%s %s already exists", entity, field)
	}
	return &Error{
		Code:    ErrUniqueConstraint.Code,
		Status:  ErrUniqueConstraint.Status,
		Message: msg,
		Entity:  entity,
		Field:   field,
		Value:   v,
	}
}

// IdenticalObject reports a mutation that would not change anything.
func IdenticalObject(entity, field string) *Error {
	return &Error{
		Code:    ErrIdenticalObject.Code,
		Status:  ErrIdenticalObject.Status,
		Message: fmt.Sprintf("new %s of %s is identical to the current one", field, entity),
		Entity:  entity,
		Field:   field,
	}
}

// MalformedResponse reports a store result the caller cannot interpret.
func MalformedResponse(entity, action string) *Error {
	return &Error{
		Code:    ErrMalformedResponse.Code,
		Status:  ErrMalformedResponse.Status,
		Message: fmt.Sprintf("malformed response while trying to %s", action),
		Entity:  entity,
	}
}

// Unknown wraps an unclassified failure with the attempted action.
func Unknown(err error, action string) *Error {
	msg := fmt.Sprintf("unknown error while trying to %s", action)
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &Error{Code: ErrUnknown.Code, Status: ErrUnknown.Status, Message: msg, Err: err}
}

// Validation wraps a request validation failure.
func Validation(err error, message string) *Error {
	return Wrap(err, ErrValidation.Code, ErrValidation.Status, message)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind() == kind
	}
	return false
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrUnknown.Code, ErrUnknown.Status, ErrUnknown.Message)
}

// Public returns the error as it may be shown to clients. Unexpected errors
// keep their code and status but lose the internal message.
func Public(err *Error) *Error {
	if err == nil || err.Expected() {
		return err
	}
	return Clone(ErrUnknown, "")
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
