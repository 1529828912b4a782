// internal/pkg/apperr/errors.go
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code. Codes are part of the API
// contract; handlers map them to HTTP statuses without inspecting messages.
type Code string

const (
	CodeInsufficientAvailable Code = "insufficient_available"
	CodeInsufficientStock     Code = "insufficient_stock"
	CodeOverReturn            Code = "over_return"
	CodeNotConsignment        Code = "not_consignment"
	CodeInvalidThreshold      Code = "invalid_threshold"
	CodeDuplicateThreshold    Code = "duplicate_threshold"
	CodeNotOwner              Code = "not_owner"
	CodeNotFound              Code = "not_found"
	CodeInvalidTransition     Code = "invalid_transition"
	CodeConservationViolation Code = "conservation_violation"
	CodeInvalidInput          Code = "invalid_input"
)

// Error carries a code plus a human-readable message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match two coded errors by code alone, so sentinels like
// apperr.New(CodeInsufficientStock, "...") compare against wrapped instances.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates a coded error.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound is a shorthand for the most common code.
func NotFound(what string) *Error {
	return New(CodeNotFound, "%s not found", what)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
