package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
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

// Is matches on code so clones and wraps of a sentinel compare equal to it.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the records engine.
var (
	ErrValidation            = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound              = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrDuplicateID           = New("DUPLICATE_ID", http.StatusConflict, "id already exists")
	ErrDuplicateRegistration = New("DUPLICATE_REGISTRATION", http.StatusConflict, "registration number already exists")
	ErrDuplicateEnrollment   = New("DUPLICATE_ENROLLMENT", http.StatusConflict, "student already enrolled in course")
	ErrNotEnrolled           = New("NOT_ENROLLED", http.StatusUnprocessableEntity, "student not enrolled in course")
	ErrCreditLimitExceeded   = New("CREDIT_LIMIT_EXCEEDED", http.StatusUnprocessableEntity, "credit limit exceeded")
	ErrCourseFull            = New("COURSE_FULL", http.StatusConflict, "course is full")
	ErrIO                    = New("IO_ERROR", http.StatusInternalServerError, "file operation failed")
	ErrInternal              = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss             = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrUnavailable           = New("UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
)

// CreditLimitError reports the figures behind a rejected enrollment.
type CreditLimitError struct {
	Current   int
	Attempted int
	Max       int
	base      *Error
}

// NewCreditLimitError builds a CreditLimitError carrying the diagnostic values.
func NewCreditLimitError(current, attempted, max int) *CreditLimitError {
	msg := fmt.Sprintf("credit limit exceeded: current=%d, attempted=%d, max=%d", current, attempted, max)
	return &CreditLimitError{
		Current:   current,
		Attempted: attempted,
		Max:       max,
		base:      Clone(ErrCreditLimitExceeded, msg),
	}
}

// Error implements the error interface.
func (e *CreditLimitError) Error() string {
	return e.base.Error()
}

// Unwrap exposes the underlying *Error so FromError and errors.Is see CREDIT_LIMIT_EXCEEDED.
func (e *CreditLimitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.base
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
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
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

// IOf wraps a filesystem failure as ErrIO with a formatted message.
func IOf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrIO.Code, ErrIO.Status, fmt.Sprintf(format, args...))
}
