package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel values. Every ApiErr unwraps to one of these so callers can use errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrForbidden    = errors.New("operation not allowed")
	ErrValidation   = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
)

// ApiErr carries the HTTP status and application code a handler should answer with.
type ApiErr struct {
	StatusCode int
	Code       int
	Field      string // field that failed validation, if any
	err        error
}

func (e *ApiErr) Error() string {
	return e.err.Error()
}

// Unwrap lets errors.Is(err, ErrNotFound) see through the wrapper.
func (e *ApiErr) Unwrap() error {
	return e.err
}

// NotFound reports a missing entity, e.g. NotFound("comment") -> "comment not found".
func NotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		Code:       40400,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

// Duplicate reports a uniqueness conflict, e.g. Duplicate("participation").
func Duplicate(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		Code:       40900,
		err:        fmt.Errorf("%s %w", entity, ErrDuplicate),
	}
}

func Forbidden(reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		Code:       40300,
		err:        fmt.Errorf("%w: %s", ErrForbidden, reason),
	}
}

func Validation(field, reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		Code:       40000,
		Field:      field,
		err:        fmt.Errorf("%w: %s", ErrValidation, reason),
	}
}

func Unauthorized(reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		Code:       40100,
		err:        fmt.Errorf("%w: %s", ErrUnauthorized, reason),
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
