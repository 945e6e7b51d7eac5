package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Closed code set shared across the adaptation engine boundary.
const (
	CodeValidation     = "validation"
	CodeNotFound       = "not_found"
	CodeTenantMismatch = "tenant_mismatch"
	CodeNoData         = "no_data"
	CodeStorage        = "storage"
)

type Error struct {
	Status  int
	Code    string
	Err     error
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) WithDetail(key string, val any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = val
	return e
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func TenantMismatch(format string, args ...any) *Error {
	return New(http.StatusForbidden, CodeTenantMismatch, fmt.Errorf(format, args...))
}

func NoData(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNoData, fmt.Errorf(format, args...))
}

func Storage(err error) *Error {
	return New(http.StatusInternalServerError, CodeStorage, fmt.Errorf("storage: %w", err))
}

// Code extracts the failure code from any error, defaulting to storage for
// errors that did not originate at the service boundary.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeStorage
}

func Is(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
