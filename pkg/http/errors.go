package http

import (
	"errors"
	"fmt"
	"net/http"

	"LunarPull/internal/domain/apperr"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// FromDomain maps a classified pipeline error to an HTTP error. Messages of
// transport and persistence failures are not echoed to clients.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch apperr.KindOf(err) {
	case apperr.KindSchema, apperr.KindData:
		return BadRequestError(err.Error()).WithError(err)
	case apperr.KindInsufficientData:
		return NotFoundError(err.Error()).WithError(err)
	case apperr.KindTransport:
		return NewAppError("ERR_UPSTREAM", "", "upstream unavailable", http.StatusBadGateway).WithError(err)
	case apperr.KindPersistence:
		return NewAppError("ERR_STORE", "", "result store unavailable", http.StatusServiceUnavailable).WithError(err)
	default:
		return InternalError("Something went wrong").WithError(err)
	}
}
