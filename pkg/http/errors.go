package http

import (
	"net/http"
	"time"
)

// AppError is an error the API reports to clients. Code is machine readable;
// Status and Err stay server side.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Field      string                 `json:"field,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Status     int                    `json:"-"`
	RetryAfter time.Duration          `json:"-"`
	Err        error                  `json:"-"`
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

// WithCode replaces the code, e.g. with a domain error kind.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// WithRetryAfter asks clients to back off; it is sent as Retry-After.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	e.RetryAfter = d
	return e
}

func BadRequestError(msg string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", msg, http.StatusBadRequest)
}

func NotFoundError(msg string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", msg, http.StatusNotFound)
}

func TooManyRequestsError(msg string) *AppError {
	return NewAppError("ERR_TOO_MANY_REQUESTS", "", msg, http.StatusTooManyRequests)
}

func InternalError(msg string) *AppError {
	return NewAppError("ERR_INTERNAL", "", msg, http.StatusInternalServerError)
}

// UnavailableError is for a service that cannot answer yet, e.g. before the
// first snapshot is loaded.
func UnavailableError(msg string) *AppError {
	return NewAppError("ERR_UNAVAILABLE", "", msg, http.StatusServiceUnavailable)
}

// TimeoutError is for work cut off by the request deadline.
func TimeoutError(msg string) *AppError {
	return NewAppError("ERR_TIMEOUT", "", msg, http.StatusServiceUnavailable)
}
