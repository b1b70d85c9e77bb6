// Package errors defines the sentinel errors shared across the indexer and
// maps them to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already indexed")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnavailable      = errors.New("dependency unavailable")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

// AppError carries a sentinel, a client-facing message and a status code.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode picks the response status for err.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
