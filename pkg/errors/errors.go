// Package errors defines the application's error taxonomy: sentinel errors
// for search and ingestion failures plus an AppError wrapper that carries an
// HTTP status for the API surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDimensionMismatch is returned when a vector of the wrong length is
	// presented to the vector index. Fatal to the single insertion or query,
	// never to a batch.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable is returned when no embedding provider is
	// configured or the provider is failing hard.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrEmbeddingTimeout is returned when an embedding call exceeds its
	// deadline.
	ErrEmbeddingTimeout = errors.New("embedding request timed out")

	// ErrDocumentNotFound is returned by document-scoped operations on an
	// unknown document ID.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidQuery is returned for empty or whitespace-only queries
	// before any index is consulted.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrCancelled is returned when a search is abandoned because its
	// context was cancelled.
	ErrCancelled = errors.New("search cancelled")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// AppError pairs a sentinel error with a human-readable message and the HTTP
// status the API layer should respond with.
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

// New wraps a sentinel error into an AppError.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Newf is New with printf-style message formatting.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the HTTP status the API layer should use.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrCancelled):
		return http.StatusRequestTimeout
	case errors.Is(err, ErrEmbeddingUnavailable), errors.Is(err, ErrEmbeddingTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
