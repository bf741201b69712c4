package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrUploadFailed    = errors.New("upload failed")
	ErrDeleteFailed    = errors.New("delete failed")
	ErrNotInitialized  = errors.New("not initialized")

	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid request")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many requests")
)

// Wrap attaches kind to err so that errors.Is matches both.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// Status maps an error to the HTTP status the API responds with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDataUnavailable), errors.Is(err, ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUploadFailed), errors.Is(err, ErrDeleteFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var kinds = []error{
	ErrInvalid, ErrUnauthorized, ErrNotFound, ErrConflict, ErrPayloadTooLarge,
	ErrUnsupportedType, ErrRateLimited, ErrDataUnavailable, ErrNotInitialized,
	ErrUploadFailed, ErrDeleteFailed,
}

// Kind returns the sentinel err wraps, or nil when it wraps none.
func Kind(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
