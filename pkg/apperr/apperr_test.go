package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApperr_Wrap_ShouldMatchKindAndKeepMessage(t *testing.T) {
	err := Wrap(ErrUploadFailed, errors.New("connection reset"))
	require.True(t, errors.Is(err, ErrUploadFailed))
	require.Equal(t, "upload failed: connection reset", err.Error())
}

func TestApperr_Wrap_ShouldReturnNilForNilError(t *testing.T) {
	require.Nil(t, Wrap(ErrUploadFailed, nil))
}

func TestApperr_Status_ShouldMapTaxonomy(t *testing.T) {
	cases := map[error]int{
		ErrInvalid:         http.StatusBadRequest,
		ErrUnauthorized:    http.StatusUnauthorized,
		ErrNotFound:        http.StatusNotFound,
		ErrConflict:        http.StatusConflict,
		ErrPayloadTooLarge: http.StatusRequestEntityTooLarge,
		ErrUnsupportedType: http.StatusUnsupportedMediaType,
		ErrRateLimited:     http.StatusTooManyRequests,
		ErrDataUnavailable: http.StatusServiceUnavailable,
		ErrNotInitialized:  http.StatusServiceUnavailable,
		ErrUploadFailed:    http.StatusBadGateway,
		ErrDeleteFailed:    http.StatusBadGateway,
	}
	for kind, status := range cases {
		require.Equal(t, status, Status(fmt.Errorf("context: %w", kind)), kind.Error())
	}
	require.Equal(t, http.StatusOK, Status(nil))
}

func TestApperr_Kind_ShouldReturnWrappedSentinel(t *testing.T) {
	require.Equal(t, ErrDeleteFailed, Kind(Wrap(ErrDeleteFailed, errors.New("403 Forbidden from b2"))))
	require.Equal(t, ErrNotFound, Kind(fmt.Errorf("artists a1: %w", ErrNotFound)))
	require.Nil(t, Kind(errors.New("boom")))
}
