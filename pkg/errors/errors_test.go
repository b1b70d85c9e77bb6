package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("loading doc: %w", ErrDocumentNotFound), http.StatusNotFound},
		{fmt.Errorf("upload: %w", ErrDocumentExists), http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
		{New(ErrInvalidInput, http.StatusUnprocessableEntity, "bad title"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError_Unwraps(t *testing.T) {
	err := Newf(ErrDocumentExists, http.StatusConflict, "digest %s", "abc")
	assert.ErrorIs(t, err, ErrDocumentExists)
	assert.Equal(t, "document already indexed: digest abc", err.Error())
}
