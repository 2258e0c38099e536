package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		sentinel   error
	}{
		{"envelope not found", http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"no shoe"}}`, http.StatusNotFound, apperrors.ErrNotFound},
		{"envelope bad request", http.StatusBadRequest, `{"error":{"code":"INVALID_INPUT","message":"bad"}}`, http.StatusBadRequest, apperrors.ErrInvalidInput},
		{"postgrest bad filter", http.StatusBadRequest, `{"code":"PGRST100","message":"failed to parse filter"}`, http.StatusBadRequest, apperrors.ErrInvalidInput},
		{"postgrest unique violation", http.StatusConflict, `{"code":"23505","message":"duplicate key value","details":"Key (user_id, shoe_id) already exists."}`, http.StatusConflict, apperrors.ErrConflict},
		{"unique violation with odd status", http.StatusBadRequest, `{"code":"23505","message":"duplicate key value"}`, http.StatusConflict, apperrors.ErrConflict},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid API key"}`, http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"code":"42501","message":"permission denied for table reviews"}`, http.StatusForbidden, apperrors.ErrForbidden},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, http.StatusTooManyRequests, apperrors.ErrTooManyRequest},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, http.StatusServiceUnavailable, apperrors.ErrServiceUnavail},
		{"html gateway page", http.StatusBadGateway, `<html>bad gateway</html>`, http.StatusServiceUnavailable, apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, tt.body), "record-store")
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
			assert.Equal(t, tt.wantStatus, appErr.Status)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestParseResponseError_QualifiesMessage(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, `{"message":"column shoes.foo does not exist"}`), "record-store")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "record-store: column shoes.foo does not exist", appErr.Message)
}

func TestParseResponseError_UnknownStatus(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusRequestEntityTooLarge, ``), "record-store")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.Status)
	assert.Equal(t, "REQUEST_ENTITY_TOO_LARGE", appErr.Code)

	err = ParseResponseError(makeResponse(http.StatusRequestedRangeNotSatisfiable, `{"code":"PGRST103","message":"range"}`), "record-store")
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PGRST103", appErr.Code)
}

func TestParseResponseError_ClosesBody(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader(`{"message":"x"}`)}
	_ = ParseResponseError(&http.Response{StatusCode: http.StatusBadRequest, Body: body}, "record-store")
	assert.True(t, body.closed)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}
