// Package httputil writes the JSON envelope every SONIX endpoint answers
// with and decodes request bodies into validated structs.
package httputil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/logger"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/validator"
)

// Response is the envelope: exactly one of Data and Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error member of the envelope. Fields maps request
// field names to validation messages.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// WriteJSON encodes v with status. Encoding happens before the header is
// written, so a value that cannot be encoded yields a bare 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"code":"INTERNAL_ERROR","message":"an internal error occurred"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// WriteError answers with the status and code apperrors.Resolve assigns to
// err. 5xx causes are logged through the request logger, or fallback when no
// request logger is mounted, and never reach the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	appErr := apperrors.Resolve(err)

	if appErr.Status >= http.StatusInternalServerError {
		l := logger.FromContext(ctx)
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", appErr.Status),
			slog.String("error", err.Error()),
		)
	}

	writeErrorBody(w, appErr.Status, &ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: logger.CorrelationIDFromContext(ctx),
	})
}

// WriteValidationError answers 400 with per-field messages for a
// *validator.ValidationError and with err's text otherwise.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeErrorBody(w, http.StatusBadRequest, &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		})
		return
	}
	writeErrorBody(w, http.StatusBadRequest, &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
}

func writeErrorBody(w http.ResponseWriter, status int, e *ErrorResponse) {
	WriteJSON(w, status, Response{Error: e})
}

// DecodeJSON reads a JSON body into dst and validates it. On failure the 400
// response is already written and false is returned.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := "could not read request body"
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
		}
		WriteValidationError(w, errors.New(msg))
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		WriteValidationError(w, errors.New("request body is empty"))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		WriteValidationError(w, errors.New("invalid request body"))
		return false
	}
	if err := validator.Validate(dst); err != nil {
		WriteValidationError(w, err)
		return false
	}
	return true
}
