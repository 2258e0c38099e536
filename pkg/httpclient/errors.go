package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// uniqueViolation is the SQLSTATE PostgREST forwards for duplicate keys.
const uniqueViolation = "23505"

const maxErrorBody = 64 << 10

// errorBody accepts both the {"error": {...}} envelope our own services write
// and the flat {"code", "message", "details", "hint"} body PostgREST returns.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// byStatus maps upstream statuses onto local error constructors.
var byStatus = map[int]func(string) *apperrors.AppError{
	http.StatusBadRequest:      apperrors.InvalidInput,
	http.StatusUnauthorized:    apperrors.Unauthorized,
	http.StatusForbidden:       apperrors.Forbidden,
	http.StatusConflict:        apperrors.Conflict,
	http.StatusTooManyRequests: apperrors.TooManyRequests,
}

// ParseResponseError turns a non-2xx response into an *AppError whose message
// names the upstream. The body is consumed and closed.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.ServiceUnavailable(
			fmt.Sprintf("%s: status %d", upstream, resp.StatusCode),
			fmt.Errorf("read error body: %w", err),
		)
	}

	code, message := decodeErrorBody(raw)
	qualified := upstream + ": " + message
	status := resp.StatusCode

	switch {
	case code == uniqueViolation:
		return apperrors.Conflict(qualified)
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status >= http.StatusInternalServerError:
		return apperrors.ServiceUnavailable(qualified, fmt.Errorf("status %d %s", status, code))
	}
	if mk, ok := byStatus[status]; ok {
		return mk(qualified)
	}
	if code == "" {
		code = strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apperrors.AppError{Code: code, Message: qualified, Status: status}
}

func decodeErrorBody(raw []byte) (code, message string) {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != nil:
			return body.Error.Code, body.Error.Message
		case body.Message != "":
			return body.Code, body.Message
		}
	}
	return "", strings.TrimSpace(string(raw))
}
