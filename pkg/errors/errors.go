// Package errors defines the error vocabulary shared by services, repositories
// and the HTTP layer. Code below the handlers returns either a sentinel
// (possibly wrapped) or an *AppError, and httputil turns whichever it gets
// into a status code and a JSON error body.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrTooManyRequest = errors.New("too many requests")
)

// kind ties a sentinel to its wire code and status. message is what clients
// see for a bare sentinel; empty means the error text itself is safe to show.
type kind struct {
	sentinel error
	code     string
	status   int
	message  string
}

var (
	kindNotFound      = kind{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"}
	kindAlreadyExists = kind{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict, "resource already exists"}
	kindConflict      = kind{ErrConflict, "CONFLICT", http.StatusConflict, "resource conflict"}
	kindInvalidInput  = kind{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""}
	kindUnauthorized  = kind{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "authentication required"}
	kindForbidden     = kind{ErrForbidden, "FORBIDDEN", http.StatusForbidden, "access denied"}
	kindRateLimited   = kind{ErrTooManyRequest, "RATE_LIMITED", http.StatusTooManyRequests, "too many requests"}
	kindUnavailable   = kind{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "a dependency is unavailable, try again later"}
	kindInternal      = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred"}
)

// kinds is searched in order by Resolve.
var kinds = []kind{
	kindNotFound, kindAlreadyExists, kindConflict, kindInvalidInput,
	kindUnauthorized, kindForbidden, kindRateLimited, kindUnavailable,
}

// AppError is an error with a client-safe message and an HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (k kind) new(message string) *AppError {
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: k.sentinel}
}

// NotFound reports that resource id does not exist.
func NotFound(resource, id string) *AppError {
	return kindNotFound.new(fmt.Sprintf("%s %q not found", resource, id))
}

// AlreadyExists reports a uniqueness clash on resource.field.
func AlreadyExists(resource, field, value string) *AppError {
	return kindAlreadyExists.new(fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

func InvalidInput(message string) *AppError { return kindInvalidInput.new(message) }

func Unauthorized(message string) *AppError { return kindUnauthorized.new(message) }

func Forbidden(message string) *AppError { return kindForbidden.new(message) }

// Conflict reports a state clash that is not a duplicate key, such as
// verifying an already verified account.
func Conflict(message string) *AppError { return kindConflict.new(message) }

func TooManyRequests(message string) *AppError { return kindRateLimited.new(message) }

// ServiceUnavailable reports an unreachable dependency. cause stays reachable
// through errors.Is alongside ErrServiceUnavail.
func ServiceUnavailable(message string, cause error) *AppError {
	e := kindUnavailable.new(message)
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", ErrServiceUnavail, cause)
	}
	return e
}

// Resolve returns the *AppError in err's chain, or builds one from the first
// sentinel err wraps. Anything else becomes an opaque internal error whose
// message reveals nothing about err. Resolve(nil) is nil.
func Resolve(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			msg := k.message
			if msg == "" {
				msg = err.Error()
			}
			return &AppError{Code: k.code, Message: msg, Status: k.status, Err: err}
		}
	}
	return &AppError{Code: kindInternal.code, Message: kindInternal.message, Status: kindInternal.status, Err: err}
}

// HTTPStatus returns the status Resolve assigns to err, 200 for nil.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Resolve(err).Status
}
