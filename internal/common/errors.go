// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError is an error that knows how it is rendered to the caller.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	// Cause is kept for logs only and never rendered.
	Cause error `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

// Is matches on Code so that copies made by WithMessage/WithCause still match the sentinel.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithCause returns a copy of e wrapping the underlying error.
func (e *APIError) WithCause(err error) *APIError {
	cp := *e
	cp.Cause = err
	return &cp
}

var (
	ErrBadRequest     = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrValidation     = NewAPIError(http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed.")
	ErrUnknownAction  = NewAPIError(http.StatusBadRequest, "UNKNOWN_ACTION", "Unknown action.")
	ErrUpstream       = NewAPIError(http.StatusBadRequest, "UPSTREAM_ERROR", "The identity provider rejected the request.")
	ErrUpdate         = NewAPIError(http.StatusBadRequest, "UPDATE_ERROR", "The profile could not be updated.")
	ErrUnauthorized   = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required and has failed or has not yet been provided.")
	ErrForbidden      = NewAPIError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action.")
	ErrNotFound       = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrConflict       = NewAPIError(http.StatusConflict, "CONFLICT", "A resource with the same identity already exists.")
	ErrMethodNotAllow = NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for the requested URL.")
	ErrConfiguration  = NewAPIError(http.StatusInternalServerError, "CONFIGURATION_ERROR", "The server is missing required configuration.")
	ErrConsistency    = NewAPIError(http.StatusInternalServerError, "CONSISTENCY_ERROR", "The account and its profile are out of sync.")
	ErrInternalServer = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred on the server.")
	ErrUnavailable    = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The server is currently unable to handle the request.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewValidationAPIError builds a ValidationError whose message names every failed field.
func NewValidationAPIError(errs validator.ValidationErrors) *APIError {
	fields := FormatValidationErrors(errs)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fields[e.Field()])
	}
	return ErrValidation.WithMessage(strings.Join(msgs, " "))
}

// FormatValidationErrors converts validator.ValidationErrors into a field -> message map.
// Field names are the json names when the validator was set up with a json tag name func.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string)
	for _, e := range errs {
		field := e.Field()
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", field)
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", field)
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s characters long.", field, e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s characters.", field, e.Param())
		case "oneof":
			message = fmt.Sprintf("The %s field must be one of the following values: %s.", field, e.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}
