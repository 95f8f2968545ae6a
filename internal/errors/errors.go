package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried in the error_code extension of problem responses.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeDataNotLoaded    = "DATA_NOT_LOADED"
	CodeNoHistory        = "NO_HISTORY"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// APIError is an error meant for the client: a status, a stable code and a
// message safe to show.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError with a details payload.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

var (
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")

	// ErrDataNotLoaded answers dashboard and report calls made before the
	// CSV files were loaded.
	ErrDataNotLoaded = New(http.StatusServiceUnavailable, CodeDataNotLoaded, "Datasets are not loaded yet")

	// ErrNoHistory answers projections when no transaction carries a date.
	ErrNoHistory = New(http.StatusUnprocessableEntity, CodeNoHistory, "No dated transactions to project from")

	ErrInvalidJSON = New(http.StatusBadRequest, CodeInvalidJSON, "Request body contains invalid JSON")
)

// InvalidRequestWithError reports a body that could not be read or decoded.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// InvalidParameter reports a malformed query or path parameter such as a
// date not in DD/MM/YYYY.
func InvalidParameter(name string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidParameter,
		fmt.Sprintf("Invalid value for parameter %q", name), err.Error())
}

// ValidationError is one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload of a multi-field rejection.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ErrValidation rejects a single field.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationError{Field: field, Message: message})
}

// NewValidationErrors rejects several fields at once.
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationErrors{Errors: errors})
}

// InvalidProjection rejects projection parameters outside their ranges.
func InvalidProjection(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", err.Error())
}

// PayloadTooLarge rejects a body over limit bytes. size is omitted when the
// body length was not declared up front.
func PayloadTooLarge(limit, size int64) *APIError {
	details := map[string]any{"max_size": limit}
	if size > 0 {
		details["size"] = size
	}
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		"Request body exceeds maximum allowed size", details)
}

// UnknownReportRole answers a role that has no report.
func UnknownReportRole(err error) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, "Report role not found", err.Error())
}
