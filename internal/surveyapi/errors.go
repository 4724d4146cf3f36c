package surveyapi

import (
	"errors"
	"fmt"
)

// Failure kinds. Every *APIError matches exactly one of them with errors.Is.
var (
	ErrUploadFailure       = errors.New("upload failure")
	ErrStatusQueryFailure  = errors.New("status query failure")
	ErrResultsFetchFailure = errors.New("results fetch failure")
	ErrHealthCheckFailure  = errors.New("health check failure")
)

var kindPrefix = map[error]string{
	ErrUploadFailure:       "Upload failed",
	ErrStatusQueryFailure:  "Failed to get status",
	ErrResultsFetchFailure: "Failed to get results",
	ErrHealthCheckFailure:  "Health check failed",
}

// APIError describes a failed backend call. For non-2xx responses StatusCode
// and StatusText are set; for transport, decode or contract errors Err is.
type APIError struct {
	Kind       error
	StatusCode int
	StatusText string
	Detail     string // "detail" field of a JSON error body, if any
	Err        error
}

func (e *APIError) Error() string {
	prefix, ok := kindPrefix[e.Kind]
	if !ok {
		prefix = "Request failed"
	}
	switch {
	case e.StatusText != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s (%s)", prefix, e.StatusText, e.Detail)
	case e.StatusText != "":
		return fmt.Sprintf("%s: %s", prefix, e.StatusText)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return prefix
	}
}

// Is matches the failure kind.
func (e *APIError) Is(target error) bool {
	return target != nil && target == e.Kind
}

// Unwrap exposes the underlying transport or decode error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status code carried by err, or 0.
func HTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
