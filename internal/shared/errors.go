package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRecordNotFound     = fmt.Errorf("record not found")
	ErrInvalidResponse    = fmt.Errorf("unexpected response from API")

	// Pagination & snapshot errors
	ErrLoaderBusy       = fmt.Errorf("a page request is already in flight")
	ErrNoMorePages      = fmt.Errorf("no more pages to load")
	ErrSnapshotNotFound = fmt.Errorf("snapshot not found")
	ErrSnapshotCorrupt  = fmt.Errorf("snapshot is corrupt")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError collects per-field failures for a single payload.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError wraps err with the failing fields.
func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}

	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Error)
	}
	return fmt.Sprintf("%v (%s)", e.Err, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a [ValidationError].
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
