package feature

import (
	"errors"
	"fmt"
)

// Conversion failure kinds. Every error returned by the builders wraps one of
// them in a *ConversionError.
var (
	ErrMissingGeometry        = errors.New("feature: missing geometry")
	ErrIncorrectGeometryValue = errors.New("feature: incorrect geometry value")
	ErrMalformedGeometry      = errors.New("feature: malformed geometry")
)

// ConversionError reports why a record could not become a feature.
type ConversionError struct {
	// Err is one of the package sentinels.
	Err error
	// ID is the record id, nil when the record had none.
	ID any
	// Detail describes the failure.
	Detail string
	// Cause is the underlying validation error, if any.
	Cause error
}

func (e *ConversionError) Error() string {
	msg := e.Err.Error()
	if e.ID != nil {
		msg += fmt.Sprintf(" (id %v)", e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConversionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// Reason returns a short label for err, suitable for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingGeometry):
		return "missing_geometry"
	case errors.Is(err, ErrIncorrectGeometryValue):
		return "incorrect_geometry_value"
	case errors.Is(err, ErrMalformedGeometry):
		return "malformed_geometry"
	default:
		return "other"
	}
}
