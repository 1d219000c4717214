package vesselness

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDimensionality indicates an input volume that is not 3D.
	ErrUnsupportedDimensionality = errors.New("vesselness: unsupported dimensionality")
	// ErrNegativeScale indicates a scale set containing a negative sigma.
	ErrNegativeScale = errors.New("vesselness: negative scale")
	// ErrEmptyScaleSet indicates a scale range and step that yield no scales.
	ErrEmptyScaleSet = errors.New("vesselness: empty scale set")
	// ErrMalformedVolume indicates a nil volume or one whose data does not match its shape.
	ErrMalformedVolume = errors.New("vesselness: malformed volume")
)

// ValidationError reports invalid input detected before any numeric work.
// It wraps one of the sentinel errors above.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}
