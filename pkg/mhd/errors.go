package mhd

import "errors"

var (
	// ErrMalformedHeader indicates a header line or required field could not be parsed.
	ErrMalformedHeader = errors.New("mhd: malformed header")
	// ErrUnsupportedElementType indicates an ElementType this package cannot decode.
	ErrUnsupportedElementType = errors.New("mhd: unsupported element type")
	// ErrVectorImage indicates a multi-channel image was read as a scalar volume.
	ErrVectorImage = errors.New("mhd: multi-channel images are not supported for reading")
)
