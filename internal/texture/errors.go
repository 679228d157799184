package texture

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLayout reports a pixel buffer that does not match its
	// declared extent, stride or pixel size.
	ErrInvalidLayout = errors.New("invalid texture layout")
	// ErrUnsupportedFormat reports a file the decoder cannot read.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// DecodeError reports a texture file that could not be read or decoded.
// It is recoverable: the material falls back to its flat color.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode texture %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
