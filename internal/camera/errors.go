package camera

import (
	"errors"
	"fmt"

	"github.com/Faultbox/rtviewer/pkg/math"
)

var (
	// ErrInvalidCamera is wrapped by ConfigError.
	ErrInvalidCamera = errors.New("invalid camera configuration")
	// ErrDegenerateBasis is wrapped by DegenerateBasisError.
	ErrDegenerateBasis = errors.New("degenerate camera basis")
)

// ConfigError reports invalid image dimensions or field of view.
type ConfigError struct {
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid camera %s: %v", e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidCamera }

// DegenerateBasisError reports an input for which no orthonormal basis
// exists: the eye sits on the target, or up is parallel to the view
// direction. The rig state is left untouched when it is returned.
type DegenerateBasisError struct {
	Reason   string
	ViewFrom math.Vec3
	ViewAt   math.Vec3
	Up       math.Vec3
}

func (e *DegenerateBasisError) Error() string {
	return fmt.Sprintf("degenerate camera basis: %s (from=%v at=%v up=%v)", e.Reason, e.ViewFrom, e.ViewAt, e.Up)
}

func (e *DegenerateBasisError) Unwrap() error { return ErrDegenerateBasis }
