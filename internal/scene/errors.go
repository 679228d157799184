package scene

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaterialIndex is wrapped by InvalidMaterialIndexError.
	ErrInvalidMaterialIndex = errors.New("invalid material index")
	// ErrInvalidSlot reports a texture slot outside the fixed set.
	ErrInvalidSlot = errors.New("invalid texture slot")
	// ErrNilSurface reports a nil entry in the surface list.
	ErrNilSurface = errors.New("nil surface")
	// ErrInconsistentScene reports a compiled scene whose arrays disagree in length.
	ErrInconsistentScene = errors.New("inconsistent compiled scene")
)

// InvalidMaterialIndexError reports a surface bound to a material that
// does not exist.
type InvalidMaterialIndexError struct {
	Surface       string
	SurfaceIndex  int
	MaterialIndex int
	MaterialCount int
}

func (e *InvalidMaterialIndexError) Error() string {
	return fmt.Sprintf("surface %d (%q): material index %d out of range [0,%d)",
		e.SurfaceIndex, e.Surface, e.MaterialIndex, e.MaterialCount)
}

func (e *InvalidMaterialIndexError) Unwrap() error { return ErrInvalidMaterialIndex }
