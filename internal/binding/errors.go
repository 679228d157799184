package binding

import (
	"errors"
	"fmt"

	"github.com/Faultbox/rtviewer/internal/scene"
)

// ErrTextureLayout reports texture bytes that do not cover the declared
// extent.
var ErrTextureLayout = errors.New("texture layout mismatch")

// ErrNilMaterial reports a nil entry in the material list.
var ErrNilMaterial = errors.New("nil material")

// BindError reports a material whose resources could not be uploaded.
type BindError struct {
	Material string
	Index    int
	Slot     scene.Slot
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind material %d (%s) %s: %v", e.Index, e.Material, e.Slot, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
