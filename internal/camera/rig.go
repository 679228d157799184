// Package camera maintains the pinhole camera used by the ray tracer.
//
// A Rig owns an immutable State and replaces it wholesale on every
// mutation, so a reader on another goroutine always sees a complete
// view transform.
package camera

import (
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/Faultbox/rtviewer/pkg/math"
)

// WorldUp is the default up vector.
var WorldUp = math.Vec3{X: 0, Y: 0, Z: 1}

// State is one consistent camera configuration. Never modify a State
// obtained from Snapshot.
type State struct {
	Width  int
	Height int
	FovY   float32 // vertical field of view (rad)

	FocalLength float32 // px

	ViewFrom math.Vec3 // eye
	ViewAt   math.Vec3 // target
	Up       math.Vec3 // equals BasisY after every recompute

	BasisX math.Vec3
	BasisY math.Vec3
	BasisZ math.Vec3 // points from the target towards the eye
}

// CameraToWorld returns the matrix whose columns are the basis vectors.
func (s *State) CameraToWorld() math.Mat3 {
	return math.Mat3FromColumns(s.BasisX, s.BasisY, s.BasisZ)
}

// minUpSine is the smallest |sin| of the angle between up and the view
// direction that float32 still resolves into a perpendicular right axis.
const minUpSine = 1e-3

func (s *State) recompute() error {
	z, ok := s.ViewFrom.Sub(s.ViewAt).TryNormalize()
	if !ok {
		return s.degenerate("view_from coincides with view_at")
	}
	up, ok := s.Up.TryNormalize()
	if !ok {
		return s.degenerate("up vector has zero length")
	}
	c := up.Cross(z)
	if c.Length() < minUpSine {
		return s.degenerate("up is collinear with the view direction")
	}
	x := c.Normalize()
	// Gram-Schmidt against z to drop the rounding left in the cross product.
	x = x.Sub(z.Scale(x.Dot(z))).Normalize()
	y := z.Cross(x).Normalize()

	s.BasisX, s.BasisY, s.BasisZ = x, y, z
	s.Up = y
	return nil
}

func (s *State) degenerate(reason string) error {
	return &DegenerateBasisError{Reason: reason, ViewFrom: s.ViewFrom, ViewAt: s.ViewAt, Up: s.Up}
}

func focalLength(height int, fovY float32) float32 {
	return float32(height) / (2 * math32.Tan(fovY*0.5))
}

func checkFov(fovY float32) error {
	if !(fovY > 0 && fovY < math32.Pi) {
		return &ConfigError{Field: "fov_y", Value: fovY}
	}
	return nil
}

func checkExtent(width, height int) error {
	if width <= 0 {
		return &ConfigError{Field: "width", Value: width}
	}
	if height <= 0 {
		return &ConfigError{Field: "height", Value: height}
	}
	return nil
}

// Rig is safe for concurrent use: mutators are serialized, Snapshot is
// lock-free.
type Rig struct {
	mu    sync.Mutex
	state atomic.Pointer[State]
}

// NewRig creates a camera looking from viewFrom at viewAt with +Z up.
// fovY is in radians.
func NewRig(width, height int, fovY float32, viewFrom, viewAt math.Vec3) (*Rig, error) {
	return NewRigWithUp(width, height, fovY, viewFrom, viewAt, WorldUp)
}

// NewRigWithUp is NewRig with an explicit up vector.
func NewRigWithUp(width, height int, fovY float32, viewFrom, viewAt, up math.Vec3) (*Rig, error) {
	if err := checkExtent(width, height); err != nil {
		return nil, err
	}
	if err := checkFov(fovY); err != nil {
		return nil, err
	}

	s := &State{
		Width:       width,
		Height:      height,
		FovY:        fovY,
		FocalLength: focalLength(height, fovY),
		ViewFrom:    viewFrom,
		ViewAt:      viewAt,
		Up:          up,
	}
	if err := s.recompute(); err != nil {
		return nil, err
	}

	r := &Rig{}
	r.state.Store(s)
	return r, nil
}

// Snapshot returns the current state.
func (r *Rig) Snapshot() *State {
	return r.state.Load()
}

// update applies mut to a copy of the current state and publishes it when
// valid. rebasis selects whether the orthonormal basis is recomputed.
func (r *Rig) update(rebasis bool, mut func(s *State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := *r.state.Load()
	if err := mut(&next); err != nil {
		return err
	}
	if rebasis {
		if err := next.recompute(); err != nil {
			return err
		}
	}
	r.state.Store(&next)
	return nil
}

// SetViewFrom moves the eye.
func (r *Rig) SetViewFrom(viewFrom math.Vec3) error {
	return r.update(true, func(s *State) error {
		s.ViewFrom = viewFrom
		return nil
	})
}

// SetUp replaces the advisory up vector.
func (r *Rig) SetUp(up math.Vec3) error {
	return r.update(true, func(s *State) error {
		s.Up = up
		return nil
	})
}

// SetViewAt moves the target.
func (r *Rig) SetViewAt(viewAt math.Vec3) error {
	return r.update(true, func(s *State) error {
		s.ViewAt = viewAt
		return nil
	})
}

// SetViewAtAndFrom moves target and eye in one step.
func (r *Rig) SetViewAtAndFrom(viewAt, viewFrom math.Vec3) error {
	return r.update(true, func(s *State) error {
		s.ViewAt = viewAt
		s.ViewFrom = viewFrom
		return nil
	})
}

// SetFov changes the vertical field of view (rad). Only the focal length
// follows; positions and basis stay as they are.
func (r *Rig) SetFov(fovY float32) error {
	if err := checkFov(fovY); err != nil {
		return err
	}
	return r.update(false, func(s *State) error {
		s.FovY = fovY
		s.FocalLength = focalLength(s.Height, fovY)
		return nil
	})
}

// Resize records a new image extent and refreshes the focal length.
func (r *Rig) Resize(width, height int) error {
	if err := checkExtent(width, height); err != nil {
		return err
	}
	return r.update(false, func(s *State) error {
		s.Width = width
		s.Height = height
		s.FocalLength = focalLength(height, s.FovY)
		return nil
	})
}

// FocalLength returns the focal length in pixels.
func (r *Rig) FocalLength() float32 { return r.Snapshot().FocalLength }

// Fov returns the vertical field of view in radians.
func (r *Rig) Fov() float32 { return r.Snapshot().FovY }

// ViewFrom returns the eye position.
func (r *Rig) ViewFrom() math.Vec3 { return r.Snapshot().ViewFrom }

// ViewAt returns the target position.
func (r *Rig) ViewAt() math.Vec3 { return r.Snapshot().ViewAt }

// Up returns the current up vector (equal to BasisY).
func (r *Rig) Up() math.Vec3 { return r.Snapshot().Up }

// BasisX returns the camera right axis.
func (r *Rig) BasisX() math.Vec3 { return r.Snapshot().BasisX }

// BasisY returns the camera up axis.
func (r *Rig) BasisY() math.Vec3 { return r.Snapshot().BasisY }

// BasisZ returns the camera back axis.
func (r *Rig) BasisZ() math.Vec3 { return r.Snapshot().BasisZ }

// CameraToWorld returns the camera-to-world rotation.
func (r *Rig) CameraToWorld() math.Mat3 { return r.Snapshot().CameraToWorld() }
