package camera

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rtviewer/pkg/math"
)

const tol = 1e-4

func newExampleRig(t *testing.T) *Rig {
	t.Helper()
	r, err := NewRig(640, 480, math.Deg2Rad(45), math.Vec3{X: 175, Y: -140, Z: 130}, math.Vec3{X: 0, Y: 0, Z: 35})
	require.NoError(t, err)
	return r
}

func assertOrthonormal(t *testing.T, s *State) {
	t.Helper()
	assert.InDelta(t, 1, s.BasisX.Length(), tol, "|x|")
	assert.InDelta(t, 1, s.BasisY.Length(), tol, "|y|")
	assert.InDelta(t, 1, s.BasisZ.Length(), tol, "|z|")
	assert.InDelta(t, 0, s.BasisX.Dot(s.BasisY), tol, "x.y")
	assert.InDelta(t, 0, s.BasisY.Dot(s.BasisZ), tol, "y.z")
	assert.InDelta(t, 0, s.BasisX.Dot(s.BasisZ), tol, "x.z")
	assert.Equal(t, s.BasisY, s.Up, "up must follow basis y")
}

func TestNewRigExample(t *testing.T) {
	r := newExampleRig(t)

	want := 480 / (2 * math32.Tan(math.Deg2Rad(22.5)))
	assert.InDelta(t, want, r.FocalLength(), 1e-2)
	assert.InDelta(t, 579.4, r.FocalLength(), 0.1)

	wantZ := math.Vec3{X: 175, Y: -140, Z: 95}.Normalize()
	assert.True(t, r.BasisZ().ApproxEqual(wantZ, tol), "basis z = %v, want %v", r.BasisZ(), wantZ)
	assertOrthonormal(t, r.Snapshot())

	// The world up is only advisory; it is replaced by basis y.
	assert.NotEqual(t, WorldUp, r.Up())
}

func TestNewRigRejectsBadConfig(t *testing.T) {
	from := math.Vec3{X: 1}
	at := math.Vec3{}
	tests := []struct {
		name          string
		width, height int
		fov           float32
	}{
		{"zero width", 0, 480, 0.8},
		{"negative height", 640, -1, 0.8},
		{"zero fov", 640, 480, 0},
		{"fov of pi", 640, 480, math32.Pi},
		{"NaN fov", 640, 480, math32.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRig(tt.width, tt.height, tt.fov, from, at)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
			assert.ErrorIs(t, err, ErrInvalidCamera)
		})
	}
}

func TestNewRigRejectsDegenerate(t *testing.T) {
	// Looking straight down the default +Z up.
	_, err := NewRig(640, 480, 0.8, math.Vec3{Z: 10}, math.Vec3{})
	assert.ErrorIs(t, err, ErrDegenerateBasis)

	_, err = NewRig(640, 480, 0.8, math.Vec3{X: 1}, math.Vec3{X: 1})
	var dErr *DegenerateBasisError
	require.ErrorAs(t, err, &dErr)
	assert.Contains(t, dErr.Reason, "coincides")
}

func TestRecomputeIdempotent(t *testing.T) {
	r := newExampleRig(t)
	first := *r.Snapshot()

	s := first
	require.NoError(t, s.recompute())
	require.NoError(t, s.recompute())

	assert.True(t, s.BasisX.ApproxEqual(first.BasisX, 1e-6))
	assert.True(t, s.BasisY.ApproxEqual(first.BasisY, 1e-6))
	assert.True(t, s.BasisZ.ApproxEqual(first.BasisZ, 1e-6))
}

func TestOrthonormalityAcrossInputs(t *testing.T) {
	ups := []math.Vec3{{Z: 1}, {Y: 1}, {X: 1, Y: 1, Z: 1}, {X: -0.3, Y: 2, Z: 0.1}}
	froms := []math.Vec3{{X: 10}, {X: 3, Y: -7, Z: 2}, {X: -1, Y: -1, Z: 0.5}}
	at := math.Vec3{X: 0.5, Y: 0.25}

	r := newExampleRig(t)
	for _, up := range ups {
		for _, from := range froms {
			if err := r.SetViewAtAndFrom(at, from); err != nil {
				continue
			}
			err := r.SetUp(up)
			if errors.Is(err, ErrDegenerateBasis) {
				continue
			}
			require.NoError(t, err)
			assertOrthonormal(t, r.Snapshot())
		}
	}
}

func TestNearCollinearUpIsRejectedOrOrthonormal(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	at := math.Vec3{}
	coord := func() float32 { return rnd.Float32()*200 - 100 }
	jitter := func(scale float32) float32 { return (rnd.Float32()*2 - 1) * scale }

	var accepted, rejected int
	for i := 0; i < 20000; i++ {
		from := math.Vec3{X: coord(), Y: coord(), Z: coord()}
		dir, ok := at.Sub(from).TryNormalize()
		if !ok {
			continue
		}
		// Perturbations from 1e-7 up to 1e-1 straddle the rejection limit.
		scale := math32.Pow(10, -7+6*rnd.Float32())
		up := dir.Add(math.Vec3{X: jitter(scale), Y: jitter(scale), Z: jitter(scale)})

		r, err := NewRigWithUp(64, 48, math.Deg2Rad(45), from, at, up)
		if err != nil {
			require.ErrorIs(t, err, ErrDegenerateBasis)
			rejected++
			continue
		}
		accepted++
		s := r.Snapshot()
		for _, d := range []float32{s.BasisX.Dot(s.BasisY), s.BasisY.Dot(s.BasisZ), s.BasisZ.Dot(s.BasisX)} {
			if math32.Abs(d) > tol {
				t.Fatalf("basis not orthogonal for from=%v up=%v: dot=%v", from, up, d)
			}
		}
		for _, v := range []math.Vec3{s.BasisX, s.BasisY, s.BasisZ} {
			if math32.Abs(v.Length()-1) > tol {
				t.Fatalf("basis vector %v not unit for from=%v up=%v", v, from, up)
			}
		}
	}
	assert.Positive(t, accepted)
	assert.Positive(t, rejected)
}

func TestSetFovOnlyChangesFocalLength(t *testing.T) {
	r := newExampleRig(t)
	before := *r.Snapshot()

	require.NoError(t, r.SetFov(math.Deg2Rad(90)))
	after := *r.Snapshot()

	assert.InDelta(t, 240, after.FocalLength, 1e-2) // 480 / (2 * tan(45°))
	assert.NotEqual(t, before.FocalLength, after.FocalLength)
	assert.Equal(t, before.BasisX, after.BasisX)
	assert.Equal(t, before.BasisY, after.BasisY)
	assert.Equal(t, before.BasisZ, after.BasisZ)
	assert.Equal(t, before.ViewFrom, after.ViewFrom)
	assert.Equal(t, before.ViewAt, after.ViewAt)
	assert.Equal(t, before.Up, after.Up)
}

func TestSetFovRejectsInvalid(t *testing.T) {
	r := newExampleRig(t)
	before := r.Snapshot()
	assert.ErrorIs(t, r.SetFov(-1), ErrInvalidCamera)
	assert.Same(t, before, r.Snapshot())
}

func TestDegenerateMutationLeavesStateUntouched(t *testing.T) {
	r := newExampleRig(t)
	before := r.Snapshot()

	// up parallel to the view direction
	dir := before.ViewFrom.Sub(before.ViewAt)
	err := r.SetUp(dir)
	require.ErrorIs(t, err, ErrDegenerateBasis)
	assert.Same(t, before, r.Snapshot())

	err = r.SetViewAt(before.ViewFrom)
	require.ErrorIs(t, err, ErrDegenerateBasis)
	assert.Same(t, before, r.Snapshot())
	assert.True(t, r.Snapshot().BasisX.IsFinite())
}

func TestSetViewAtAndFrom(t *testing.T) {
	r := newExampleRig(t)
	from := math.Vec3{X: 0, Y: -50, Z: 10}
	at := math.Vec3{X: 0, Y: 0, Z: 10}
	require.NoError(t, r.SetViewAtAndFrom(at, from))

	assert.Equal(t, from, r.ViewFrom())
	assert.Equal(t, at, r.ViewAt())
	assert.True(t, r.BasisZ().ApproxEqual(math.Vec3{Y: -1}, tol))
	assertOrthonormal(t, r.Snapshot())
}

func TestCameraToWorldColumns(t *testing.T) {
	r := newExampleRig(t)
	m := r.CameraToWorld()
	assert.Equal(t, r.BasisX(), m.Column(0))
	assert.Equal(t, r.BasisY(), m.Column(1))
	assert.Equal(t, r.BasisZ(), m.Column(2))
}

func TestResize(t *testing.T) {
	r := newExampleRig(t)
	before := *r.Snapshot()
	require.NoError(t, r.Resize(1280, 960))
	after := r.Snapshot()
	assert.InDelta(t, 2*before.FocalLength, after.FocalLength, 1e-2)
	assert.Equal(t, before.BasisZ, after.BasisZ)
	assert.ErrorIs(t, r.Resize(0, 10), ErrInvalidCamera)
}

func TestSnapshotsAreNeverTorn(t *testing.T) {
	r := newExampleRig(t)
	a := math.Vec3{X: 0, Y: 0, Z: 0}
	b := math.Vec3{X: 100, Y: 100, Z: 100}
	offset := math.Vec3{X: 10, Y: -10, Z: 5}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			at := a
			if i%2 == 1 {
				at = b
			}
			_ = r.SetViewAtAndFrom(at, at.Add(offset))
		}
	}()

	for i := 0; i < 10000; i++ {
		s := r.Snapshot()
		// eye and target always move as a pair
		if got := s.ViewFrom.Sub(s.ViewAt); !got.ApproxEqual(offset, 1e-3) {
			close(stop)
			wg.Wait()
			t.Fatalf("torn snapshot: from=%v at=%v", s.ViewFrom, s.ViewAt)
		}
	}
	close(stop)
	wg.Wait()
}

func TestNewRigWithUp(t *testing.T) {
	_, err := NewRig(64, 48, 1, math.Vec3{Z: 10}, math.Vec3{})
	assert.ErrorIs(t, err, ErrDegenerateBasis, "world up is parallel to the view direction")

	r, err := NewRigWithUp(64, 48, 1, math.Vec3{Z: 10}, math.Vec3{}, math.Vec3{Y: 1})
	require.NoError(t, err)
	assert.True(t, r.BasisY().ApproxEqual(math.Vec3{Y: 1}, tol))
	assert.True(t, r.BasisZ().ApproxEqual(math.Vec3{Z: 1}, tol))
	assert.True(t, r.BasisX().ApproxEqual(math.Vec3{X: 1}, tol))
	assertOrthonormal(t, r.Snapshot())
}
