package frameloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/internal/camera"
	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// fakeAccel fills every frame with the launch number so tests can tell
// iterations apart byte by byte.
type fakeAccel struct {
	mu      sync.Mutex
	origins []math.Vec3
	events  []string

	launches atomic.Int64
	closes   atomic.Int32

	hook func(ctx context.Context, n int64) error
}

func (f *fakeAccel) CreateSampler(accel.SamplerDesc) (int32, error) { return 0, nil }
func (f *fakeAccel) ReleaseSampler(int32) error                     { return nil }

func (f *fakeAccel) CompileGeometry(cs *scene.CompiledScene, _ []accel.DeviceMaterial) (accel.GeometryHandle, error) {
	return accel.GeometryHandle{ID: 1, Triangles: cs.TriangleCount()}, nil
}

func (f *fakeAccel) SetCameraTransform(origin math.Vec3, _ math.Mat3, _ float32) {
	f.mu.Lock()
	f.origins = append(f.origins, origin)
	f.mu.Unlock()
}

func (f *fakeAccel) Launch(ctx context.Context, w, h int) (accel.PixelBuffer, error) {
	n := f.launches.Add(1)
	if f.hook != nil {
		if err := f.hook(ctx, n); err != nil {
			return accel.PixelBuffer{}, err
		}
	}
	pix := make([]byte, w*h*4)
	for i := range pix {
		pix[i] = byte(n)
	}
	return accel.PixelBuffer{Width: w, Height: h, Pix: pix}, nil
}

func (f *fakeAccel) Close() error {
	f.closes.Add(1)
	f.record("close")
	return nil
}

func (f *fakeAccel) record(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeAccel) originAt(i int) math.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.origins[i]
}

func newRig(t *testing.T, w, h int) *camera.Rig {
	t.Helper()
	r, err := camera.NewRig(w, h, math.Deg2Rad(45), math.Vec3{X: 175, Y: -140, Z: 130}, math.Vec3{Z: 35})
	require.NoError(t, err)
	return r
}

func newLoop(t *testing.T, acc accel.Accelerator, opts Options) (*Loop, *camera.Rig) {
	t.Helper()
	rig := newRig(t, 16, 8)
	opts.Logger = zap.NewNop()
	if opts.IdleInterval == 0 {
		opts.IdleInterval = time.Millisecond
	}
	l, err := New(rig, acc, opts)
	require.NoError(t, err)
	return l, rig
}

func onDemand() Settings {
	s := DefaultSettings()
	s.Continuous = false
	return s
}

func checkFrame(t *testing.T, f Frame) {
	t.Helper()
	require.Len(t, f.Pix, f.Width*f.Height*4)
	tag := f.Pix[0]
	for i, b := range f.Pix {
		if b != tag {
			t.Fatalf("torn frame: byte %d is %d, byte 0 is %d", i, b, tag)
		}
	}
	assert.Equal(t, byte(f.Iteration), tag)
}

func TestFrameAtomicityUnderResize(t *testing.T) {
	acc := &fakeAccel{}
	l, _ := newLoop(t, acc, Options{})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	extents := [][2]int{{16, 8}, {33, 17}, {64, 64}, {7, 3}}
	seen := 0
	for i := 0; i < 2000; i++ {
		if i%50 == 0 {
			e := extents[(i/50)%len(extents)]
			require.NoError(t, l.Resize(e[0], e[1]))
		}
		if f, ok := l.Frame(); ok {
			checkFrame(t, f)
			seen++
		}
	}
	assert.Positive(t, seen)
}

func TestFrameBufferConcurrentPublish(t *testing.T) {
	var fb FrameBuffer
	_, ok := fb.CopyOut()
	require.False(t, ok)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := uint64(1); ; n++ {
			select {
			case <-stop:
				return
			default:
			}
			w, h := 4+int(n%5), 3+int(n%3)
			pix := make([]byte, w*h*4)
			for i := range pix {
				pix[i] = byte(n)
			}
			_ = fb.Publish(accel.PixelBuffer{Width: w, Height: h, Pix: pix}, n)
		}
	}()

	for i := 0; i < 5000; i++ {
		if f, ok := fb.CopyOut(); ok {
			checkFrame(t, f)
		}
	}
	close(stop)
	wg.Wait()
}

func TestFrameBufferRejectsBadBuffer(t *testing.T) {
	var fb FrameBuffer
	err := fb.Publish(accel.PixelBuffer{Width: 2, Height: 2, Pix: make([]byte, 15)}, 1)
	assert.ErrorIs(t, err, accel.ErrInvalidExtent)
	_, ok := fb.CopyOut()
	assert.False(t, ok)
}

func TestStopReleasesExactlyOnce(t *testing.T) {
	acc := &fakeAccel{}
	var released atomic.Int32
	l, _ := newLoop(t, acc, Options{Release: func() error {
		released.Add(1)
		acc.record("release")
		return nil
	}})
	require.NoError(t, l.Start(context.Background()))
	require.Eventually(t, func() bool { return l.Stats().Iterations >= 3 }, 2*time.Second, time.Millisecond)

	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())

	select {
	case <-l.Done():
	default:
		t.Fatal("producer still running after Stop")
	}
	assert.NoError(t, l.Err())
	assert.Equal(t, int32(1), acc.closes.Load())
	assert.Equal(t, int32(1), released.Load())
	assert.Equal(t, []string{"release", "close"}, acc.events)

	n := acc.launches.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, acc.launches.Load(), "no launch after Stop")
}

func TestStopInterruptsBlockedLaunch(t *testing.T) {
	acc := &fakeAccel{hook: func(ctx context.Context, n int64) error {
		<-ctx.Done()
		return &accel.LaunchError{Err: ctx.Err()}
	}}
	l, _ := newLoop(t, acc, Options{})
	require.NoError(t, l.Start(context.Background()))
	require.Eventually(t, func() bool { return acc.launches.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, l.Stop())
	assert.NoError(t, l.Err(), "cancellation is not a launch failure")
	assert.Equal(t, int32(1), acc.closes.Load())
}

func TestStopWithoutStart(t *testing.T) {
	acc := &fakeAccel{}
	l, _ := newLoop(t, acc, Options{})
	require.NoError(t, l.Stop())
	<-l.Done()
	assert.Equal(t, int32(1), acc.closes.Load())
	assert.ErrorIs(t, l.Start(context.Background()), ErrAlreadyStarted)
}

func TestParentContextCancel(t *testing.T) {
	acc := &fakeAccel{}
	l, _ := newLoop(t, acc, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Start(ctx))
	assert.ErrorIs(t, l.Start(ctx), ErrAlreadyStarted)

	cancel()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("producer ignored cancellation")
	}
	assert.NoError(t, l.Err())
	require.NoError(t, l.Stop())
	assert.Equal(t, int32(1), acc.closes.Load())
}

func TestLatestCameraStateWins(t *testing.T) {
	unblock := make(chan struct{})
	acc := &fakeAccel{hook: func(ctx context.Context, n int64) error {
		if n == 1 {
			<-unblock
		}
		return nil
	}}
	l, rig := newLoop(t, acc, Options{Settings: onDemand()})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	require.Eventually(t, func() bool { return acc.launches.Load() == 1 }, time.Second, time.Millisecond)
	first := acc.originAt(0)

	// edits landing mid-launch coalesce into the next launch
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Apply(Dolly{Distance: 3}))
	}
	close(unblock)

	require.Eventually(t, func() bool { return l.Stats().Iterations == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(2), acc.launches.Load(), "intermediate states are not rendered")

	assert.NotEqual(t, first, acc.originAt(1))
	assert.True(t, acc.originAt(1).ApproxEqual(rig.ViewFrom(), 1e-4))
}

func TestLaunchErrorEndsLoop(t *testing.T) {
	boom := errors.New("device lost")
	acc := &fakeAccel{hook: func(ctx context.Context, n int64) error {
		if n == 3 {
			return boom
		}
		return nil
	}}
	l, _ := newLoop(t, acc, Options{})
	require.NoError(t, l.Start(context.Background()))

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop kept running after a launch error")
	}

	var le *accel.LaunchError
	require.ErrorAs(t, l.Err(), &le)
	assert.ErrorIs(t, l.Err(), boom)
	assert.Equal(t, 16, le.Width)
	assert.Equal(t, int64(3), acc.launches.Load())
	assert.Equal(t, uint64(2), l.Stats().Iterations)

	require.NoError(t, l.Stop())
	assert.Equal(t, int32(1), acc.closes.Load())
}

func TestOnDemandRendersOnlyWhenAsked(t *testing.T) {
	acc := &fakeAccel{}
	l, _ := newLoop(t, acc, Options{Settings: onDemand()})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	require.Eventually(t, func() bool { return l.Stats().Iterations == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), acc.launches.Load())

	l.RequestRepaint()
	require.Eventually(t, func() bool { return l.Stats().Iterations == 2 }, time.Second, time.Millisecond)

	require.NoError(t, l.Apply(SetContinuous{Continuous: true}))
	require.Eventually(t, func() bool { return l.Stats().Iterations > 5 }, time.Second, time.Millisecond)
}

type unifyingAccel struct {
	fakeAccel
	unify atomic.Int32 // 0 unset, 1 off, 2 on
}

func (u *unifyingAccel) SetUnifyNormals(on bool) {
	if on {
		u.unify.Store(2)
	} else {
		u.unify.Store(1)
	}
}

func TestUnifyNormalsReachesAccelerator(t *testing.T) {
	acc := &unifyingAccel{}
	l, _ := newLoop(t, acc, Options{Settings: onDemand()})
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	require.Eventually(t, func() bool { return l.Stats().Iterations == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), acc.unify.Load())

	require.NoError(t, l.Apply(SetUnify{On: false}))
	assert.False(t, l.Settings().UnifyNormals)
	require.Eventually(t, func() bool { return l.Stats().Iterations == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), acc.unify.Load())

	require.NoError(t, l.Apply(SetUnify{On: true}))
	require.Eventually(t, func() bool { return l.Stats().Iterations == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), acc.unify.Load())
}

type recordingSurface struct {
	frames   []Frame
	settings []Settings
	err      error
}

func (s *recordingSurface) Blit(f Frame, st Settings) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	s.settings = append(s.settings, st)
	return nil
}

func TestPresent(t *testing.T) {
	acc := &fakeAccel{}
	l, _ := newLoop(t, acc, Options{Settings: onDemand()})

	surf := &recordingSurface{}
	ok, err := l.Present(surf)
	require.NoError(t, err)
	assert.False(t, ok, "nothing rendered yet")

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	require.Eventually(t, func() bool { return l.Stats().Iterations == 1 }, time.Second, time.Millisecond)

	ok, err = l.Present(surf)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Present(surf)
	require.NoError(t, err)
	assert.False(t, ok, "same frame is not presented twice")

	require.Len(t, surf.frames, 1)
	checkFrame(t, surf.frames[0])
	assert.Equal(t, 16, surf.frames[0].Width)
	assert.Equal(t, float32(DefaultGamma), surf.settings[0].Gamma)

	l.RequestRepaint()
	require.Eventually(t, func() bool { return l.Stats().Iterations == 2 }, time.Second, time.Millisecond)
	surf.err = errors.New("lost surface")
	_, err = l.Present(surf)
	assert.Error(t, err)
}

func TestApplySettings(t *testing.T) {
	acc := &fakeAccel{}
	var shots []Frame
	l, rig := newLoop(t, acc, Options{
		Settings: onDemand(),
		Screenshot: func(f Frame, _ Settings) error {
			shots = append(shots, f)
			return nil
		},
	})

	assert.ErrorIs(t, l.Apply(Screenshot{}), ErrNoFrame)

	l.repaint.Store(false)
	require.NoError(t, l.Apply(SetGamma{Gamma: 1.8}))
	assert.Equal(t, float32(1.8), l.Settings().Gamma)
	assert.True(t, l.repaint.Load(), "setting change requests a repaint")

	assert.ErrorIs(t, l.Apply(SetGamma{Gamma: 9}), ErrInvalidSetting)
	assert.Equal(t, float32(1.8), l.Settings().Gamma)

	require.NoError(t, l.Apply(ToggleVsync{}))
	assert.False(t, l.Settings().VSync)

	fov := rig.Fov()
	assert.ErrorIs(t, l.Apply(SetFov{FovY: 0}), camera.ErrInvalidCamera)
	assert.Equal(t, fov, rig.Fov())
	require.NoError(t, l.Apply(SetFov{FovY: math.Deg2Rad(60)}))
	assert.InDelta(t, math.Deg2Rad(60), rig.Fov(), 1e-6)
	assert.Same(t, rig.Snapshot(), l.Camera())

	for _, cmd := range []Command{Strafe{Distance: 1}, Yaw{Amount: 2}, Pitch{Amount: -1}, Roll{Amount: 0.05}, Orbit{Angle: 0.1}} {
		require.NoError(t, l.Apply(cmd), "%T", cmd)
	}

	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()
	require.Eventually(t, func() bool { return l.Stats().Iterations >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, l.Apply(Screenshot{}))
	require.Len(t, shots, 1)
	checkFrame(t, shots[0])
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(newRig(t, 4, 4), &fakeAccel{}, Options{Settings: Settings{Gamma: 0.01}})
	assert.ErrorIs(t, err, ErrInvalidSetting)
}
