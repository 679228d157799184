// Package frameloop drives rendering: a producer goroutine launches the
// accelerator with the latest camera and publishes finished frames, while
// the consumer (the window thread) presents them and applies UI commands.
package frameloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/internal/camera"
	"github.com/Faultbox/rtviewer/internal/logger"
)

// DefaultIdleInterval is how long an on-demand producer sleeps between
// checks of the repaint flag.
const DefaultIdleInterval = 5 * time.Millisecond

// Surface shows frames to the user.
type Surface interface {
	Blit(frame Frame, settings Settings) error
}

// Options configure a Loop.
type Options struct {
	Settings     Settings
	IdleInterval time.Duration

	// Release frees resources bound to the accelerator, such as the
	// material table. It runs once during Stop, before the accelerator
	// is closed.
	Release func() error

	// Screenshot receives the current frame for the Screenshot command.
	Screenshot func(Frame, Settings) error

	Logger *zap.Logger
}

// Loop owns the producer goroutine and every cross-thread signal.
type Loop struct {
	rig  *camera.Rig
	acc  accel.Accelerator
	opts Options
	log  *zap.Logger

	frame    FrameBuffer
	settings atomic.Pointer[Settings]

	repaint atomic.Bool
	finish  atomic.Bool

	iterations atomic.Uint64
	frameTime  atomic.Int64

	started   atomic.Bool
	cancel    context.CancelFunc
	group     *errgroup.Group
	done      chan struct{}
	errMu     sync.Mutex
	err       error
	presented uint64

	stopOnce sync.Once
	stopErr  error
}

// New creates a stopped loop. The loop takes ownership of acc: Stop
// closes it.
func New(rig *camera.Rig, acc accel.Accelerator, opts Options) (*Loop, error) {
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	if err := opts.Settings.validate(); err != nil {
		return nil, err
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("frameloop")
	}

	l := &Loop{
		rig:  rig,
		acc:  acc,
		opts: opts,
		log:  opts.Logger,
		done: make(chan struct{}),
	}
	s := opts.Settings
	l.settings.Store(&s)
	l.repaint.Store(true) // first frame
	return l, nil
}

// Start launches the producer. It returns ErrAlreadyStarted on a second
// call or after Stop. Start, Stop, Present and Apply belong to the
// consumer goroutine.
func (l *Loop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, l.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	l.group = g
	g.Go(func() error {
		defer close(l.done)
		err := l.produce(gctx)
		if err != nil {
			l.errMu.Lock()
			l.err = err
			l.errMu.Unlock()
			l.log.Error("launch failed, producer exiting", zap.Error(err))
		}
		return err
	})
	l.log.Info("frame loop started", zap.Bool("continuous", l.Settings().Continuous))
	return nil
}

// produce runs until the finish flag is set, ctx ends or a launch fails.
// Launch failures are returned; cancellation is not an error.
func (l *Loop) produce(ctx context.Context) error {
	for {
		if l.finish.Load() || ctx.Err() != nil {
			return nil
		}

		if l.Settings().Continuous {
			l.repaint.Store(false)
		} else if !l.repaint.Swap(false) {
			select {
			case <-ctx.Done():
			case <-time.After(l.opts.IdleInterval):
			}
			continue
		}

		if u, ok := l.acc.(accel.NormalUnifier); ok {
			u.SetUnifyNormals(l.Settings().UnifyNormals)
		}
		snap := l.rig.Snapshot()
		l.acc.SetCameraTransform(snap.ViewFrom, snap.CameraToWorld(), snap.FocalLength)

		start := time.Now()
		buf, err := l.acc.Launch(ctx, snap.Width, snap.Height)
		if err != nil {
			if l.finish.Load() || ctx.Err() != nil {
				return nil
			}
			var le *accel.LaunchError
			if !errors.As(err, &le) {
				err = &accel.LaunchError{Width: snap.Width, Height: snap.Height, Err: err}
			}
			return err
		}

		iter := l.iterations.Add(1)
		if err := l.frame.Publish(buf, iter); err != nil {
			return &accel.LaunchError{Width: snap.Width, Height: snap.Height, Err: err}
		}
		l.frameTime.Store(int64(time.Since(start)))
	}
}

// RequestRepaint asks the producer to render a new frame.
func (l *Loop) RequestRepaint() { l.repaint.Store(true) }

// Resize changes the render extent starting with the next launch.
func (l *Loop) Resize(width, height int) error {
	if err := l.rig.Resize(width, height); err != nil {
		return err
	}
	l.RequestRepaint()
	return nil
}

// Camera returns the current camera snapshot.
func (l *Loop) Camera() *camera.State { return l.rig.Snapshot() }

// Settings returns the current settings.
func (l *Loop) Settings() Settings { return *l.settings.Load() }

func (l *Loop) updateSettings(mut func(*Settings)) error {
	for {
		old := l.settings.Load()
		next := *old
		mut(&next)
		if err := next.validate(); err != nil {
			return err
		}
		if l.settings.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// Present copies the latest frame out and blits it. It reports false when
// there is nothing newer than the last presented frame.
func (l *Loop) Present(s Surface) (bool, error) {
	if l.frame.Iteration() == l.presented {
		return false, nil
	}
	f, ok := l.frame.CopyOut()
	if !ok {
		return false, nil
	}
	if err := s.Blit(f, l.Settings()); err != nil {
		return false, err
	}
	l.presented = f.Iteration
	return true, nil
}

// Frame returns a copy of the latest frame.
func (l *Loop) Frame() (Frame, bool) { return l.frame.CopyOut() }

// Stats returns producer counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Iterations: l.iterations.Load(),
		FrameTime:  time.Duration(l.frameTime.Load()),
	}
}

// Done is closed when the producer has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Err returns the launch error that ended the producer, if any.
func (l *Loop) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.err
}

// Stop sets the finish flag, waits for the producer, then releases bound
// resources and closes the accelerator. Only the first call does work;
// every call returns the same result.
func (l *Loop) Stop() error {
	l.stopOnce.Do(func() {
		l.finish.Store(true)
		if l.started.CompareAndSwap(false, true) {
			close(l.done)
		} else {
			l.cancel()
			_ = l.group.Wait() // reported through Err
		}

		var err error
		if l.opts.Release != nil {
			err = multierr.Append(err, l.opts.Release())
		}
		err = multierr.Append(err, l.acc.Close())
		l.stopErr = err
		l.log.Info("frame loop stopped",
			zap.Uint64("iterations", l.iterations.Load()), zap.Error(err))
	})
	return l.stopErr
}
