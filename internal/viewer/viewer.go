// Package viewer assembles the rendering pipeline from a config: scene
// loading, compilation, material binding, camera and frame loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/accel/software"
	"github.com/Faultbox/rtviewer/internal/binding"
	"github.com/Faultbox/rtviewer/internal/camera"
	"github.com/Faultbox/rtviewer/internal/capture"
	"github.com/Faultbox/rtviewer/internal/config"
	"github.com/Faultbox/rtviewer/internal/frameloop"
	"github.com/Faultbox/rtviewer/internal/loader"
	"github.com/Faultbox/rtviewer/internal/logger"
	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/charset"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// ErrNoScene is returned when no scene path is configured.
var ErrNoScene = errors.New("no scene path configured")

const pollInterval = 2 * time.Millisecond

// Viewer owns a started-or-stoppable frame loop and what it renders.
type Viewer struct {
	Loop    *frameloop.Loop
	Rig     *camera.Rig
	Capture *capture.Capture

	Surfaces  int
	Materials int
	Triangles int

	log *zap.Logger
}

// New loads and compiles the configured scene and wires it to a software
// accelerator. The returned loop is not started.
func New(cfg *config.Config) (*Viewer, error) {
	log := logger.Named("viewer")
	if cfg.Scene.Path == "" {
		return nil, ErrNoScene
	}

	enc, err := charset.Lookup(cfg.Scene.Charset)
	if err != nil {
		return nil, err
	}
	ld := loader.New(loader.WithCharset(enc))

	start := time.Now()
	surfaces, materials, err := ld.Load(cfg.Scene.Path)
	if err != nil {
		return nil, err
	}
	compiled, err := scene.Compile(surfaces, materials)
	if err != nil {
		releaseAll(materials)
		return nil, fmt.Errorf("compile %s: %w", cfg.Scene.Path, err)
	}
	hits, misses := ld.Cache().Stats()
	log.Info("scene compiled",
		zap.String("path", cfg.Scene.Path),
		zap.Int("surfaces", len(compiled.Surfaces)),
		zap.Int("materials", len(materials)),
		zap.Int("triangles", compiled.TriangleCount()),
		zap.Int("texture_cache_hits", hits),
		zap.Int("texture_cache_misses", misses),
		zap.Duration("took", time.Since(start)))

	acc := software.New(
		software.WithWorkers(cfg.Render.Workers),
		software.WithUnifyNormals(cfg.Render.UnifyNormals),
	)
	table, err := binding.Build(materials, acc)
	// Device samplers hold copies, the host textures can go.
	releaseAll(materials)
	if err != nil {
		_ = acc.Close()
		return nil, err
	}
	if _, err := acc.CompileGeometry(compiled, table.Materials()); err != nil {
		_ = table.Release()
		_ = acc.Close()
		return nil, err
	}

	rig, err := newRig(cfg)
	if err != nil {
		_ = table.Release()
		_ = acc.Close()
		return nil, err
	}

	v := &Viewer{
		Rig:       rig,
		Capture:   capture.New(cfg.Capture.Dir, cfg.Capture.Prefix, cfg.Capture.Scale),
		Surfaces:  len(compiled.Surfaces),
		Materials: table.Len(),
		Triangles: compiled.TriangleCount(),
		log:       log,
	}
	v.Loop, err = frameloop.New(rig, acc, frameloop.Options{
		Settings: frameloop.Settings{
			Gamma:      cfg.Render.Gamma,
			VSync:      cfg.Graphics.VSync,
			Continuous: cfg.Render.Continuous,

			UnifyNormals: cfg.Render.UnifyNormals,
		},
		IdleInterval: cfg.Render.IdleInterval,
		Release:      table.Release,
		Screenshot: v.Capture.Handler(func(path string) {
			log.Info("screenshot saved", zap.String("path", path))
		}),
	})
	if err != nil {
		_ = table.Release()
		_ = acc.Close()
		return nil, err
	}
	return v, nil
}

func newRig(cfg *config.Config) (*camera.Rig, error) {
	c := cfg.Camera
	up := vec(c.Up)
	if up == (math.Vec3{}) {
		up = camera.WorldUp
	}
	return camera.NewRigWithUp(cfg.Graphics.Width, cfg.Graphics.Height,
		math.Deg2Rad(c.FovY), vec(c.ViewFrom), vec(c.ViewAt), up)
}

func vec(a [3]float32) math.Vec3 { return math.Vec3{X: a[0], Y: a[1], Z: a[2]} }

func releaseAll(materials []*scene.Material) {
	for _, m := range materials {
		m.Release()
	}
}

// Title formats window title statistics.
func (v *Viewer) Title() string {
	st := v.Loop.Stats()
	return fmt.Sprintf("rtviewer | %.3f ms/frame (%.1f FPS) | surfaces %d | materials %d",
		float64(st.FrameTime)/float64(time.Millisecond), st.FPS(), v.Surfaces, v.Materials)
}

// RenderHeadless starts the loop, waits until at least frames frames were
// produced, saves the latest one and stops the loop.
func (v *Viewer) RenderHeadless(ctx context.Context, frames int) (path string, err error) {
	if err := v.Loop.Start(ctx); err != nil {
		return "", err
	}
	defer func() {
		if stopErr := v.Loop.Stop(); err == nil {
			err = stopErr
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for v.Loop.Stats().Iterations < uint64(frames) {
		v.Loop.RequestRepaint()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-v.Loop.Done():
			if err := v.Loop.Err(); err != nil {
				return "", err
			}
			return "", errors.New("frame loop exited early")
		case <-ticker.C:
		}
	}

	f, ok := v.Loop.Frame()
	if !ok {
		return "", frameloop.ErrNoFrame
	}
	path, err = v.Capture.Save(f, v.Loop.Settings().Gamma)
	if err != nil {
		return "", err
	}
	v.log.Info("headless frame saved",
		zap.String("path", path),
		zap.Uint64("iteration", f.Iteration),
		zap.Duration("frame_time", v.Loop.Stats().FrameTime))
	return path, nil
}
