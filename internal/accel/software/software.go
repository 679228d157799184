// Package software is a CPU implementation of accel.Accelerator. It casts
// one primary ray per pixel against every triangle and shades the closest
// hit with the material's program.
package software

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/internal/logger"
	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/math"
)

var (
	_ accel.Accelerator   = (*Accelerator)(nil)
	_ accel.NormalUnifier = (*Accelerator)(nil)
)

type cameraTransform struct {
	origin math.Vec3
	basis  math.Mat3
	focal  float32
}

// Accelerator renders on the CPU using a pool of row workers.
type Accelerator struct {
	workers    int
	background math.Vec3
	unify      bool
	log        *zap.Logger

	mu       sync.Mutex
	samplers map[int32]*sampler
	nextID   int32
	geom     *geometry
	cam      cameraTransform
	closed   bool

	geomSeq  atomic.Uint64
	launches atomic.Uint64
}

// Option configures an Accelerator.
type Option func(*Accelerator)

// WithWorkers sets the number of concurrent row workers. n <= 0 uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Accelerator) { a.workers = n }
}

// WithBackground sets the color of rays that hit nothing.
func WithBackground(c math.Vec3) Option {
	return func(a *Accelerator) { a.background = c }
}

// WithUnifyNormals turns shading normals towards the viewer so back
// faces are lit like front faces. It is on by default.
func WithUnifyNormals(on bool) Option {
	return func(a *Accelerator) { a.unify = on }
}

// WithLogger overrides the component logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Accelerator) { a.log = log }
}

// New creates an accelerator with no geometry and an identity camera.
func New(opts ...Option) *Accelerator {
	a := &Accelerator{
		background: math.Vec3{X: 0.05, Y: 0.05, Z: 0.08},
		unify:      true,
		samplers:   make(map[int32]*sampler),
		cam:        cameraTransform{basis: math.Identity3(), focal: 1},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.GOMAXPROCS(0)
	}
	if a.log == nil {
		a.log = logger.Named("accel")
	}
	return a
}

// CreateSampler stores a copy of the texels.
func (a *Accelerator) CreateSampler(desc accel.SamplerDesc) (int32, error) {
	if err := desc.Validate(); err != nil {
		return accel.NoSampler, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return accel.NoSampler, accel.ErrClosed
	}

	id := a.nextID
	a.nextID++
	a.samplers[id] = newSampler(desc)
	return id, nil
}

// ReleaseSampler frees a sampler. Releasing an unknown id is an error.
func (a *Accelerator) ReleaseSampler(id int32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.samplers[id]; !ok {
		return fmt.Errorf("%w: id %d", accel.ErrInvalidSampler, id)
	}
	delete(a.samplers, id)
	return nil
}

// SamplerCount returns the number of live samplers.
func (a *Accelerator) SamplerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.samplers)
}

// CompileGeometry validates the scene and material table and makes them
// the geometry for subsequent launches.
func (a *Accelerator) CompileGeometry(cs *scene.CompiledScene, materials []accel.DeviceMaterial) (accel.GeometryHandle, error) {
	if cs == nil {
		return accel.GeometryHandle{}, &accel.CompileError{Err: fmt.Errorf("nil scene")}
	}
	if err := cs.Validate(); err != nil {
		return accel.GeometryHandle{}, &accel.CompileError{Err: err}
	}
	if len(materials) < cs.MaterialCount {
		return accel.GeometryHandle{}, &accel.CompileError{
			Err: fmt.Errorf("%d materials bound, scene uses %d", len(materials), cs.MaterialCount),
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return accel.GeometryHandle{}, &accel.CompileError{Err: accel.ErrClosed}
	}

	mats := make([]material, len(materials))
	for i, dm := range materials {
		m, err := a.resolveMaterial(dm)
		if err != nil {
			return accel.GeometryHandle{}, &accel.CompileError{Err: fmt.Errorf("material %d (%s): %w", i, dm.Name, err)}
		}
		mats[i] = m
	}

	a.geom = buildGeometry(cs, mats)
	h := accel.GeometryHandle{
		ID:        a.geomSeq.Add(1),
		Triangles: cs.TriangleCount(),
		Materials: len(materials),
	}
	a.log.Debug("geometry compiled",
		zap.Uint64("id", h.ID), zap.Int("triangles", h.Triangles), zap.Int("materials", h.Materials))
	return h, nil
}

func (a *Accelerator) resolveMaterial(dm accel.DeviceMaterial) (material, error) {
	m := material{
		program:   dm.Program,
		ambient:   dm.Ambient,
		diffuse:   dm.Diffuse,
		specular:  dm.Specular,
		shininess: dm.Shininess,
	}
	switch dm.Program {
	case accel.ProgramPhong, accel.ProgramLambert, accel.ProgramNormal:
	default:
		return material{}, fmt.Errorf("%w: %q", accel.ErrUnknownProgram, dm.Program)
	}
	if dm.DiffuseSampler != accel.NoSampler {
		s, ok := a.samplers[dm.DiffuseSampler]
		if !ok {
			return material{}, fmt.Errorf("%w: id %d", accel.ErrInvalidSampler, dm.DiffuseSampler)
		}
		m.diffuseMap = s
	}
	return m, nil
}

// SetCameraTransform records the camera for the next launch.
func (a *Accelerator) SetCameraTransform(origin math.Vec3, basis math.Mat3, focal float32) {
	a.mu.Lock()
	a.cam = cameraTransform{origin: origin, basis: basis, focal: focal}
	a.mu.Unlock()
}

// SetUnifyNormals switches normal unification for the next launch.
func (a *Accelerator) SetUnifyNormals(on bool) {
	a.mu.Lock()
	a.unify = on
	a.mu.Unlock()
}

// Launches returns the number of completed launches.
func (a *Accelerator) Launches() uint64 { return a.launches.Load() }

// Launch renders width x height pixels. Rows are shared among the
// workers; cancellation is checked before each row.
func (a *Accelerator) Launch(ctx context.Context, width, height int) (accel.PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return accel.PixelBuffer{}, &accel.LaunchError{Width: width, Height: height, Err: accel.ErrInvalidExtent}
	}

	a.mu.Lock()
	closed, geom, cam, unify := a.closed, a.geom, a.cam, a.unify
	a.mu.Unlock()

	if closed {
		return accel.PixelBuffer{}, &accel.LaunchError{Width: width, Height: height, Err: accel.ErrClosed}
	}
	if geom == nil {
		return accel.PixelBuffer{}, &accel.LaunchError{Width: width, Height: height, Err: accel.ErrNoGeometry}
	}

	buf := accel.PixelBuffer{Width: width, Height: height, Pix: make([]byte, width*height*4)}
	rt := &rayTracer{geom: geom, cam: cam, width: width, height: height, background: a.background, unify: unify}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for y := 0; y < height; y++ {
		if gctx.Err() != nil {
			break
		}
		row := buf.Pix[y*width*4 : (y+1)*width*4]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rt.renderRow(y, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return accel.PixelBuffer{}, &accel.LaunchError{Width: width, Height: height, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return accel.PixelBuffer{}, &accel.LaunchError{Width: width, Height: height, Err: err}
	}

	a.launches.Add(1)
	return buf, nil
}

// Close drops geometry and samplers. Further launches fail with
// accel.ErrClosed.
func (a *Accelerator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return accel.ErrClosed
	}
	a.closed = true
	a.geom = nil
	a.samplers = make(map[int32]*sampler)
	a.log.Debug("accelerator closed", zap.Uint64("launches", a.launches.Load()))
	return nil
}
