// Package accel describes the ray-tracing accelerator the frame loop
// drives: compiled geometry in, camera transforms in, pixels out.
package accel

import (
	"context"
	"fmt"

	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// Closest-hit programs a material can be bound to.
const (
	ProgramPhong   = "closest_hit_phong"
	ProgramLambert = "closest_hit_lambert"
	ProgramNormal  = "closest_hit_normal"
)

// NoSampler marks a material without a diffuse texture; the flat
// diffuse color is used instead.
const NoSampler int32 = -1

// Filter selects texture filtering.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// Wrap selects how out of range texture coordinates are addressed.
type Wrap int

const (
	WrapClampToEdge Wrap = iota
	WrapRepeat
)

// SamplerDesc describes a texture upload. Texels holds Width*Height RGBA
// values in [0,1], rows top to bottom.
type SamplerDesc struct {
	Width  int
	Height int
	Texels []float32
	Filter Filter
	Wrap   Wrap
}

// Validate checks that Texels matches the declared extent.
func (d *SamplerDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: sampler extent %dx%d", ErrInvalidSampler, d.Width, d.Height)
	}
	if want := d.Width * d.Height * 4; len(d.Texels) != want {
		return fmt.Errorf("%w: %d texels, want %d", ErrInvalidSampler, len(d.Texels), want)
	}
	return nil
}

// DeviceMaterial is the per-material record uploaded alongside geometry.
type DeviceMaterial struct {
	Name           string
	Program        string
	Ambient        math.Vec3
	Diffuse        math.Vec3
	Specular       math.Vec3
	Shininess      float32
	DiffuseSampler int32
}

// GeometryHandle identifies compiled geometry on the accelerator.
type GeometryHandle struct {
	ID        uint64
	Triangles int
	Materials int
}

// PixelBuffer is a tightly packed RGBA8 image, rows top to bottom.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// Validate checks that Pix holds exactly Width*Height pixels.
func (b *PixelBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidExtent, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidExtent, len(b.Pix), b.Width, b.Height)
	}
	return nil
}

// Device owns texture samplers.
type Device interface {
	// CreateSampler uploads a texture and returns its id (never NoSampler).
	CreateSampler(desc SamplerDesc) (int32, error)
	// ReleaseSampler frees a sampler created by CreateSampler.
	ReleaseSampler(id int32) error
}

// NormalUnifier is implemented by accelerators that can turn shading
// normals towards the viewer. The producer calls it before every launch.
type NormalUnifier interface {
	SetUnifyNormals(on bool)
}

// Accelerator renders compiled geometry. SetCameraTransform and Launch
// are called from a single producer goroutine; Close may be called once
// the producer has stopped.
type Accelerator interface {
	Device

	CompileGeometry(cs *scene.CompiledScene, materials []DeviceMaterial) (GeometryHandle, error)

	// SetCameraTransform takes the eye position, the camera-to-world
	// rotation and the focal length in pixels for the next launch.
	SetCameraTransform(origin math.Vec3, basis math.Mat3, focal float32)

	// Launch renders one full image. It blocks until the image is done.
	Launch(ctx context.Context, width, height int) (PixelBuffer, error)

	Close() error
}
