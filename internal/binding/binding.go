// Package binding turns scene materials into device materials: it picks
// the closest-hit program for each shader and uploads diffuse textures as
// samplers. A Table owns those samplers until Release.
package binding

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/internal/logger"
	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/internal/texture"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// DeviceMaterial is the record handed to the accelerator.
type DeviceMaterial = accel.DeviceMaterial

// ProgramFor returns the closest-hit program for a shader. Unset and
// unknown shaders use the Lambert program.
func ProgramFor(s scene.Shader) string {
	switch s {
	case scene.ShaderPhong:
		return accel.ProgramPhong
	case scene.ShaderNormal:
		return accel.ProgramNormal
	default:
		return accel.ProgramLambert
	}
}

// Table holds the device materials of one compiled scene.
type Table struct {
	device    accel.Device
	materials []DeviceMaterial
	samplers  []int32

	once       sync.Once
	releaseErr error
}

// Build creates one DeviceMaterial per material, in order. If any upload
// fails, samplers created so far are released and a *BindError is
// returned. A nil material fails before anything is uploaded.
func Build(materials []*scene.Material, device accel.Device) (*Table, error) {
	for i, m := range materials {
		if m == nil {
			return nil, &BindError{Index: i, Err: ErrNilMaterial}
		}
	}

	log := logger.Named("binding")
	t := &Table{
		device:    device,
		materials: make([]DeviceMaterial, 0, len(materials)),
	}

	for i, m := range materials {
		dm := DeviceMaterial{
			Name:           m.Name,
			Program:        ProgramFor(m.Shader),
			Ambient:        m.Ambient,
			Diffuse:        m.Diffuse,
			Specular:       m.Specular,
			Shininess:      m.Shininess,
			DiffuseSampler: accel.NoSampler,
		}

		if tex, ok := m.Texture(scene.SlotDiffuse); ok {
			id, err := t.upload(tex)
			if err != nil {
				rollbackErr := t.Release()
				return nil, &BindError{
					Material: m.Name,
					Index:    i,
					Slot:     scene.SlotDiffuse,
					Err:      multierr.Append(err, rollbackErr),
				}
			}
			dm.DiffuseSampler = id
		}

		log.Debug("material bound",
			zap.Int("index", i),
			zap.String("name", dm.Name),
			zap.String("program", dm.Program),
			zap.Int32("diffuse_sampler", dm.DiffuseSampler))
		t.materials = append(t.materials, dm)
	}
	return t, nil
}

func (t *Table) upload(tex *texture.Texture) (int32, error) {
	desc, err := SamplerDesc(tex)
	if err != nil {
		return accel.NoSampler, err
	}
	id, err := t.device.CreateSampler(desc)
	if err != nil {
		return accel.NoSampler, fmt.Errorf("create sampler: %w", err)
	}
	t.samplers = append(t.samplers, id)
	return id, nil
}

// SamplerDesc converts an sRGB texture to linear RGBA texels with alpha
// forced to 1, filtered bilinearly and clamped to the edge. Frames are
// gamma encoded on presentation, so texels must not be encoded twice.
func SamplerDesc(tex *texture.Texture) (accel.SamplerDesc, error) {
	w, h := tex.Width(), tex.Height()
	stride, ps := tex.Stride(), tex.PixelSize()
	pix := tex.Pix()

	if w <= 0 || h <= 0 {
		return accel.SamplerDesc{}, fmt.Errorf("%w: extent %dx%d", ErrTextureLayout, w, h)
	}
	if ps < 3 {
		return accel.SamplerDesc{}, fmt.Errorf("%w: pixel size %d", ErrTextureLayout, ps)
	}
	if stride < w*ps {
		return accel.SamplerDesc{}, fmt.Errorf("%w: stride %d shorter than row %d", ErrTextureLayout, stride, w*ps)
	}
	if need := stride*(h-1) + w*ps; len(pix) < need {
		return accel.SamplerDesc{}, fmt.Errorf("%w: %d bytes, need %d", ErrTextureLayout, len(pix), need)
	}

	texels := make([]float32, 0, w*h*4)
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*ps]
		for x := 0; x < w; x++ {
			p := row[x*ps : x*ps+3]
			c := texture.SRGBToLinearVec(math.Vec3{X: float32(p[0]) / 255, Y: float32(p[1]) / 255, Z: float32(p[2]) / 255})
			texels = append(texels, c.X, c.Y, c.Z, 1)
		}
	}
	return accel.SamplerDesc{
		Width:  w,
		Height: h,
		Texels: texels,
		Filter: accel.FilterLinear,
		Wrap:   accel.WrapClampToEdge,
	}, nil
}

// Materials returns the device materials in scene order.
func (t *Table) Materials() []DeviceMaterial {
	return append([]DeviceMaterial(nil), t.materials...)
}

// Len returns the number of materials.
func (t *Table) Len() int { return len(t.materials) }

// SamplerCount returns the number of samplers the table owns.
func (t *Table) SamplerCount() int { return len(t.samplers) }

// Release frees every sampler exactly once. Later calls return the
// result of the first.
func (t *Table) Release() error {
	t.once.Do(func() {
		for _, id := range t.samplers {
			t.releaseErr = multierr.Append(t.releaseErr, t.device.ReleaseSampler(id))
		}
	})
	return t.releaseErr
}
