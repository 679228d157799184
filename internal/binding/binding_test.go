package binding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/internal/texture"
)

var errDeviceFull = errors.New("device full")

type fakeDevice struct {
	next      int32
	failAfter int // fail the create call with this 1-based number; 0 never fails
	creates   int
	live      map[int32]accel.SamplerDesc
	released  map[int32]int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{live: map[int32]accel.SamplerDesc{}, released: map[int32]int{}}
}

func (d *fakeDevice) CreateSampler(desc accel.SamplerDesc) (int32, error) {
	d.creates++
	if d.failAfter > 0 && d.creates == d.failAfter {
		return accel.NoSampler, errDeviceFull
	}
	if err := desc.Validate(); err != nil {
		return accel.NoSampler, err
	}
	id := d.next
	d.next++
	d.live[id] = desc
	return id, nil
}

func (d *fakeDevice) ReleaseSampler(id int32) error {
	d.released[id]++
	if _, ok := d.live[id]; !ok {
		return accel.ErrInvalidSampler
	}
	delete(d.live, id)
	return nil
}

func solidTexture(t *testing.T, r, g, b, a byte) *texture.Texture {
	t.Helper()
	tex, err := texture.New(1, 1, 4, 4, []byte{r, g, b, a})
	require.NoError(t, err)
	return tex
}

func material(t *testing.T, name string, shader scene.Shader, diffuse *texture.Texture) *scene.Material {
	t.Helper()
	m := scene.NewMaterial(name)
	m.Shader = shader
	if diffuse != nil {
		require.NoError(t, m.SetTexture(scene.SlotDiffuse, diffuse))
	}
	return m
}

func TestProgramSelectionIsHonored(t *testing.T) {
	tests := []struct {
		shader scene.Shader
		want   string
	}{
		{scene.ShaderPhong, accel.ProgramPhong},
		{scene.ShaderLambert, accel.ProgramLambert},
		{scene.ShaderNormal, accel.ProgramNormal},
		{scene.ShaderUnset, accel.ProgramLambert},
		{scene.Shader(42), accel.ProgramLambert},
	}
	for _, tt := range tests {
		t.Run(tt.shader.String(), func(t *testing.T) {
			table, err := Build([]*scene.Material{material(t, "m", tt.shader, nil)}, newFakeDevice())
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.Materials()[0].Program)
		})
	}
}

func TestBuildPublishesConstantsAndSamplers(t *testing.T) {
	dev := newFakeDevice()
	plain := material(t, "plain", scene.ShaderPhong, nil)
	plain.Shininess = 12
	textured := material(t, "textured", scene.ShaderLambert, solidTexture(t, 255, 51, 0, 10))

	table, err := Build([]*scene.Material{plain, textured}, dev)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	mats := table.Materials()
	assert.Equal(t, "plain", mats[0].Name)
	assert.Equal(t, plain.Ambient, mats[0].Ambient)
	assert.Equal(t, plain.Diffuse, mats[0].Diffuse)
	assert.Equal(t, plain.Specular, mats[0].Specular)
	assert.Equal(t, float32(12), mats[0].Shininess)
	assert.Equal(t, accel.NoSampler, mats[0].DiffuseSampler)

	require.NotEqual(t, accel.NoSampler, mats[1].DiffuseSampler)
	desc := dev.live[mats[1].DiffuseSampler]
	assert.InDeltaSlice(t, []float32{1, 0.0331, 0, 1}, desc.Texels, 1e-3, "linear, alpha forced to 1")
	assert.Equal(t, accel.FilterLinear, desc.Filter)
	assert.Equal(t, accel.WrapClampToEdge, desc.Wrap)
	assert.Equal(t, 1, table.SamplerCount())
}

func TestSamplerDescHonorsStride(t *testing.T) {
	// 2x2 RGB with two bytes of row padding
	pix := []byte{
		255, 0, 0, 0, 255, 0, 9, 9,
		0, 0, 255, 255, 255, 255,
	}
	tex, err := texture.New(2, 2, 8, 3, pix)
	require.NoError(t, err)

	desc, err := SamplerDesc(tex)
	require.NoError(t, err)
	require.NoError(t, desc.Validate())
	assert.InDeltaSlice(t, []float32{
		1, 0, 0, 1, 0, 1, 0, 1,
		0, 0, 1, 1, 1, 1, 1, 1,
	}, desc.Texels, 1e-6)
}

func TestSamplerDescLinearizes(t *testing.T) {
	tex, err := texture.New(1, 1, 4, 4, []byte{128, 10, 255, 7})
	require.NoError(t, err)

	desc, err := SamplerDesc(tex)
	require.NoError(t, err)
	require.Len(t, desc.Texels, 4)
	assert.InDelta(t, 0.2158, desc.Texels[0], 1e-3)
	assert.InDelta(t, float32(10)/255/12.92, desc.Texels[1], 1e-6)
	assert.InDelta(t, 1, desc.Texels[2], 1e-6)
	assert.Equal(t, float32(1), desc.Texels[3], "alpha is ignored")
}

func TestReleaseExactlyOnce(t *testing.T) {
	dev := newFakeDevice()
	tex := solidTexture(t, 1, 2, 3, 4)
	table, err := Build([]*scene.Material{
		material(t, "a", scene.ShaderPhong, tex),
		material(t, "b", scene.ShaderPhong, nil),
		material(t, "c", scene.ShaderPhong, tex),
	}, dev)
	require.NoError(t, err)
	require.Len(t, dev.live, 2)

	require.NoError(t, table.Release())
	require.NoError(t, table.Release())
	assert.Empty(t, dev.live)
	for id, n := range dev.released {
		assert.Equal(t, 1, n, "sampler %d", id)
	}
	assert.Len(t, dev.released, 2)
}

func TestBuildRollsBackOnFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failAfter = 3
	tex := solidTexture(t, 1, 2, 3, 4)
	materials := []*scene.Material{
		material(t, "a", scene.ShaderPhong, tex),
		material(t, "b", scene.ShaderNormal, tex),
		material(t, "c", scene.ShaderLambert, tex),
	}

	table, err := Build(materials, dev)
	assert.Nil(t, table)
	require.ErrorIs(t, err, errDeviceFull)

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, 2, bindErr.Index)
	assert.Equal(t, "c", bindErr.Material)
	assert.Equal(t, scene.SlotDiffuse, bindErr.Slot)

	assert.Empty(t, dev.live, "samplers created before the failure are released")
	assert.Len(t, dev.released, 2)
}

func TestBuildRejectsNilMaterial(t *testing.T) {
	dev := newFakeDevice()
	tex := solidTexture(t, 1, 2, 3, 4)
	materials := []*scene.Material{material(t, "a", scene.ShaderPhong, tex), nil}

	table, err := Build(materials, dev)
	assert.Nil(t, table)
	require.ErrorIs(t, err, ErrNilMaterial)

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, 1, bindErr.Index)
	assert.Zero(t, dev.creates, "nothing is uploaded")
}

func TestBuildEmpty(t *testing.T) {
	table, err := Build(nil, newFakeDevice())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.NoError(t, table.Release())
}
