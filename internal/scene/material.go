package scene

import (
	"fmt"

	"github.com/Faultbox/rtviewer/internal/texture"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// Slot names one of the fixed texture bindings of a material.
type Slot int

const (
	SlotDiffuse Slot = iota
	SlotSpecular
	SlotNormal
	SlotOpacity
	SlotRoughness
	SlotMetallicness

	SlotCount = 6
)

var slotNames = [SlotCount]string{"diffuse", "specular", "normal", "opacity", "roughness", "metallicness"}

func (s Slot) String() string {
	if s.Valid() {
		return slotNames[s]
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// Valid reports whether s is one of the six known slots.
func (s Slot) Valid() bool { return s >= 0 && s < SlotCount }

// Material describes surface appearance. A material owns the textures
// bound to its slots until Release.
type Material struct {
	Name string

	Ambient  math.Vec3
	Diffuse  math.Vec3
	Specular math.Vec3
	Emission math.Vec3

	Shininess    float32
	Reflectivity float32
	Roughness    float32
	Metallicness float32
	IOR          float32 // -1 when not refractive

	Shader Shader

	textures map[Slot]*texture.Texture
}

// NewMaterial returns a material with the default appearance.
func NewMaterial(name string) *Material {
	return &Material{
		Name:         name,
		Ambient:      math.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
		Diffuse:      math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
		Specular:     math.Vec3{X: 0.6, Y: 0.6, Z: 0.6},
		Shininess:    1,
		Reflectivity: 0.99,
		Roughness:    1,
		IOR:          -1,
		Shader:       ShaderPhong,
	}
}

// DefaultMaterial is used for faces that reference no material.
func DefaultMaterial() *Material { return NewMaterial("default") }

// SetTexture binds tex to slot, replacing any previous texture. A nil tex
// clears the slot.
func (m *Material) SetTexture(slot Slot, tex *texture.Texture) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, int(slot))
	}
	if tex == nil {
		delete(m.textures, slot)
		return nil
	}
	if m.textures == nil {
		m.textures = make(map[Slot]*texture.Texture, SlotCount)
	}
	m.textures[slot] = tex
	return nil
}

// Texture returns the texture bound to slot.
func (m *Material) Texture(slot Slot) (*texture.Texture, bool) {
	tex, ok := m.textures[slot]
	return tex, ok
}

// TextureCount returns the number of occupied slots.
func (m *Material) TextureCount() int { return len(m.textures) }

// Release drops every bound texture.
func (m *Material) Release() {
	m.textures = nil
}
