package scene

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/rtviewer/pkg/math"
)

// SurfaceRange locates one source surface inside the compiled arrays.
type SurfaceRange struct {
	Name          string
	FirstTriangle int
	Count         int
}

// Bounds is an axis aligned box. It is empty when Min > Max.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Empty reports whether the box contains no point.
func (b Bounds) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

func emptyBounds() Bounds {
	inf := float32(math32.MaxFloat32)
	return Bounds{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// CompiledScene is the flattened geometry. Entries 3t, 3t+1 and 3t+2 of
// every per-vertex array belong to triangle t, whose material is
// MaterialIndices[t].
type CompiledScene struct {
	Positions       []math.Vec3
	Normals         []math.Vec3
	TexCoords       []math.Vec2
	MaterialIndices []uint32

	Surfaces      []SurfaceRange
	Bounds        Bounds
	MaterialCount int
}

// TriangleCount returns the number of compiled triangles.
func (c *CompiledScene) TriangleCount() int { return len(c.MaterialIndices) }

// Validate checks the array length invariant and material index range.
func (c *CompiledScene) Validate() error {
	n := len(c.MaterialIndices)
	if len(c.Positions) != 3*n || len(c.Normals) != 3*n || len(c.TexCoords) != 3*n {
		return fmt.Errorf("%w: %d triangles, %d positions, %d normals, %d texcoords",
			ErrInconsistentScene, n, len(c.Positions), len(c.Normals), len(c.TexCoords))
	}
	for t, idx := range c.MaterialIndices {
		if int(idx) >= c.MaterialCount {
			return fmt.Errorf("%w: triangle %d uses material %d of %d",
				ErrInvalidMaterialIndex, t, idx, c.MaterialCount)
		}
	}
	return nil
}

// Compile flattens surfaces into parallel arrays. Surfaces and their
// triangles are emitted in input order and corners keep their winding.
// Compilation fails as a whole if any triangle references a material
// outside materials or any surface is nil. Empty surfaces are skipped
// without checking their material.
func Compile(surfaces []*Surface, materials []*Material) (*CompiledScene, error) {
	total := 0
	for i, s := range surfaces {
		if s == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilSurface, i)
		}
		if len(s.Triangles) == 0 {
			continue
		}
		if s.MaterialIndex < 0 || s.MaterialIndex >= len(materials) {
			return nil, &InvalidMaterialIndexError{
				Surface:       s.Name,
				SurfaceIndex:  i,
				MaterialIndex: s.MaterialIndex,
				MaterialCount: len(materials),
			}
		}
		total += len(s.Triangles)
	}

	cs := &CompiledScene{
		Positions:       make([]math.Vec3, 0, 3*total),
		Normals:         make([]math.Vec3, 0, 3*total),
		TexCoords:       make([]math.Vec2, 0, 3*total),
		MaterialIndices: make([]uint32, 0, total),
		Surfaces:        make([]SurfaceRange, 0, len(surfaces)),
		Bounds:          emptyBounds(),
		MaterialCount:   len(materials),
	}

	for _, s := range surfaces {
		cs.Surfaces = append(cs.Surfaces, SurfaceRange{
			Name:          s.Name,
			FirstTriangle: len(cs.MaterialIndices),
			Count:         len(s.Triangles),
		})
		mat := uint32(s.MaterialIndex)
		for _, tri := range s.Triangles {
			cs.MaterialIndices = append(cs.MaterialIndices, mat)
			for _, v := range tri.Vertices {
				cs.Positions = append(cs.Positions, v.Position)
				cs.Normals = append(cs.Normals, v.Normal)
				var uv math.Vec2
				if v.TexCoord != nil {
					uv = *v.TexCoord
				}
				cs.TexCoords = append(cs.TexCoords, uv)
				cs.Bounds.Min = cs.Bounds.Min.Min(v.Position)
				cs.Bounds.Max = cs.Bounds.Max.Max(v.Position)
			}
		}
	}
	return cs, nil
}
