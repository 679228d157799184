// Package scene defines the mesh and material graph produced by the loader
// and flattens it into the parallel-array layout the accelerator consumes.
package scene

import "github.com/Faultbox/rtviewer/pkg/math"

// Vertex is one triangle corner. TexCoord is nil when the mesh has no
// texture coordinates for it.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	TexCoord *math.Vec2
}

// Triangle lists its corners in winding order.
type Triangle struct {
	Vertices [3]Vertex
}

// Surface is a group of triangles sharing one material.
type Surface struct {
	Name          string
	MaterialIndex int
	Triangles     []Triangle
}

// TriangleCount returns the number of triangles in the surface.
func (s *Surface) TriangleCount() int { return len(s.Triangles) }

// Shader selects the reflectance model of a material.
type Shader int

const (
	ShaderUnset Shader = iota
	ShaderPhong
	ShaderLambert
	ShaderNormal
)

func (s Shader) String() string {
	switch s {
	case ShaderPhong:
		return "phong"
	case ShaderLambert:
		return "lambert"
	case ShaderNormal:
		return "normal"
	default:
		return "unset"
	}
}

// ParseShader maps a shader name to its tag. Unknown names yield
// ShaderUnset and false.
func ParseShader(name string) (Shader, bool) {
	switch name {
	case "phong":
		return ShaderPhong, true
	case "lambert":
		return ShaderLambert, true
	case "normal":
		return ShaderNormal, true
	}
	return ShaderUnset, false
}
