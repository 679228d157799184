package software

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtviewer/internal/scene"
	"github.com/Faultbox/rtviewer/pkg/math"
)

type material struct {
	program    string
	ambient    math.Vec3
	diffuse    math.Vec3
	specular   math.Vec3
	shininess  float32
	diffuseMap *sampler
}

// triangle caches the edges used by the intersection test.
type triangle struct {
	v0, e1, e2 math.Vec3
}

type geometry struct {
	tris      []triangle
	normals   []math.Vec3
	texcoords []math.Vec2
	matIndex  []uint32
	materials []material
}

// buildGeometry copies the compiled arrays so later changes to cs do not
// affect rendering.
func buildGeometry(cs *scene.CompiledScene, mats []material) *geometry {
	n := cs.TriangleCount()
	g := &geometry{
		tris:      make([]triangle, n),
		normals:   append([]math.Vec3(nil), cs.Normals...),
		texcoords: append([]math.Vec2(nil), cs.TexCoords...),
		matIndex:  append([]uint32(nil), cs.MaterialIndices...),
		materials: mats,
	}
	for t := 0; t < n; t++ {
		p0, p1, p2 := cs.Positions[3*t], cs.Positions[3*t+1], cs.Positions[3*t+2]
		g.tris[t] = triangle{v0: p0, e1: p1.Sub(p0), e2: p2.Sub(p0)}
	}
	return g
}

type hit struct {
	t    float32
	u, v float32
	tri  int
}

const hitEpsilon = 1e-7

// intersect finds the closest triangle along the ray (Möller–Trumbore).
func (g *geometry) intersect(origin, dir math.Vec3) (hit, bool) {
	best := hit{t: math32.MaxFloat32, tri: -1}
	for i := range g.tris {
		tr := &g.tris[i]
		p := dir.Cross(tr.e2)
		det := tr.e1.Dot(p)
		if det > -hitEpsilon && det < hitEpsilon {
			continue
		}
		inv := 1 / det
		s := origin.Sub(tr.v0)
		u := s.Dot(p) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := s.Cross(tr.e1)
		v := dir.Dot(q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		t := tr.e2.Dot(q) * inv
		if t <= 1e-4 || t >= best.t {
			continue
		}
		best = hit{t: t, u: u, v: v, tri: i}
	}
	return best, best.tri >= 0
}
