package software

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/pkg/math"
)

type rayTracer struct {
	geom          *geometry
	cam           cameraTransform
	width, height int
	background    math.Vec3
	unify         bool
}

// primaryRay returns the unit direction through the center of pixel (x, y).
func (rt *rayTracer) primaryRay(x, y int) math.Vec3 {
	d := math.Vec3{
		X: float32(x) + 0.5 - float32(rt.width)*0.5,
		Y: float32(rt.height)*0.5 - float32(y) - 0.5,
		Z: -rt.cam.focal,
	}
	return rt.cam.basis.MulVec3(d).Normalize()
}

func (rt *rayTracer) renderRow(y int, row []byte) {
	for x := 0; x < rt.width; x++ {
		c := rt.trace(rt.primaryRay(x, y))
		row[4*x] = toByte(c.X)
		row[4*x+1] = toByte(c.Y)
		row[4*x+2] = toByte(c.Z)
		row[4*x+3] = 255
	}
}

func (rt *rayTracer) trace(dir math.Vec3) math.Vec3 {
	h, ok := rt.geom.intersect(rt.cam.origin, dir)
	if !ok {
		return rt.background
	}
	g := rt.geom
	w := 1 - h.u - h.v
	k := 3 * h.tri

	n := g.normals[k].Scale(w).Add(g.normals[k+1].Scale(h.u)).Add(g.normals[k+2].Scale(h.v))
	n, ok = n.TryNormalize()
	if !ok {
		tr := g.tris[h.tri]
		n = tr.e1.Cross(tr.e2).Normalize()
	}
	toEye := dir.Negate()
	if rt.unify && n.Dot(toEye) < 0 {
		n = n.Negate()
	}

	m := &g.materials[g.matIndex[h.tri]]
	switch m.program {
	case accel.ProgramNormal:
		return n.Scale(0.5).Add(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	case accel.ProgramLambert:
		return rt.lambert(m, h, n, toEye)
	default:
		return rt.phong(m, h, n, toEye)
	}
}

func (rt *rayTracer) diffuseColor(m *material, h hit) math.Vec3 {
	if m.diffuseMap == nil {
		return m.diffuse
	}
	g := rt.geom
	k := 3 * h.tri
	w := 1 - h.u - h.v
	uv := g.texcoords[k].Scale(w).Add(g.texcoords[k+1].Scale(h.u)).Add(g.texcoords[k+2].Scale(h.v))
	return m.diffuseMap.sample(uv)
}

// Both programs light the scene with a head light at the eye.
func (rt *rayTracer) lambert(m *material, h hit, n, toLight math.Vec3) math.Vec3 {
	ndotl := math32.Max(0, n.Dot(toLight))
	return m.ambient.Add(rt.diffuseColor(m, h).Scale(ndotl))
}

func (rt *rayTracer) phong(m *material, h hit, n, toEye math.Vec3) math.Vec3 {
	c := rt.lambert(m, h, n, toEye)
	ndotl := n.Dot(toEye)
	if ndotl <= 0 {
		return c
	}
	reflected := n.Scale(2 * ndotl).Sub(toEye)
	spec := math32.Pow(math32.Max(0, reflected.Dot(toEye)), math32.Max(m.shininess, 1))
	return c.Add(m.specular.Scale(spec))
}

func toByte(c float32) byte {
	if !(c > 0) {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return byte(c*255 + 0.5)
}
