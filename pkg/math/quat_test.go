package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatRotate(t *testing.T) {
	// 90 degrees about +Z maps +X to +Y
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 0, Z: 1}, float32(math.Pi/2))
	got := q.Rotate(Vec3{X: 1})
	if !got.ApproxEqual(Vec3{Y: 1}, 1e-5) {
		t.Errorf("Rotate(+X) = %v, want +Y", got)
	}

	// The matrix form agrees with the sandwich product
	m := q.ToMat3()
	v := Vec3{X: 0.3, Y: -2, Z: 5}
	if !m.MulVec3(v).ApproxEqual(q.Rotate(v), 1e-5) {
		t.Errorf("ToMat3 * v = %v, Rotate(v) = %v", m.MulVec3(v), q.Rotate(v))
	}
}

func TestQuatConjugateUndoesRotation(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, 0.7)
	v := Vec3{X: 1, Y: 2, Z: 3}
	back := q.Conjugate().Rotate(q.Rotate(v))
	if !back.ApproxEqual(v, 1e-5) {
		t.Errorf("conjugate rotation = %v, want %v", back, v)
	}
}
