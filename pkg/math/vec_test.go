package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 12}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3TryNormalize(t *testing.T) {
	if _, ok := (Vec3{}).TryNormalize(); ok {
		t.Error("TryNormalize of zero vector should fail")
	}
	if _, ok := (Vec3{1e-9, 0, 0}).TryNormalize(); ok {
		t.Error("TryNormalize of tiny vector should fail")
	}
	n, ok := Vec3{0, 0, 5}.TryNormalize()
	if !ok || n != (Vec3{0, 0, 1}) {
		t.Errorf("TryNormalize = %v, %v; want (0,0,1), true", n, ok)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}
	if got := a.Min(b); got != (Vec3{1, -1, -2}) {
		t.Errorf("Min = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, 0}) {
		t.Errorf("Max = %v", got)
	}
	if got := a.MaxComponent(); got != 5 {
		t.Errorf("MaxComponent = %v, want 5", got)
	}
}

func TestMat3FromColumns(t *testing.T) {
	x := Vec3{1, 2, 3}
	y := Vec3{4, 5, 6}
	z := Vec3{7, 8, 9}
	m := Mat3FromColumns(x, y, z)

	for i, want := range []Vec3{x, y, z} {
		if got := m.Column(i); got != want {
			t.Errorf("Column(%d) = %v, want %v", i, got, want)
		}
	}
	if got := m.MulVec3(Vec3{1, 0, 0}); got != x {
		t.Errorf("m * e_x = %v, want first column %v", got, x)
	}
	if got := m.Transpose().Column(0); got != (Vec3{1, 4, 7}) {
		t.Errorf("Transpose().Column(0) = %v", got)
	}
}

func TestMat3Identity(t *testing.T) {
	v := Vec3{3, -2, 8}
	if got := Identity3().MulVec3(v); got != v {
		t.Errorf("I * v = %v, want %v", got, v)
	}
}

func TestDegRad(t *testing.T) {
	if got := Rad2Deg(Deg2Rad(45)); got < 44.999 || got > 45.001 {
		t.Errorf("round trip = %v, want 45", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		x, want float32
	}{
		{-1, 0},
		{0.5, 0.5},
		{2, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.x, 0, 1); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}
