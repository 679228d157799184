package software

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtviewer/internal/accel"
	"github.com/Faultbox/rtviewer/pkg/math"
)

type sampler struct {
	width, height int
	texels        []float32
	nearest       bool
	repeat        bool
}

func newSampler(desc accel.SamplerDesc) *sampler {
	return &sampler{
		width:   desc.Width,
		height:  desc.Height,
		texels:  append([]float32(nil), desc.Texels...),
		nearest: desc.Filter == accel.FilterNearest,
		repeat:  desc.Wrap == accel.WrapRepeat,
	}
}

func (s *sampler) address(i, n int) int {
	if s.repeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (s *sampler) fetch(x, y int) math.Vec3 {
	i := (s.address(y, s.height)*s.width + s.address(x, s.width)) * 4
	return math.Vec3{X: s.texels[i], Y: s.texels[i+1], Z: s.texels[i+2]}
}

// sample looks up (u, v) with texel centers at (i+0.5)/w.
func (s *sampler) sample(uv math.Vec2) math.Vec3 {
	x := uv.X*float32(s.width) - 0.5
	y := uv.Y*float32(s.height) - 0.5
	if s.nearest {
		return s.fetch(int(math32.Floor(x+0.5)), int(math32.Floor(y+0.5)))
	}

	x0, y0 := math32.Floor(x), math32.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	c00 := s.fetch(ix, iy)
	c10 := s.fetch(ix+1, iy)
	c01 := s.fetch(ix, iy+1)
	c11 := s.fetch(ix+1, iy+1)

	top := c00.Scale(1 - fx).Add(c10.Scale(fx))
	bottom := c01.Scale(1 - fx).Add(c11.Scale(fx))
	return top.Scale(1 - fy).Add(bottom.Scale(fy))
}
