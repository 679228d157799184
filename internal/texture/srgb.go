package texture

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtviewer/pkg/math"
)

// SRGBToLinear converts one sRGB encoded channel in [0,1] to linear.
func SRGBToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}

// SRGBToLinearVec applies SRGBToLinear per channel.
func SRGBToLinearVec(c math.Vec3) math.Vec3 {
	return math.Vec3{X: SRGBToLinear(c.X), Y: SRGBToLinear(c.Y), Z: SRGBToLinear(c.Z)}
}
