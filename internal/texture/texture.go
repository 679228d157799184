// Package texture holds decoded, read-only pixel grids.
package texture

import (
	"fmt"
	"image"
)

// Texture is an immutable 8-bit pixel grid. Rows are Stride bytes apart
// and each pixel is PixelSize bytes (3 = RGB, 4 = RGBA).
type Texture struct {
	width     int
	height    int
	stride    int
	pixelSize int
	pix       []byte
}

// New wraps pix as a texture after checking that every row fits inside
// the buffer. pix is not copied and must not be modified afterwards.
func New(width, height, stride, pixelSize int, pix []byte) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: extent %dx%d", ErrInvalidLayout, width, height)
	}
	if pixelSize != 3 && pixelSize != 4 {
		return nil, fmt.Errorf("%w: pixel size %d", ErrInvalidLayout, pixelSize)
	}
	if stride < width*pixelSize {
		return nil, fmt.Errorf("%w: stride %d < %d", ErrInvalidLayout, stride, width*pixelSize)
	}
	if need := stride*(height-1) + width*pixelSize; len(pix) < need {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidLayout, len(pix), need)
	}
	return &Texture{width: width, height: height, stride: stride, pixelSize: pixelSize, pix: pix}, nil
}

// FromImage copies img into a tightly packed RGBA texture.
func FromImage(img image.Image) (*Texture, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidLayout)
	}

	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == w*4 && b.Min == (image.Point{}) {
		return New(w, h, nrgba.Stride, 4, nrgba.Pix)
	}

	pix := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r16, g16, b16, a16 := img.At(x, y).RGBA()
			// At returns premultiplied values
			if a16 != 0 && a16 != 0xffff {
				r16 = r16 * 0xffff / a16
				g16 = g16 * 0xffff / a16
				b16 = b16 * 0xffff / a16
			}
			pix[i] = uint8(r16 >> 8)
			pix[i+1] = uint8(g16 >> 8)
			pix[i+2] = uint8(b16 >> 8)
			pix[i+3] = uint8(a16 >> 8)
			i += 4
		}
	}
	return New(w, h, w*4, 4, pix)
}

func (t *Texture) Width() int     { return t.width }
func (t *Texture) Height() int    { return t.height }
func (t *Texture) Stride() int    { return t.stride }
func (t *Texture) PixelSize() int { return t.pixelSize }

// Pix returns the backing buffer. Callers must treat it as read-only.
func (t *Texture) Pix() []byte { return t.pix }

// RGBA returns the 8-bit color at (x, y). Alpha is 255 for RGB textures.
func (t *Texture) RGBA(x, y int) (r, g, b, a uint8) {
	i := y*t.stride + x*t.pixelSize
	r, g, b, a = t.pix[i], t.pix[i+1], t.pix[i+2], 255
	if t.pixelSize == 4 {
		a = t.pix[i+3]
	}
	return r, g, b, a
}
