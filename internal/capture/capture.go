// Package capture writes rendered frames to PNG files.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/transform"

	"github.com/Faultbox/rtviewer/internal/frameloop"
)

// ErrFrameSize reports a frame whose pixel slice does not match its extent.
var ErrFrameSize = errors.New("frame size mismatch")

// Capture saves frames as <dir>/<prefix>_<timestamp>_<iteration>.png.
type Capture struct {
	outputDir string
	prefix    string
	scale     float64

	now func() time.Time
}

// New creates a capture handler. scale resizes the saved image; 0 or 1
// keeps the rendered size.
func New(outputDir, prefix string, scale float64) *Capture {
	if scale <= 0 {
		scale = 1
	}
	return &Capture{outputDir: outputDir, prefix: prefix, scale: scale, now: time.Now}
}

// Filename returns the path a frame would be saved to.
func (c *Capture) Filename(f frameloop.Frame) string {
	timestamp := c.now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("%s_%s_%06d.png", c.prefix, timestamp, f.Iteration)
	if c.outputDir != "" {
		name = filepath.Join(c.outputDir, name)
	}
	return name
}

// Image converts a linear frame into a display image by applying gamma.
func (c *Capture) Image(f frameloop.Frame, gamma float32) (image.Image, error) {
	if len(f.Pix) != f.Width*f.Height*4 || f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrFrameSize, f.Width, f.Height, len(f.Pix))
	}
	src := &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}

	var img image.Image = src
	if gamma > 0 && gamma != 1 {
		img = adjust.Gamma(src, float64(gamma))
	}
	if c.scale != 1 {
		w := max(1, int(float64(f.Width)*c.scale))
		h := max(1, int(float64(f.Height)*c.scale))
		img = transform.Resize(img, w, h, transform.Linear)
	}
	return img, nil
}

// Save writes the frame and returns the file name.
func (c *Capture) Save(f frameloop.Frame, gamma float32) (string, error) {
	img, err := c.Image(f, gamma)
	if err != nil {
		return "", err
	}

	if c.outputDir != "" {
		if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := c.Filename(f)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}

// Handler adapts Save to the frame loop's screenshot hook. done is called
// with the saved file name.
func (c *Capture) Handler(done func(path string)) func(frameloop.Frame, frameloop.Settings) error {
	return func(f frameloop.Frame, s frameloop.Settings) error {
		path, err := c.Save(f, s.Gamma)
		if err != nil {
			return err
		}
		if done != nil {
			done(path)
		}
		return nil
	}
}
