package frameloop

import (
	"sync"

	"github.com/Faultbox/rtviewer/internal/accel"
)

// Frame is a private copy of one completed producer iteration.
type Frame struct {
	Width     int
	Height    int
	Iteration uint64
	Pix       []byte // RGBA8, rows top to bottom
}

// FrameBuffer is the hand-off point between producer and consumer. The
// lock covers the whole copy in and the whole copy out, so a reader sees
// either the previous frame or the next one, never a mix.
type FrameBuffer struct {
	mu        sync.Mutex
	width     int
	height    int
	iteration uint64
	pix       []byte
}

// Publish copies buf in as the frame of the given iteration. The backing
// array is reallocated only when the extent changes.
func (b *FrameBuffer) Publish(buf accel.PixelBuffer, iteration uint64) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if buf.Width != b.width || buf.Height != b.height || b.pix == nil {
		b.pix = make([]byte, len(buf.Pix))
		b.width, b.height = buf.Width, buf.Height
	}
	copy(b.pix, buf.Pix)
	b.iteration = iteration
	return nil
}

// CopyOut returns a copy of the latest frame. ok is false until the first
// Publish.
func (b *FrameBuffer) CopyOut() (f Frame, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pix == nil {
		return Frame{}, false
	}
	return Frame{
		Width:     b.width,
		Height:    b.height,
		Iteration: b.iteration,
		Pix:       append([]byte(nil), b.pix...),
	}, true
}

// Iteration returns the iteration of the latest frame, 0 before any.
func (b *FrameBuffer) Iteration() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.iteration
}
