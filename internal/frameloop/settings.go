package frameloop

import (
	"fmt"
	"time"
)

// Gamma limits accepted by SetGamma.
const (
	MinGamma     = 0.1
	MaxGamma     = 5
	DefaultGamma = 2.4
)

// Settings are renderer options changed from the UI. A Settings value
// is replaced as a whole and never modified after publication.
type Settings struct {
	Gamma      float32
	VSync      bool
	Continuous bool // false renders only after a repaint request

	// UnifyNormals lights back faces like front faces on accelerators
	// implementing accel.NormalUnifier.
	UnifyNormals bool
}

// DefaultSettings returns continuous rendering with vsync, unified
// normals and the default gamma.
func DefaultSettings() Settings {
	return Settings{Gamma: DefaultGamma, VSync: true, Continuous: true, UnifyNormals: true}
}

func (s Settings) validate() error {
	if !(s.Gamma >= MinGamma && s.Gamma <= MaxGamma) {
		return fmt.Errorf("%w: gamma %v outside [%v, %v]", ErrInvalidSetting, s.Gamma, MinGamma, MaxGamma)
	}
	return nil
}

// Stats describes producer throughput.
type Stats struct {
	Iterations uint64
	FrameTime  time.Duration // duration of the last launch
}

// FPS derives frames per second from the last frame time.
func (s Stats) FPS() float64 {
	if s.FrameTime <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.FrameTime)
}
