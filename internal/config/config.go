// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/rtviewer/pkg/charset"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Camera   CameraConfig   `yaml:"camera"`
	Scene    SceneConfig    `yaml:"scene"`
	Render   RenderConfig   `yaml:"render"`
	Capture  CaptureConfig  `yaml:"capture"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// CameraConfig holds the initial view. FovY is in degrees.
type CameraConfig struct {
	FovY     float32    `yaml:"fov_y"`
	ViewFrom [3]float32 `yaml:"view_from"`
	ViewAt   [3]float32 `yaml:"view_at"`
	Up       [3]float32 `yaml:"up"`
}

// SceneConfig holds scene file settings.
type SceneConfig struct {
	Path    string `yaml:"path"`
	Charset string `yaml:"charset"` // Encoding of names inside OBJ/MTL files
}

// RenderConfig holds frame loop and navigation settings.
type RenderConfig struct {
	Gamma            float32       `yaml:"gamma"`
	Continuous       bool          `yaml:"continuous"`
	IdleInterval     time.Duration `yaml:"idle_interval"`
	Workers          int           `yaml:"workers"` // 0 = one per CPU
	Speed            float32       `yaml:"speed"`
	MouseSensitivity float32       `yaml:"mouse_sensitivity"`
	UnifyNormals     bool          `yaml:"unify_normals"`
}

// CaptureConfig holds screenshot and headless output settings.
type CaptureConfig struct {
	Dir    string  `yaml:"dir"`
	Prefix string  `yaml:"prefix"`
	Frames int     `yaml:"frames"` // Frames rendered in headless mode
	Scale  float64 `yaml:"scale"`  // Saved image size relative to the render
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      640,
			Height:     480,
			Fullscreen: false,
			VSync:      true,
		},
		Camera: CameraConfig{
			FovY:     45,
			ViewFrom: [3]float32{175, -140, 130},
			ViewAt:   [3]float32{0, 0, 35},
			Up:       [3]float32{0, 0, 1},
		},
		Scene: SceneConfig{
			Path:    "",
			Charset: charset.UTF8,
		},
		Render: RenderConfig{
			Gamma:            2.4,
			Continuous:       true,
			IdleInterval:     5 * time.Millisecond,
			Workers:          0,
			Speed:            5,
			MouseSensitivity: 0.5,
			UnifyNormals:     true,
		},
		Capture: CaptureConfig{
			Dir:    "screenshots",
			Prefix: "rtviewer",
			Frames: 1,
			Scale:  1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks value ranges that would otherwise fail deep inside the
// renderer.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Graphics.Width, c.Graphics.Height)
	}
	if c.Camera.FovY <= 0 || c.Camera.FovY >= 180 {
		return fmt.Errorf("%w: fov_y %.2f must be in (0, 180)", ErrInvalidConfig, c.Camera.FovY)
	}
	if c.Camera.ViewFrom == c.Camera.ViewAt {
		return fmt.Errorf("%w: view_from and view_at coincide", ErrInvalidConfig)
	}
	if c.Render.Gamma < 0.1 || c.Render.Gamma > 5 {
		return fmt.Errorf("%w: gamma %.2f must be in [0.1, 5]", ErrInvalidConfig, c.Render.Gamma)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("%w: workers %d must not be negative", ErrInvalidConfig, c.Render.Workers)
	}
	if c.Capture.Scale <= 0 {
		return fmt.Errorf("%w: capture scale %.2f must be positive", ErrInvalidConfig, c.Capture.Scale)
	}
	if c.Capture.Frames < 1 {
		return fmt.Errorf("%w: capture frames %d must be at least 1", ErrInvalidConfig, c.Capture.Frames)
	}
	if _, err := charset.Lookup(c.Scene.Charset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
