package accel

import (
	"errors"
	"fmt"
)

var (
	ErrClosed         = errors.New("accelerator closed")
	ErrNoGeometry     = errors.New("no geometry compiled")
	ErrInvalidExtent  = errors.New("invalid image extent")
	ErrInvalidSampler = errors.New("invalid sampler")
	ErrUnknownProgram = errors.New("unknown program")
)

// CompileError reports geometry or materials rejected by the accelerator.
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string { return fmt.Sprintf("compile geometry: %v", e.Err) }

func (e *CompileError) Unwrap() error { return e.Err }

// LaunchError reports a failed frame. The frame loop does not retry.
type LaunchError struct {
	Width  int
	Height int
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %dx%d: %v", e.Width, e.Height, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
