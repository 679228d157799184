// Package controls maps keyboard and mouse input to frame loop commands.
// It knows nothing about SDL; the input package translates scancodes.
package controls

import (
	"github.com/Faultbox/rtviewer/internal/frameloop"
	"github.com/Faultbox/rtviewer/pkg/math"
)

// Key is a viewer key independent of the windowing backend.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyW
	KeyA
	KeyS
	KeyD
	KeyZ
	KeyC
	KeyV
	KeyF12
	KeyFovIn  // narrows the field of view
	KeyFovOut // widens the field of view
	KeyGammaUp
	KeyGammaDown
	KeyContinuous // toggles continuous rendering
	KeyUnify      // toggles normal unification
	KeyFaster
	KeySlower
	KeyMouseFaster
	KeyMouseSlower
)

var keyNames = map[Key]string{
	KeyUp: "Up", KeyDown: "Down", KeyLeft: "Left", KeyRight: "Right",
	KeyW: "W", KeyA: "A", KeyS: "S", KeyD: "D", KeyZ: "Z", KeyC: "C",
	KeyV: "V", KeyF12: "F12",
	KeyFovIn: "FovIn", KeyFovOut: "FovOut",
	KeyGammaUp: "GammaUp", KeyGammaDown: "GammaDown",
	KeyContinuous: "Continuous", KeyUnify: "Unify",
	KeyFaster: "Faster", KeySlower: "Slower",
	KeyMouseFaster: "MouseFaster", KeyMouseSlower: "MouseSlower",
}

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return "None"
}

// RollStep is the roll applied per frame while Z or C is held.
const RollStep = 0.05

// Field of view limits in radians for the fov keys.
const (
	MinFov = 0.1
	MaxFov = 3.0
)

// Limits for the speed and sensitivity keys. Each press scales by
// AdjustFactor.
const (
	MinSpeed       = 0.01
	MaxSpeed       = 1000
	MinSensitivity = 0.01
	MaxSensitivity = 100
	AdjustFactor   = 1.25
)

// Bindings holds navigation speeds.
type Bindings struct {
	Speed       float32 // world units per frame for held keys
	Sensitivity float32 // radians per pixel of mouse drag, scaled by 0.01
	FovStep     float32
	GammaStep   float32
}

// DefaultBindings returns the viewer defaults.
func DefaultBindings() Bindings {
	return Bindings{Speed: 5, Sensitivity: 0.5, FovStep: math.Deg2Rad(5), GammaStep: 0.1}
}

// View is the state relative adjustments start from.
type View struct {
	FovY     float32
	Settings frameloop.Settings
}

// Held returns the navigation commands for keys held down during one
// frame. Every held key contributes, so opposite keys cancel out.
func (b Bindings) Held(keys []Key) []frameloop.Command {
	var cmds []frameloop.Command
	for _, k := range keys {
		switch k {
		case KeyUp:
			cmds = append(cmds, frameloop.Dolly{Distance: b.Speed})
		case KeyDown:
			cmds = append(cmds, frameloop.Dolly{Distance: -b.Speed})
		case KeyLeft:
			cmds = append(cmds, frameloop.Strafe{Distance: -b.Speed})
		case KeyRight:
			cmds = append(cmds, frameloop.Strafe{Distance: b.Speed})
		case KeyA:
			cmds = append(cmds, frameloop.Yaw{Amount: -b.Speed})
		case KeyD:
			cmds = append(cmds, frameloop.Yaw{Amount: b.Speed})
		case KeyW:
			cmds = append(cmds, frameloop.Pitch{Amount: -b.Speed})
		case KeyS:
			cmds = append(cmds, frameloop.Pitch{Amount: b.Speed})
		case KeyZ:
			cmds = append(cmds, frameloop.Roll{Amount: -RollStep})
		case KeyC:
			cmds = append(cmds, frameloop.Roll{Amount: RollStep})
		}
	}
	return cmds
}

// Pressed returns the one-shot command for a key press, or nil.
func (b Bindings) Pressed(k Key, v View) frameloop.Command {
	switch k {
	case KeyV:
		return frameloop.ToggleVsync{}
	case KeyF12:
		return frameloop.Screenshot{}
	case KeyContinuous:
		return frameloop.SetContinuous{Continuous: !v.Settings.Continuous}
	case KeyUnify:
		return frameloop.SetUnify{On: !v.Settings.UnifyNormals}
	case KeyFovIn:
		return frameloop.SetFov{FovY: math.Clamp(v.FovY-b.FovStep, MinFov, MaxFov)}
	case KeyFovOut:
		return frameloop.SetFov{FovY: math.Clamp(v.FovY+b.FovStep, MinFov, MaxFov)}
	case KeyGammaUp:
		return frameloop.SetGamma{Gamma: math.Clamp(v.Settings.Gamma+b.GammaStep, frameloop.MinGamma, frameloop.MaxGamma)}
	case KeyGammaDown:
		return frameloop.SetGamma{Gamma: math.Clamp(v.Settings.Gamma-b.GammaStep, frameloop.MinGamma, frameloop.MaxGamma)}
	}
	return nil
}

// Adjust applies the speed and sensitivity keys to b and reports whether
// k was one of them.
func (b *Bindings) Adjust(k Key) bool {
	switch k {
	case KeyFaster:
		b.Speed = math.Clamp(b.Speed*AdjustFactor, MinSpeed, MaxSpeed)
	case KeySlower:
		b.Speed = math.Clamp(b.Speed/AdjustFactor, MinSpeed, MaxSpeed)
	case KeyMouseFaster:
		b.Sensitivity = math.Clamp(b.Sensitivity*AdjustFactor, MinSensitivity, MaxSensitivity)
	case KeyMouseSlower:
		b.Sensitivity = math.Clamp(b.Sensitivity/AdjustFactor, MinSensitivity, MaxSensitivity)
	default:
		return false
	}
	return true
}

// Drag orbits the camera around its target for a horizontal mouse drag
// and pitches it for a vertical one.
func (b Bindings) Drag(dx, dy int) []frameloop.Command {
	var cmds []frameloop.Command
	scale := b.Sensitivity * 0.01
	if dx != 0 {
		cmds = append(cmds, frameloop.Orbit{Angle: -float32(dx) * scale})
	}
	if dy != 0 {
		cmds = append(cmds, frameloop.Pitch{Amount: float32(dy) * scale})
	}
	return cmds
}
