package frameloop

import (
	"fmt"

	"go.uber.org/zap"
)

// Command is a UI action applied on the consumer side.
type Command interface {
	apply(l *Loop) error
}

// Camera navigation. Distances are world units, angles radians.
type (
	Dolly  struct{ Distance float32 }
	Strafe struct{ Distance float32 }
	Yaw    struct{ Amount float32 }
	Pitch  struct{ Amount float32 }
	Roll   struct{ Amount float32 }
	Orbit  struct{ Angle float32 }
	SetFov struct{ FovY float32 }
)

// Renderer settings.
type (
	SetGamma      struct{ Gamma float32 }
	ToggleVsync   struct{}
	SetContinuous struct{ Continuous bool }
	SetUnify      struct{ On bool }
	Screenshot    struct{}
)

func (c Dolly) apply(l *Loop) error  { return l.rig.Dolly(c.Distance) }
func (c Strafe) apply(l *Loop) error { return l.rig.Strafe(c.Distance) }
func (c Yaw) apply(l *Loop) error    { return l.rig.Yaw(c.Amount) }
func (c Pitch) apply(l *Loop) error  { return l.rig.Pitch(c.Amount) }
func (c Roll) apply(l *Loop) error   { return l.rig.Roll(c.Amount) }
func (c Orbit) apply(l *Loop) error  { return l.rig.Orbit(c.Angle) }
func (c SetFov) apply(l *Loop) error { return l.rig.SetFov(c.FovY) }

func (c SetGamma) apply(l *Loop) error {
	return l.updateSettings(func(s *Settings) { s.Gamma = c.Gamma })
}

func (ToggleVsync) apply(l *Loop) error {
	return l.updateSettings(func(s *Settings) { s.VSync = !s.VSync })
}

func (c SetContinuous) apply(l *Loop) error {
	return l.updateSettings(func(s *Settings) { s.Continuous = c.Continuous })
}

func (c SetUnify) apply(l *Loop) error {
	return l.updateSettings(func(s *Settings) { s.UnifyNormals = c.On })
}

func (Screenshot) apply(l *Loop) error {
	if l.opts.Screenshot == nil {
		return nil
	}
	f, ok := l.frame.CopyOut()
	if !ok {
		return ErrNoFrame
	}
	return l.opts.Screenshot(f, l.Settings())
}

// Apply runs cmd and requests a repaint when it changed the camera or a
// setting. A rejected command leaves camera and settings untouched.
func (l *Loop) Apply(cmd Command) error {
	if err := cmd.apply(l); err != nil {
		l.log.Debug("command rejected", zap.String("command", fmt.Sprintf("%T", cmd)), zap.Error(err))
		return err
	}
	if _, ok := cmd.(Screenshot); !ok {
		l.RequestRepaint()
	}
	return nil
}
