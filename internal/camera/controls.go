package camera

import "github.com/Faultbox/rtviewer/pkg/math"

// Navigation helpers. Each one reads and writes the state under the rig's
// writer lock, so a move computed from an old snapshot can never overwrite
// a newer one.

// Dolly moves eye and target together along the view direction.
func (r *Rig) Dolly(distance float32) error {
	return r.update(true, func(s *State) error {
		step := s.ViewAt.Sub(s.ViewFrom).Normalize().Scale(distance)
		s.ViewAt = s.ViewAt.Add(step)
		s.ViewFrom = s.ViewFrom.Add(step)
		return nil
	})
}

// Strafe moves eye and target together sideways. Positive is right.
func (r *Rig) Strafe(distance float32) error {
	return r.update(true, func(s *State) error {
		forward := s.ViewAt.Sub(s.ViewFrom).Normalize()
		step := forward.Cross(s.BasisY).Scale(distance)
		s.ViewAt = s.ViewAt.Add(step)
		s.ViewFrom = s.ViewFrom.Add(step)
		return nil
	})
}

// Yaw swings the target sideways around the eye, keeping its distance.
func (r *Rig) Yaw(amount float32) error {
	return r.update(true, func(s *State) error {
		toTarget := s.ViewAt.Sub(s.ViewFrom)
		dist := toTarget.Length()
		right := toTarget.Normalize().Cross(s.BasisY)

		swung := s.ViewAt.Add(right.Scale(amount)).Sub(s.ViewFrom)
		dir, ok := swung.TryNormalize()
		if !ok {
			return s.degenerate("yaw collapsed the view direction")
		}
		s.ViewAt = s.ViewFrom.Add(dir.Scale(dist))
		return nil
	})
}

// Pitch moves the target along the camera up axis.
func (r *Rig) Pitch(amount float32) error {
	return r.update(true, func(s *State) error {
		s.ViewAt = s.ViewAt.Add(s.BasisY.Scale(amount))
		return nil
	})
}

// Roll tilts the up vector towards the camera right axis.
func (r *Rig) Roll(amount float32) error {
	return r.update(true, func(s *State) error {
		s.Up = s.BasisY.Add(s.BasisX.Scale(amount))
		return nil
	})
}

// Orbit rotates the eye around the target about the world up axis.
// angle is in radians.
func (r *Rig) Orbit(angle float32) error {
	return r.update(true, func(s *State) error {
		q := math.QuatFromAxisAngle(WorldUp, angle)
		offset := q.Rotate(s.ViewFrom.Sub(s.ViewAt))
		s.ViewFrom = s.ViewAt.Add(offset)
		s.Up = q.Rotate(s.Up)
		return nil
	})
}
