package common

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Viewpoint is one of the fixed camera angles. The four orthographic ones
// collapse one horizontal world axis into depth.
type Viewpoint int

const (
	ViewFront Viewpoint = iota
	ViewRight
	ViewBack
	ViewLeft
	ViewPerspective
)

var Up = mgl32.Vec3{0, 1, 0}

func (v Viewpoint) String() string {
	switch v {
	case ViewFront:
		return "front"
	case ViewRight:
		return "right"
	case ViewBack:
		return "back"
	case ViewLeft:
		return "left"
	case ViewPerspective:
		return "perspective"
	}
	return fmt.Sprintf("viewpoint(%d)", int(v))
}

// ParseViewpoint is the inverse of String.
func ParseViewpoint(s string) (Viewpoint, error) {
	for v := ViewFront; v <= ViewPerspective; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return ViewFront, fmt.Errorf("common: unknown viewpoint %q", s)
}

func (v Viewpoint) IsOrthographic() bool {
	return v >= ViewFront && v <= ViewLeft
}

// Forward is the direction the camera looks along. For the perspective view
// it falls back to the front direction.
func (v Viewpoint) Forward() mgl32.Vec3 {
	switch v {
	case ViewRight:
		return mgl32.Vec3{-1, 0, 0}
	case ViewBack:
		return mgl32.Vec3{0, 0, 1}
	case ViewLeft:
		return mgl32.Vec3{1, 0, 0}
	}
	return mgl32.Vec3{0, 0, -1}
}

// Side is the screen-right direction.
func (v Viewpoint) Side() mgl32.Vec3 {
	return v.Forward().Cross(Up)
}

// DepthMask selects the world axis collapsed by the projection.
func (v Viewpoint) DepthMask() mgl32.Vec3 {
	return AbsVec3(v.Forward())
}

// ScreenMask selects the two world axes visible on screen.
func (v Viewpoint) ScreenMask() mgl32.Vec3 {
	return AbsVec3(v.Side()).Add(Up)
}

// Project masks p to the screen plane, dropping the depth component.
func (v Viewpoint) Project(p mgl32.Vec3) mgl32.Vec3 {
	return MulVec3(p, v.ScreenMask())
}

// Screen returns p in 2D screen coordinates (side, up).
func (v Viewpoint) Screen(p mgl32.Vec3) (float32, float32) {
	return p.Dot(v.Side()), p[1]
}

// Depth returns the projection of p on the forward axis.
func (v Viewpoint) Depth(p mgl32.Vec3) float32 {
	return p.Dot(v.Forward())
}

// Rotate turns the viewpoint by quarter turns (positive is clockwise seen
// from above). Perspective stays perspective.
func (v Viewpoint) Rotate(steps int) Viewpoint {
	if !v.IsOrthographic() {
		return v
	}
	n := (int(v) + steps) % 4
	if n < 0 {
		n += 4
	}
	return Viewpoint(n)
}
