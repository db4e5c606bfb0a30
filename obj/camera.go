package obj

import (
	"github.com/milk9111/trileshift/common"
)

// Camera is an orthographic camera with quarter-turn rotation. Its focus
// follows a target with exponential smoothing.
type Camera struct {
	PosX float32
	PosY float32

	vp         common.Viewpoint
	viewHeight float32
	// smoothing factor (0..1). higher -> faster follow. e.g. 0.15
	smooth float32
}

// NewCamera creates a front-facing camera seeing viewHeight world units
// vertically.
func NewCamera(viewHeight float32) *Camera {
	return &Camera{vp: common.ViewFront, viewHeight: viewHeight, smooth: 0.15}
}

func (c *Camera) Viewpoint() common.Viewpoint {
	return c.vp
}

func (c *Camera) SetViewpoint(vp common.Viewpoint) {
	c.vp = vp
}

// Rotate turns the camera by quarter turns and returns the new viewpoint.
func (c *Camera) Rotate(steps int) common.Viewpoint {
	c.vp = c.vp.Rotate(steps)
	return c.vp
}

func (c *Camera) ViewHeight() float32 {
	return c.viewHeight
}

func (c *Camera) SetViewHeight(h float32) {
	if h < 0 {
		h = 0
	}
	c.viewHeight = h
}

func (c *Camera) SetSmooth(f float32) {
	c.smooth = common.Clamp(f, 0, 1)
}

// Follow moves the focus toward the screen projection of a world position.
func (c *Camera) Follow(x, y float32) {
	if c.smooth <= 0 {
		c.PosX, c.PosY = x, y
		return
	}
	c.PosX = common.Lerp(c.PosX, x, c.smooth)
	c.PosY = common.Lerp(c.PosY, y, c.smooth)
}

// Gravity holds the signed gravity factor.
type Gravity struct {
	sign float32
}

func NewGravity() *Gravity {
	return &Gravity{sign: 1}
}

func (g *Gravity) Sign() float32 {
	return g.sign
}

// Flip inverts gravity and returns the new sign.
func (g *Gravity) Flip() float32 {
	g.sign = -g.sign
	return g.sign
}
