package ecs

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/trile"
)

const collisionTypeSolid cp.CollisionType = 1

// skin keeps resolved boxes from starting the next step in contact.
const skin = 1e-4

// Geometry is the source of static blocks.
type Geometry interface {
	Instances() []*trile.Instance
}

// PhysicsConfig tunes the reference integrator.
type PhysicsConfig struct {
	Gravity      float32
	MaxFallSpeed float32
	Step         float32
	Damping      float32
}

// PhysicsWorld is a screen-plane integrator. Under an orthographic view the
// depth axis is collapsed, so static blocks are projected into a Chipmunk
// space used as a broad phase and movable instances collide with each other
// by their projected boxes.
type PhysicsWorld struct {
	geometry Geometry
	cfg      PhysicsConfig
	vp       common.Viewpoint
	gsign    float32

	space  *cp.Space
	static int

	tracked []*trile.Instance
}

// NewPhysicsWorld indexes the solid blocks of geometry for the front view.
func NewPhysicsWorld(geometry Geometry, cfg PhysicsConfig) *PhysicsWorld {
	if cfg.Step <= 0 {
		cfg.Step = 1.0 / 60.0
	}
	if cfg.MaxFallSpeed <= 0 {
		cfg.MaxFallSpeed = 20
	}
	pw := &PhysicsWorld{geometry: geometry, cfg: cfg, gsign: 1}
	pw.buildStaticShapes()
	return pw
}

// Space returns the underlying Chipmunk space.
func (pw *PhysicsWorld) Space() *cp.Space {
	if pw == nil {
		return nil
	}
	return pw.space
}

// StaticShapes reports how many merged static boxes the current view uses.
func (pw *PhysicsWorld) StaticShapes() int {
	if pw == nil {
		return 0
	}
	return pw.static
}

// SetViewpoint re-projects static geometry for vp.
func (pw *PhysicsWorld) SetViewpoint(vp common.Viewpoint) {
	if pw == nil || pw.vp == vp {
		return
	}
	pw.vp = vp
	pw.buildStaticShapes()
}

func (pw *PhysicsWorld) SetGravitySign(sign float32) {
	if sign < 0 {
		pw.gsign = -1
		return
	}
	pw.gsign = 1
}

// Rebuild re-indexes static geometry and forgets every tracked instance,
// for when the level was rebuilt.
func (pw *PhysicsWorld) Rebuild() {
	pw.tracked = nil
	pw.buildStaticShapes()
}

// SetConfig replaces the step parameters. Zero step and fall speed keep the
// current values.
func (pw *PhysicsWorld) SetConfig(cfg PhysicsConfig) {
	if cfg.Step <= 0 {
		cfg.Step = pw.cfg.Step
	}
	if cfg.MaxFallSpeed <= 0 {
		cfg.MaxFallSpeed = pw.cfg.MaxFallSpeed
	}
	pw.cfg = cfg
}

// Track registers the movable instances that block each other.
func (pw *PhysicsWorld) Track(insts ...*trile.Instance) {
	for _, inst := range insts {
		if inst != nil && inst.Physics != nil {
			pw.tracked = append(pw.tracked, inst)
		}
	}
	sort.Slice(pw.tracked, func(i, j int) bool { return pw.tracked[i].ID < pw.tracked[j].ID })
}

// Untrack drops every movable instance.
func (pw *PhysicsWorld) Untrack() {
	pw.tracked = nil
}

func (pw *PhysicsWorld) Damping() float32 {
	return pw.cfg.Damping
}

// Advance moves st by one step: vertically first, then along the screen side
// axis. Simple integration stops after the vertical move.
func (pw *PhysicsWorld) Advance(st *trile.PhysicsState, simple, allowStaticPush bool) {
	if pw == nil || st == nil || st.Instance == nil {
		return
	}
	inst := st.Instance
	step := pw.cfg.Step
	gs := pw.gsign

	if !st.Floating {
		st.Velocity[1] -= pw.cfg.Gravity * gs * step
		if st.Velocity[1]*gs < -pw.cfg.MaxFallSpeed {
			st.Velocity[1] = -pw.cfg.MaxFallSpeed * gs
		}
	}
	if d := pw.cfg.Damping; d > 0 && d < 1 {
		st.Velocity[0] *= d
		st.Velocity[2] *= d
	}

	st.ForgetGround()
	st.WallCollision = trile.Collision{}

	dy := st.Velocity[1] * step
	moved, hit, other := pw.sweep(inst, axisUp, dy, false)
	inst.Center[1] += moved
	if hit {
		if dy*gs < 0 {
			st.Grounded = true
			st.Ground = trile.Ground{First: other, Static: other == nil}
		}
		st.Velocity[1] = 0
	}

	if simple {
		return
	}

	side := pw.vp.Side()
	vs := st.Velocity.Dot(side)
	ds := vs * step
	if ds == 0 {
		return
	}
	moved, hit, other = pw.sweep(inst, axisSide, ds, allowStaticPush)
	inst.Center = inst.Center.Add(side.Mul(moved))
	if hit {
		st.WallCollision = trile.Collision{
			Collided: true,
			Instance: other,
			Normal:   side.Mul(-common.Sign(ds)),
		}
		st.Velocity = st.Velocity.Sub(side.Mul(vs))
	}
}

type axis int

const (
	axisSide axis = iota
	axisUp
)

type box struct {
	l, b, r, t float64
}

func (pw *PhysicsWorld) screenBox(inst *trile.Instance) box {
	s, y := pw.vp.Screen(inst.Center)
	hs := math.Abs(float64(inst.Half().Dot(pw.vp.Side())))
	hy := float64(inst.Half()[1])
	return box{l: float64(s) - hs, b: float64(y) - hy, r: float64(s) + hs, t: float64(y) + hy}
}

func overlaps(a, b box) bool {
	return a.l < b.r-skin && a.r > b.l+skin && a.b < b.t-skin && a.t > b.b+skin
}

// sweep moves inst's box by delta along ax and returns the distance it can
// travel, whether it was blocked and the blocking movable instance (nil for
// static geometry).
func (pw *PhysicsWorld) sweep(inst *trile.Instance, ax axis, delta float32, ignoreStatic bool) (float32, bool, *trile.Instance) {
	if delta == 0 {
		return 0, false, nil
	}
	from := pw.screenBox(inst)
	d := float64(delta)
	swept := from
	switch {
	case ax == axisSide && d > 0:
		swept.r += d
	case ax == axisSide:
		swept.l += d
	case d > 0:
		swept.t += d
	default:
		swept.b += d
	}

	best := d
	hit := false
	var blocker *trile.Instance

	consider := func(o box, other *trile.Instance) {
		if overlaps(from, o) || !overlaps(swept, o) {
			return
		}
		var gap float64
		switch {
		case ax == axisSide && d > 0:
			gap = o.l - from.r
		case ax == axisSide:
			gap = o.r - from.l
		case d > 0:
			gap = o.b - from.t
		default:
			gap = o.t - from.b
		}
		if !hit || math.Abs(gap) < math.Abs(best) {
			best = gap
			hit = true
			blocker = other
		}
	}

	if !ignoreStatic && pw.space != nil {
		bb := cp.BB{L: swept.l, B: swept.b, R: swept.r, T: swept.t}
		pw.space.BBQuery(bb, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
			sb := shape.BB()
			consider(box{l: sb.L, b: sb.B, r: sb.R, t: sb.T}, nil)
		}, nil)
	}

	for _, o := range pw.tracked {
		if o == inst || o.Hidden || o.Physics == nil || o.Physics.Vanished || o.Physics.Paused {
			continue
		}
		if inst.GroupID != 0 && o.GroupID == inst.GroupID {
			continue
		}
		consider(pw.screenBox(o), o)
	}

	if !hit {
		return delta, false, nil
	}
	if d > 0 {
		best = math.Min(d, math.Max(0, best-skin))
	} else {
		best = math.Max(d, math.Min(0, best+skin))
	}
	return float32(best), true, blocker
}

// buildStaticShapes projects every solid block to the screen plane and
// merges each row into runs so the space holds few boxes.
func (pw *PhysicsWorld) buildStaticShapes() {
	pw.space = cp.NewSpace()
	pw.static = 0
	if pw.geometry == nil {
		return
	}

	type cell struct{ s, y int }
	cells := make(map[cell]bool)
	for _, inst := range pw.geometry.Instances() {
		if inst == nil || inst.Kind != trile.KindSolid {
			continue
		}
		b := pw.screenBox(inst)
		cells[cell{s: int(math.Floor(b.l + 0.5)), y: int(math.Floor(b.b + 0.5))}] = true
	}

	rows := make(map[int][]int)
	for c := range cells {
		rows[c.y] = append(rows[c.y], c.s)
	}
	for y, xs := range rows {
		sort.Ints(xs)
		start := xs[0]
		prev := xs[0]
		flush := func(end int) {
			bb := cp.BB{L: float64(start), B: float64(y), R: float64(end + 1), T: float64(y + 1)}
			shape := cp.NewBox2(pw.space.StaticBody, bb, 0)
			shape.SetCollisionType(collisionTypeSolid)
			pw.space.AddShape(shape)
			pw.static++
		}
		for _, x := range xs[1:] {
			if x != prev+1 {
				flush(prev)
				start = x
			}
			prev = x
		}
		flush(prev)
	}
}
