package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/prefabs"
	"github.com/milk9111/trileshift/trile"
)

const testDt = float32(1.0 / 60.0)

// fakeIntegrator moves states by velocity with a flat floor. Along the side
// axis it reports the first pickup directly ahead as a wall collision
// without clamping, which is enough to drive push chains.
type fakeIntegrator struct {
	gravity float32
	floor   float32
	damping float32
	vp      common.Viewpoint
	insts   []*trile.Instance
	calls   int
}

func newFakeIntegrator() *fakeIntegrator {
	return &fakeIntegrator{gravity: 30, floor: 0, damping: 1}
}

func (f *fakeIntegrator) Damping() float32 { return f.damping }

func (f *fakeIntegrator) Advance(st *trile.PhysicsState, simple, _ bool) {
	f.calls++
	inst := st.Instance
	if !st.Floating {
		st.Velocity[1] -= f.gravity * testDt
	}
	st.ForgetGround()
	st.WallCollision = trile.Collision{}

	inst.Center[1] += st.Velocity[1] * testDt
	if inst.Bottom() <= f.floor {
		inst.Center[1] = f.floor + inst.Size[1]/2
		st.Velocity[1] = 0
		st.Grounded = true
		st.Ground = trile.Ground{Static: true}
	}
	if simple {
		return
	}

	side := f.vp.Side()
	ds := st.Velocity.Dot(side) * testDt
	if ds == 0 {
		return
	}
	inst.Center = inst.Center.Add(side.Mul(ds))
	dir := common.Sign(ds)
	for _, o := range f.insts {
		if o == inst || o.Physics == nil {
			continue
		}
		rel := o.Center.Sub(inst.Center)
		along := rel.Dot(side) * dir
		if along <= 0 || along > 1.01 {
			continue
		}
		if common.Abs(rel[1]) >= 0.5 || common.Abs(f.vp.Depth(rel)) >= 0.5 {
			continue
		}
		st.WallCollision = trile.Collision{Collided: true, Instance: o, Normal: side.Mul(-dir)}
		return
	}
}

type fakeLevel struct {
	insts       []*trile.Instance
	liquid      trile.Liquid
	height      float32
	loops       bool
	size        mgl32.Vec3
	breakSounds map[trile.Kind]string
	loading     bool

	updated  map[*trile.Instance]int
	cleared  []*trile.Instance
	restored []*trile.Instance
}

func newFakeLevel() *fakeLevel {
	return &fakeLevel{
		size:        mgl32.Vec3{32, 32, 32},
		breakSounds: map[trile.Kind]string{},
		updated:     map[*trile.Instance]int{},
	}
}

func (l *fakeLevel) Instances() []*trile.Instance                   { return l.insts }
func (l *fakeLevel) Decorations(*trile.Instance) []*trile.Decoration { return nil }
func (l *fakeLevel) UpdateInstance(inst *trile.Instance)            { l.updated[inst]++ }
func (l *fakeLevel) ClearTrile(inst *trile.Instance) {
	l.cleared = append(l.cleared, inst)
	inst.Physics = nil
}
func (l *fakeLevel) RestoreTrile(inst *trile.Instance) { l.restored = append(l.restored, inst) }
func (l *fakeLevel) InstanceAt(cell mgl32.Vec3) (*trile.Instance, bool) {
	for _, inst := range l.insts {
		if inst.Cell() == cell {
			return inst, true
		}
	}
	return nil, false
}
func (l *fakeLevel) Liquid() (trile.Liquid, float32) { return l.liquid, l.height }
func (l *fakeLevel) Loops() bool                     { return l.loops }
func (l *fakeLevel) Size() mgl32.Vec3                { return l.size }
func (l *fakeLevel) BreakSound(kind trile.Kind) (string, bool) {
	cue, ok := l.breakSounds[kind]
	return cue, ok
}
func (l *fakeLevel) Loading() bool { return l.loading }

type fakeCamera struct {
	vp     common.Viewpoint
	height float32
}

func (c *fakeCamera) Viewpoint() common.Viewpoint { return c.vp }
func (c *fakeCamera) ViewHeight() float32         { return c.height }

type fakeGravity float32

func (g fakeGravity) Sign() float32 { return float32(g) }

type fakePlayer struct {
	grounded    bool
	ground      []*trile.Instance
	carried     *trile.Instance
	freeFalling bool
}

func (p *fakePlayer) Grounded() bool            { return p.grounded }
func (p *fakePlayer) Ground() []*trile.Instance { return p.ground }
func (p *fakePlayer) Carried() *trile.Instance  { return p.carried }
func (p *fakePlayer) FreeFalling() bool         { return p.freeFalling }

type harness struct {
	w      *ecs.World
	env    *Env
	integ  *fakeIntegrator
	level  *fakeLevel
	camera *fakeCamera
	player *fakePlayer

	now   float32
	since float32
}

func newHarness() *harness {
	tun := prefabs.DefaultTuning()
	h := &harness{
		w:      ecs.NewWorld(),
		integ:  newFakeIntegrator(),
		level:  newFakeLevel(),
		camera: &fakeCamera{vp: common.ViewFront, height: 10},
		player: &fakePlayer{},
		since:  100,
	}
	h.env = &Env{
		Integrator: h.integ,
		Level:      h.level,
		Camera:     h.camera,
		Gravity:    fakeGravity(1),
		Player:     h.player,
		Tuning:     &tun,
		Malus:      prefabs.LinearMalus(tun.Buoyancy.MalusPerSupporter),
		Deferred:   &Deferred{},
	}
	return h
}

// add places a pickup of kind with its center at center.
func (h *harness) add(id int, kind trile.Kind, center mgl32.Vec3) *component.Pickup {
	inst := trile.NewInstance(id, kind, mgl32.Vec3{})
	inst.Center = center
	h.level.insts = append(h.level.insts, inst)
	h.integ.insts = append(h.integ.insts, inst)

	p := component.NewPickup(inst, 1)
	traits, _ := trile.TraitsFor(kind)
	e := ecs.CreateEntity(h.w)
	_ = ecs.Add(h.w, e, component.PickupComponent.Kind(), p)
	_ = ecs.Add(h.w, e, component.TraitsComponent.Kind(), &component.Traits{Traits: traits, Kind: kind})
	if traits.Fragile {
		_ = ecs.Add(h.w, e, component.FragileTagComponent.Kind(), &component.FragileTag{})
	}
	if traits.Buoyant {
		_ = ecs.Add(h.w, e, component.BuoyantTagComponent.Kind(), &component.BuoyantTag{})
	}
	return p
}

func (h *harness) group(id int, members ...*component.Pickup) *component.Group {
	for _, m := range members {
		m.Instance.GroupID = id
	}
	g := component.NewGroup(id, members)
	e := ecs.CreateEntity(h.w)
	_ = ecs.Add(h.w, e, component.GroupComponent.Kind(), g)
	return g
}

// begin opens a frame and orders the pickups.
func (h *harness) begin() *Frame {
	h.now += testDt
	h.since += testDt
	h.env.Deferred.RunDue(h.now)
	h.env.Frame = NewFrame(testDt, h.now, h.since)
	NewOrderSystem(h.env).Update(h.w)
	return h.env.Frame
}

// step runs one full frame in the host's pass order.
func (h *harness) step() *Frame {
	NewPruneSystem().Update(h.w)
	f := h.begin()
	for _, s := range []ecs.System{
		NewRespawnSystem(h.env),
		NewBuoyancySystem(h.env),
		NewIntegrateSystem(h.env),
		NewGroupSyncSystem(h.env),
		NewOverlapFollowSystem(h.env),
		h.breakage(),
		NewPresentSystem(h.env),
	} {
		s.Update(h.w)
	}
	return f
}

func (h *harness) breakage() *BreakageSystem {
	return NewBreakageSystem(h.env)
}

func (h *harness) resolve() OverlapResult {
	res := ResolveOverlaps(h.w, h.camera.vp, h.env.Tuning.Overlap.Tolerance)
	ApplyOverlaps(h.w, res)
	return res
}

func (h *harness) drain(typ string) []ecs.Event {
	var out []ecs.Event
	for _, evt := range h.w.Events().Drain() {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func drivers(g *component.Group) int {
	n := 0
	for _, m := range g.Members {
		if st := m.Physics(); st != nil && !st.Puppet {
			n++
		}
	}
	return n
}
