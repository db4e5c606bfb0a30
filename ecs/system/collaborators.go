package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/prefabs"
	"github.com/milk9111/trileshift/trile"
)

// Integrator advances one physics state against static level geometry,
// updating its grounded and wall-collision results in place.
type Integrator interface {
	// Advance moves st by its velocity for one step. Simple integration only
	// detects grounding. allowStaticPush lets the state shove static blocks.
	Advance(st *trile.PhysicsState, simple, allowStaticPush bool)
	// Damping is the velocity damping the integrator applies per step.
	Damping() float32
}

// Level is the owner of the block grid.
type Level interface {
	Instances() []*trile.Instance
	Decorations(inst *trile.Instance) []*trile.Decoration
	// UpdateInstance pushes the latest transform into the renderable grid.
	UpdateInstance(inst *trile.Instance)
	// ClearTrile removes an instance permanently and drops its physics state.
	ClearTrile(inst *trile.Instance)
	RestoreTrile(inst *trile.Instance)
	InstanceAt(cell mgl32.Vec3) (*trile.Instance, bool)
	Liquid() (trile.Liquid, float32)
	Loops() bool
	Size() mgl32.Vec3
	// BreakSound returns the cue played when a fragile kind breaks.
	BreakSound(kind trile.Kind) (string, bool)
	Loading() bool
}

type Camera interface {
	Viewpoint() common.Viewpoint
	// ViewHeight is the vertical extent of the view in world units.
	ViewHeight() float32
}

type Gravity interface {
	// Sign is 1 for normal gravity and -1 when flipped.
	Sign() float32
}

type Player interface {
	Grounded() bool
	// Ground lists the instances the player stands on.
	Ground() []*trile.Instance
	// Carried is the instance held by the player, nil when empty-handed.
	Carried() *trile.Instance
	FreeFalling() bool
}

// Env is shared by every pickup system of one host.
type Env struct {
	Integrator Integrator
	Level      Level
	Camera     Camera
	Gravity    Gravity
	Player     Player

	Tuning *prefabs.Tuning
	Malus  prefabs.MalusFunc

	Deferred *Deferred
	Frame    *Frame
}

func (env *Env) gravitySign() float32 {
	if env.Gravity == nil {
		return 1
	}
	if s := env.Gravity.Sign(); s < 0 {
		return -1
	}
	return 1
}

func (env *Env) carried() *trile.Instance {
	if env.Player == nil {
		return nil
	}
	return env.Player.Carried()
}

func (env *Env) damping() float32 {
	d := env.Integrator.Damping()
	if d == 0 {
		return 1
	}
	return d
}
