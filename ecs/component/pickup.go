package component

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/trile"
)

// Pickup is the per-instance simulation record the generic integrator does
// not own.
type Pickup struct {
	// ID is the backing instance id, used as the deterministic tie-break key.
	ID       int
	Instance *trile.Instance
	Group    *Group

	Decorations []*trile.Decoration

	LastVelocity       mgl32.Vec3
	LastGroundedCenter mgl32.Vec3
	OriginalCenter     mgl32.Vec3

	// FlightApex is the highest gravity-relative height reached while
	// airborne.
	FlightApex  float32
	WasGrounded bool

	FloatMalus   float32
	FloatSeed    float32
	TouchesWater bool

	// VisibleOverlapper is the driver this pickup mirrors while both share a
	// screen-space cell. Nil when the pickup is simulated on its own.
	VisibleOverlapper *Pickup

	// Removed is set once the backing instance was permanently cleared.
	Removed bool
}

var PickupComponent = NewComponent[Pickup]()

// NewPickup builds the record for an instance at its authored position.
func NewPickup(inst *trile.Instance, gravitySign float32) *Pickup {
	return &Pickup{
		ID:                 inst.ID,
		Instance:           inst,
		OriginalCenter:     inst.Center,
		LastGroundedCenter: inst.Center,
		FlightApex:         inst.Center[1] * gravitySign,
	}
}

// Physics returns the backing physics state, nil once it was cleared.
func (p *Pickup) Physics() *trile.PhysicsState {
	if p == nil || p.Instance == nil {
		return nil
	}
	return p.Instance.Physics
}

// Stale reports whether the backing instance lost its physics state.
func (p *Pickup) Stale() bool {
	return p.Physics() == nil
}

// Center returns the backing instance center.
func (p *Pickup) Center() mgl32.Vec3 {
	return p.Instance.Center
}

// Move translates the backing instance.
func (p *Pickup) Move(delta mgl32.Vec3) {
	p.Instance.Center = p.Instance.Center.Add(delta)
}

// Follows reports whether the pickup copies a visible overlapper.
func (p *Pickup) Follows() bool {
	return p.VisibleOverlapper != nil
}

// Driver resolves the overlapper chain to the pickup actually simulated.
func (p *Pickup) Driver() *Pickup {
	seen := 0
	d := p
	for d.VisibleOverlapper != nil && seen < 64 {
		d = d.VisibleOverlapper
		seen++
	}
	return d
}

// TrackDecorations moves attached decorations with the pickup.
func (p *Pickup) TrackDecorations() {
	for _, d := range p.Decorations {
		if d != nil {
			d.Position = p.Instance.Center.Add(d.Offset)
		}
	}
}
