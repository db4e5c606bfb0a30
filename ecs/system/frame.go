package system

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

// Frame is the transient state passed between the systems of one update.
// It is rebuilt every frame and never outlives it.
type Frame struct {
	Dt   float32
	Time float32
	// SinceLiquidChange is the time elapsed since the level or its liquid
	// last changed.
	SinceLiquidChange float32

	// Order lists pickup entities by ground-movement priority: lowest
	// gravity-relative height first, ties by ID.
	Order []ecs.Entity
	// Motion is the displacement of each pickup during this frame.
	Motion map[*component.Pickup]mgl32.Vec3
	// Respawned is set when any pickup respawned; overlaps must be resolved
	// again after the frame.
	Respawned bool

	byInstance map[*trile.Instance]*component.Pickup
}

func NewFrame(dt, now, sinceLiquidChange float32) *Frame {
	return &Frame{
		Dt:                dt,
		Time:              now,
		SinceLiquidChange: sinceLiquidChange,
		Motion:            make(map[*component.Pickup]mgl32.Vec3),
		byInstance:        make(map[*trile.Instance]*component.Pickup),
	}
}

// AddMotion accumulates a displacement for p.
func (f *Frame) AddMotion(p *component.Pickup, delta mgl32.Vec3) {
	f.Motion[p] = f.Motion[p].Add(delta)
}

// PickupOf returns the pickup backed by inst.
func (f *Frame) PickupOf(inst *trile.Instance) (*component.Pickup, bool) {
	if f == nil || inst == nil {
		return nil, false
	}
	p, ok := f.byInstance[inst]
	return p, ok
}

// Pickups returns the ordered pickups of the frame.
func (f *Frame) Pickups(w *ecs.World) []*component.Pickup {
	out := make([]*component.Pickup, 0, len(f.Order))
	for _, e := range f.Order {
		if p, ok := ecs.Get(w, e, component.PickupComponent.Kind()); ok {
			out = append(out, p)
		}
	}
	return out
}

// OrderSystem builds the frame order and the instance index.
type OrderSystem struct {
	env *Env
}

func NewOrderSystem(env *Env) *OrderSystem {
	return &OrderSystem{env: env}
}

func (s *OrderSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil {
		return
	}
	f := s.env.Frame
	gs := s.env.gravitySign()

	type entry struct {
		e ecs.Entity
		p *component.Pickup
		h float32
	}
	var entries []entry
	ecs.ForEach(w, component.PickupComponent.Kind(), func(e ecs.Entity, p *component.Pickup) {
		if p.Stale() {
			return
		}
		entries = append(entries, entry{e: e, p: p, h: p.Center()[1] * gs})
		f.byInstance[p.Instance] = p
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].h != entries[j].h {
			return entries[i].h < entries[j].h
		}
		return entries[i].p.ID < entries[j].p.ID
	})

	f.Order = f.Order[:0]
	for _, en := range entries {
		f.Order = append(f.Order, en.e)
	}
}

// SortByID orders pickups by their stable instance ID.
func SortByID(ps []*component.Pickup) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

type deferredCall struct {
	at  float32
	seq int
	fn  func()
}

// Deferred holds callbacks scheduled against future frames. It replaces
// blocking waits for glitch and fade effects.
type Deferred struct {
	now   float32
	seq   int
	calls []deferredCall
}

// After schedules fn to run on the first frame at least d seconds from now.
func (d *Deferred) After(delay float32, fn func()) {
	if d == nil || fn == nil {
		return
	}
	d.seq++
	d.calls = append(d.calls, deferredCall{at: d.now + delay, seq: d.seq, fn: fn})
}

// RunDue advances the clock to now and runs every callback that became due,
// in schedule order.
func (d *Deferred) RunDue(now float32) int {
	if d == nil {
		return 0
	}
	d.now = now
	var due, pending []deferredCall
	for _, c := range d.calls {
		if c.at <= now {
			due = append(due, c)
		} else {
			pending = append(pending, c)
		}
	}
	d.calls = pending
	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, c := range due {
		c.fn()
	}
	return len(due)
}

func (d *Deferred) Len() int {
	if d == nil {
		return 0
	}
	return len(d.calls)
}

// Clear drops every pending callback.
func (d *Deferred) Clear() {
	if d != nil {
		d.calls = nil
	}
}
