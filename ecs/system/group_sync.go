package system

import (
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
)

// GroupSyncSystem propagates the driver's motion to every other member of
// a rigid group, after integration.
type GroupSyncSystem struct {
	env *Env
}

func NewGroupSyncSystem(env *Env) *GroupSyncSystem {
	return &GroupSyncSystem{env: env}
}

func (s *GroupSyncSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil {
		return
	}
	f := s.env.Frame

	ecs.ForEach(w, component.GroupComponent.Kind(), func(_ ecs.Entity, g *component.Group) {
		if g.MidAir {
			handOff(g)
		}

		d := g.Driver()
		dst := d.Physics()
		if dst == nil {
			return
		}
		dm := f.Motion[d]
		for _, m := range g.Members {
			st := m.Physics()
			if m == d || st == nil {
				continue
			}
			m.Move(dm.Sub(f.Motion[m]))
			f.Motion[m] = dm
			st.Background = dst.Background
			st.Velocity = dst.Velocity
			// The driver floats for the whole body. Grounded stays per member
			// so the hand-off can find the member that touched down.
			st.Floating = dst.Floating
			// Paused members are never integrated and rest where the driver rests.
			if st.Paused {
				st.Grounded = dst.Grounded
			}
		}

		supported := false
		for _, m := range g.Members {
			if st := m.Physics(); st != nil && !st.Paused && st.Supported() {
				supported = true
				break
			}
		}
		if !supported {
			g.MidAir = true
		}
	})
}

// handOff gives control to the first grounded member when the group lands.
// SetDriver flips every puppet flag at once, so no frame sees zero or two
// drivers.
func handOff(g *component.Group) {
	for _, m := range g.Members {
		st := m.Physics()
		if st == nil || st.Paused || !st.Grounded {
			continue
		}
		if st.Puppet {
			g.SetDriver(m)
		}
		g.MidAir = false
		return
	}
}
