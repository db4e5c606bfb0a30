package system

import (
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
)

// IntegrateSystem runs the external integrator over every independently
// simulated pickup in frame order and starts push chains from drivers
// blocked by another pickup.
type IntegrateSystem struct {
	env *Env
}

func NewIntegrateSystem(env *Env) *IntegrateSystem {
	return &IntegrateSystem{env: env}
}

func (s *IntegrateSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil || s.env.Integrator == nil {
		return
	}
	f := s.env.Frame
	carried := s.env.carried()

	for _, p := range f.Pickups(w) {
		st := p.Physics()
		if st == nil || p.Removed || st.Paused || st.Vanished || p.Instance.Hidden || p.Follows() {
			continue
		}
		if p.Instance == carried {
			continue
		}

		before := p.Center()
		velocity := st.Velocity
		s.env.Integrator.Advance(st, st.Puppet, false)
		f.AddMotion(p, p.Center().Sub(before))

		if st.Puppet || !st.WallCollision.Collided {
			continue
		}
		side := s.env.Camera.Viewpoint().Side()
		push := side.Mul(velocity.Dot(side))
		if push.Len() <= common.Epsilon {
			continue
		}
		PropagatePush(s.env, p, push)
	}
}
