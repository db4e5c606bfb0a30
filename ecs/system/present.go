package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/ecs"
)

// PresentSystem pushes moved pickups into the level grid, moves their
// decorations and records the values the next frame compares against.
type PresentSystem struct {
	env *Env
}

func NewPresentSystem(env *Env) *PresentSystem {
	return &PresentSystem{env: env}
}

func (s *PresentSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil {
		return
	}
	f := s.env.Frame
	for _, p := range f.Pickups(w) {
		st := p.Physics()
		if st == nil {
			continue
		}
		if f.Motion[p] != (mgl32.Vec3{}) {
			p.TrackDecorations()
			if s.env.Level != nil {
				s.env.Level.UpdateInstance(p.Instance)
			}
		}
		p.WasGrounded = st.Supported()
		p.LastVelocity = st.Velocity
	}
}
