package system

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

// BreakageSystem tracks flight apexes, breaks fragile pickups on hard
// landings and marks pickups that fell out of the world. Every vanished
// pickup leaves the pass flagged ShouldRespawn unless it was removed.
type BreakageSystem struct {
	env *Env
	// missingSound remembers kinds already reported without a break cue.
	missingSound map[trile.Kind]bool
}

func NewBreakageSystem(env *Env) *BreakageSystem {
	return &BreakageSystem{env: env, missingSound: make(map[trile.Kind]bool)}
}

func (s *BreakageSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil {
		return
	}
	f := s.env.Frame
	gs := s.env.gravitySign()

	var halfView float32
	if s.env.Camera != nil {
		halfView = s.env.Camera.ViewHeight() / 2
	}
	loops := false
	var levelHeight float32
	if s.env.Level != nil {
		loops = s.env.Level.Loops()
		levelHeight = s.env.Level.Size()[1]
	}
	dustThreshold := float32(4)
	if s.env.Tuning != nil {
		dustThreshold = s.env.Tuning.Breakage.DustThreshold
	}

	for _, e := range f.Order {
		p, ok := ecs.Get(w, e, component.PickupComponent.Kind())
		if !ok {
			continue
		}
		st := p.Physics()
		if st == nil || p.Removed || st.Vanished {
			continue
		}

		if loops && levelHeight > 0 {
			s.wrap(p, levelHeight)
		}

		h := p.Center()[1] * gs
		// Members of a resting group are carried by it even when they touch
		// nothing themselves.
		resting := p.Group != nil && !p.Group.MidAir
		if !st.Supported() && !resting {
			if h > p.FlightApex {
				p.FlightApex = h
			}
			if !loops && halfView > 0 && (p.LastGroundedCenter[1]-p.Center()[1])*gs > halfView {
				log.Printf("pickups: %v fell out of the world", p.Instance)
				s.vanish(p)
			}
			continue
		}

		if st.Grounded && !p.WasGrounded {
			traits, _ := ecs.Get(w, e, component.TraitsComponent.Kind())
			switch {
			case st.Respawned:
				st.Respawned = false
			case ecs.Has(w, e, component.FragileTagComponent.Kind()) && traits != nil:
				if fall := p.FlightApex - h; fall > traits.BreakHeight {
					s.breakPickup(w, p, traits, fall)
					continue
				}
			default:
				if speed := common.Abs(p.LastVelocity[1]); speed > dustThreshold {
					emitEffect(w, Effect{Kind: EffectDust, At: p.Center(), Intensity: speed, Pickup: p.ID})
				}
			}
		}

		p.FlightApex = h
		p.LastGroundedCenter = p.Center()
	}

	for _, e := range f.Order {
		if p, ok := ecs.Get(w, e, component.PickupComponent.Kind()); ok {
			if st := p.Physics(); st != nil && st.Vanished && !p.Removed {
				st.ShouldRespawn = true
			}
		}
	}
}

func (s *BreakageSystem) breakPickup(w *ecs.World, p *component.Pickup, traits *component.Traits, fall float32) {
	at := p.Center()
	log.Printf("pickups: %v broke after a %.2f fall", p.Instance, fall)
	emitEffect(w, Effect{Kind: EffectExplosion, At: at, Intensity: fall, Pickup: p.ID})

	if cue, ok := s.env.Level.BreakSound(traits.Kind); ok {
		emitSound(w, cue, at)
	} else if !s.missingSound[traits.Kind] {
		s.missingSound[traits.Kind] = true
		log.Printf("pickups: no break sound for %s, skipping", traits.Kind)
	}

	s.vanish(p)
	if !traits.RespawnsOnBreak {
		p.Removed = true
		if p.Group != nil {
			p.Group.Remove(p)
			p.Group = nil
		}
		s.env.Level.ClearTrile(p.Instance)
	}
}

func (s *BreakageSystem) vanish(p *component.Pickup) {
	st := p.Physics()
	st.Vanished = true
	st.Velocity = mgl32.Vec3{}
	p.Instance.Hidden = true
	if s.env.Level != nil {
		s.env.Level.UpdateInstance(p.Instance)
	}
}

// wrap keeps looping levels continuous: leaving through the bottom enters
// from the top and the other way round.
func (s *BreakageSystem) wrap(p *component.Pickup, height float32) {
	c := p.Center()
	if c[1] >= 0 && c[1] < height {
		return
	}
	y := common.Wrap(c[1], height)
	delta := y - c[1]
	p.Instance.Center[1] = y
	p.LastGroundedCenter[1] += delta
	p.FlightApex += delta * s.env.gravitySign()
	for _, d := range p.Decorations {
		if d != nil {
			d.Position[1] += delta
		}
	}
}
