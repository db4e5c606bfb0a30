package system

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

// RespawnSystem returns pickups flagged ShouldRespawn to their authored
// origin. It waits while the player is free-falling so nothing reappears on
// top of them or while another block occupies the origin, and respawns a
// rigid group as a whole.
type RespawnSystem struct {
	env *Env
}

func NewRespawnSystem(env *Env) *RespawnSystem {
	return &RespawnSystem{env: env}
}

func (s *RespawnSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil {
		return
	}
	if s.env.Player != nil && s.env.Player.FreeFalling() {
		return
	}

	done := make(map[*component.Pickup]bool)
	for _, p := range s.env.Frame.Pickups(w) {
		st := p.Physics()
		if st == nil || !st.ShouldRespawn || p.Removed || done[p] {
			continue
		}
		if g := p.Group; g != nil {
			if s.blocked(g.Members) {
				continue
			}
			for _, m := range g.Members {
				if !done[m] {
					s.respawn(w, m)
					done[m] = true
				}
			}
			g.MidAir = true
			g.SetDriver(g.Driver())
			continue
		}
		if s.blocked([]*component.Pickup{p}) {
			continue
		}
		s.respawn(w, p)
		done[p] = true
	}
}

// blocked reports whether another visible block sits in the origin cell of
// any of body. The respawn is retried on later frames.
func (s *RespawnSystem) blocked(body []*component.Pickup) bool {
	if s.env.Level == nil {
		return false
	}
	own := make(map[*trile.Instance]bool, len(body))
	for _, m := range body {
		own[m.Instance] = true
	}
	for _, m := range body {
		inst, ok := s.env.Level.InstanceAt(trile.CellOf(m.OriginalCenter))
		if ok && !own[inst] && !inst.Hidden {
			return true
		}
	}
	return false
}

func (s *RespawnSystem) respawn(w *ecs.World, p *component.Pickup) {
	st := p.Physics()
	if st == nil {
		return
	}
	eps := float32(0.002)
	glitch := float32(0.25)
	if s.env.Tuning != nil {
		eps = s.env.Tuning.Respawn.Epsilon
		glitch = s.env.Tuning.Respawn.GlitchDuration
	}
	gs := s.env.gravitySign()

	st.Reset()
	st.Respawned = true

	inst := p.Instance
	inst.Center = p.OriginalCenter.Add(mgl32.Vec3{0, eps * gs, 0})
	inst.Hidden = true

	p.LastVelocity = mgl32.Vec3{}
	p.LastGroundedCenter = inst.Center
	p.FlightApex = inst.Center[1] * gs
	p.WasGrounded = false
	p.FloatMalus = 0
	p.FloatSeed = 0
	p.TouchesWater = false
	p.VisibleOverlapper = nil
	p.TrackDecorations()

	s.env.Frame.Motion[p] = mgl32.Vec3{}
	s.env.Frame.Respawned = true

	if s.env.Level != nil {
		s.env.Level.RestoreTrile(inst)
		s.env.Level.UpdateInstance(inst)
	}
	emitEffect(w, Effect{Kind: EffectGlitch, At: inst.Center, Intensity: glitch, Pickup: p.ID})
	log.Printf("pickups: respawned %v", inst)

	level := s.env.Level
	s.env.Deferred.After(glitch, func() {
		if p.Stale() || p.Instance != inst || p.Physics().Vanished {
			return
		}
		inst.Hidden = false
		if level != nil {
			level.UpdateInstance(inst)
		}
	})
}
