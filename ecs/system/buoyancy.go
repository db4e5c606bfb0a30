package system

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/prefabs"
	"github.com/milk9111/trileshift/trile"
)

// BuoyancySystem drives buoyant pickups through the touching-water and
// floating states before integration. Integrators skip gravity while a
// state is floating.
type BuoyancySystem struct {
	env *Env
}

func NewBuoyancySystem(env *Env) *BuoyancySystem {
	return &BuoyancySystem{env: env}
}

func (s *BuoyancySystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil || s.env.Level == nil {
		return
	}
	f := s.env.Frame
	liquid, height := s.env.Level.Liquid()
	if liquid == trile.LiquidNone {
		for _, e := range f.Order {
			if p, ok := ecs.Get(w, e, component.PickupComponent.Kind()); ok {
				if st := p.Physics(); st != nil {
					st.Floating = false
				}
				p.TouchesWater = false
			}
		}
		return
	}
	if f.Dt <= 0 {
		return
	}

	tun := prefabs.DefaultTuning().Buoyancy
	if s.env.Tuning != nil {
		tun = s.env.Tuning.Buoyancy
	}
	malus := s.env.Malus
	if malus == nil {
		malus = prefabs.LinearMalus(tun.MalusPerSupporter)
	}

	supporters := CountSupporters(s.env)
	carried := s.env.carried()
	snapping := f.SinceLiquidChange < tun.LiquidSnapWindow

	for _, e := range f.Order {
		if !ecs.Has(w, e, component.BuoyantTagComponent.Kind()) {
			continue
		}
		p, ok := ecs.Get(w, e, component.PickupComponent.Kind())
		if !ok {
			continue
		}
		st := p.Physics()
		if st == nil || st.Puppet || st.Paused || st.Vanished || p.Follows() || p.Instance.Hidden || p.Instance == carried {
			continue
		}
		traits, _ := ecs.Get(w, e, component.TraitsComponent.Kind())
		submerged := float32(0.5)
		if traits != nil {
			submerged = traits.SubmergedPortion
		}

		p.FloatMalus = common.Lerp(p.FloatMalus, malus(supporters[p]), tun.MalusSmoothing)
		line := height - submerged + p.FloatMalus
		bottom := p.Instance.Bottom()

		if snapping && common.Abs(bottom-line) <= tun.LiquidSnapRange {
			target := line
			if st.Floating {
				p.FloatSeed = advancePhase(p.FloatSeed, tun.BobRate*f.Dt)
				target += sin(p.FloatSeed) * tun.BobAmplitude
			} else {
				p.FloatSeed = 0
			}
			st.Velocity[1] = (target - bottom) / f.Dt
			st.Velocity = drift(st.Velocity, tun.Drift)
			st.Floating = true
			p.TouchesWater = false
			continue
		}

		if st.Floating {
			if bottom > line+tun.BobAmplitude+tun.ExitMargin {
				st.Floating = false
				p.TouchesWater = false
				continue
			}
			p.FloatSeed = advancePhase(p.FloatSeed, tun.BobRate*f.Dt)
			target := line + sin(p.FloatSeed)*tun.BobAmplitude
			vy := (target - bottom) / f.Dt * tun.FloatPull
			st.Velocity[1] = common.Clamp(vy, -tun.MaxFloatSpeed, tun.MaxFloatSpeed)
			st.Velocity = drift(st.Velocity, tun.Drift)
			continue
		}

		if bottom > line {
			p.TouchesWater = false
			continue
		}

		if !p.TouchesWater {
			p.TouchesWater = true
			if vy := common.Abs(st.Velocity[1]); vy > tun.SplashThreshold {
				c := p.Center()
				emitEffect(w, Effect{
					Kind:      EffectSplash,
					At:        mgl32.Vec3{c[0], height, c[2]},
					Intensity: vy,
					Pickup:    p.ID,
				})
			}
		}
		st.Velocity[1] *= tun.VerticalDamping
		st.Velocity[1] += (line - bottom) * tun.Stiffness * f.Dt
		st.Velocity = drift(st.Velocity, tun.HorizontalDrag)

		if common.Abs(st.Velocity[1]) < tun.FloatEnterSpeed {
			st.Floating = true
			p.TouchesWater = false
			p.FloatSeed = floatSeed(bottom, line, tun.BobAmplitude)
		}
	}
}

// CountSupporters counts, per pickup, what weighs it down: the player
// standing on it (and what the player carries), the pickups stacked on it
// and the followers sharing its screen column. It also refreshes
// PushedDownBy from the current ground references.
func CountSupporters(env *Env) map[*component.Pickup]int {
	f := env.Frame
	counts := make(map[*component.Pickup]int)

	for _, p := range f.byInstance {
		if st := p.Physics(); st != nil {
			st.PushedDownBy = nil
		}
	}
	for _, r := range f.byInstance {
		st := r.Physics()
		if st == nil || r.Follows() || st.Vanished {
			continue
		}
		if below, ok := f.PickupOf(st.Ground.First); ok && below != r {
			if bst := below.Physics(); bst != nil {
				bst.PushedDownBy = r.Instance
			}
		}
	}

	for _, p := range f.byInstance {
		n := 0
		cur := p
		for n < len(f.byInstance) {
			st := cur.Physics()
			if st == nil {
				break
			}
			above, ok := f.PickupOf(st.PushedDownBy)
			if !ok || above == p {
				break
			}
			n++
			cur = above
		}
		if n > 0 {
			counts[p] += n
		}
		if p.Follows() {
			counts[p.Driver()]++
		}
	}

	if env.Player != nil && env.Player.Grounded() {
		for _, inst := range env.Player.Ground() {
			p, ok := f.PickupOf(inst)
			if !ok {
				continue
			}
			counts[p]++
			if env.Player.Carried() != nil {
				counts[p]++
			}
		}
	}
	return counts
}

// floatSeed picks the bob phase matching the current depth so floating
// starts without a jump.
func floatSeed(bottom, line, amplitude float32) float32 {
	if amplitude <= 0 {
		return 0
	}
	x := common.Clamp((bottom-line)/amplitude, -1, 1)
	return float32(math.Asin(float64(x)))
}

func advancePhase(seed, step float32) float32 {
	return common.Wrap(seed+step, 2*math.Pi)
}

func sin(v float32) float32 {
	return float32(math.Sin(float64(v)))
}

func drift(v mgl32.Vec3, factor float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0] * factor, v[1], v[2] * factor}
}
