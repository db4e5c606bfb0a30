package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

// StopReason tells why a push chain ended.
type StopReason int

const (
	StopClear StopReason = iota
	StopNotPickup
	StopVisited
	StopSameGroup
	StopNotAhead
	StopOpposed
	StopTooLong
)

func (r StopReason) String() string {
	switch r {
	case StopClear:
		return "clear"
	case StopNotPickup:
		return "not a pickup"
	case StopVisited:
		return "visited"
	case StopSameGroup:
		return "same group"
	case StopNotAhead:
		return "not ahead"
	case StopOpposed:
		return "opposed"
	case StopTooLong:
		return "too long"
	}
	return "unknown"
}

// PushResult lists the pickups a chain displaced, in chain order. A pushed
// rigid group appears once, as its driver.
type PushResult struct {
	Displaced []*component.Pickup
	Stop      StopReason
}

// PropagatePush walks the chain of pickups blocking origin along the camera
// side axis and pushes each one with push. Riders resting on a pushed pickup
// follow it by the pushed delta divided by the integrator damping.
func PropagatePush(env *Env, origin *component.Pickup, push mgl32.Vec3) PushResult {
	var res PushResult
	f := env.Frame
	side := env.Camera.Viewpoint().Side()
	speed := push.Dot(side)
	dir := common.Sign(speed)
	if dir == 0 || f == nil {
		return res
	}

	maxLen := 16
	if env.Tuning != nil {
		maxLen = env.Tuning.PushChain.MaxLength
	}

	visited := map[*component.Pickup]bool{origin: true}
	cur := origin
	for {
		wc := cur.Physics().WallCollision
		if !wc.Collided || wc.Instance == nil {
			res.Stop = StopClear
			return res
		}
		nb, ok := f.PickupOf(wc.Instance)
		if !ok || !wc.Instance.Kind.IsPickable() || nb.Stale() {
			res.Stop = StopNotPickup
			return res
		}
		if visited[nb] {
			res.Stop = StopVisited
			return res
		}
		if origin.Group != nil && origin.Group.Contains(nb) {
			res.Stop = StopSameGroup
			return res
		}
		if nb.Center().Sub(cur.Center()).Dot(side)*dir <= common.Epsilon {
			res.Stop = StopNotAhead
			return res
		}
		// A block of another rigid group moves only through its driver; group
		// sync carries the rest of the body.
		body := []*component.Pickup{nb}
		target := nb
		if nb.Group != nil {
			body = nb.Group.Members
			if d := nb.Group.Driver(); d != nil && d.Physics() != nil {
				target = d
			}
		}
		nst := target.Physics()
		if nst.Velocity.Dot(side)*dir < -common.Epsilon {
			res.Stop = StopOpposed
			return res
		}
		if len(res.Displaced) >= maxLen {
			res.Stop = StopTooLong
			return res
		}
		for _, m := range body {
			visited[m] = true
		}

		before := target.Center()
		nst.Velocity = nst.Velocity.Sub(side.Mul(nst.Velocity.Dot(side))).Add(side.Mul(speed))
		env.Integrator.Advance(nst, false, false)
		delta := target.Center().Sub(before)
		f.AddMotion(target, delta)
		moveRiders(env, body, delta.Mul(1/env.damping()))

		res.Displaced = append(res.Displaced, target)
		cur = target
	}
}

// moveRiders shifts every pickup resting on one of bases, each at most once.
func moveRiders(env *Env, bases []*component.Pickup, delta mgl32.Vec3) {
	if delta.Len() == 0 {
		return
	}
	under := make(map[*trile.Instance]bool, len(bases))
	in := make(map[*component.Pickup]bool, len(bases))
	for _, b := range bases {
		under[b.Instance] = true
		in[b] = true
	}
	for _, r := range env.Frame.byInstance {
		st := r.Physics()
		if in[r] || st == nil || st.Ground.First == nil || !under[st.Ground.First] {
			continue
		}
		r.Move(delta)
		env.Frame.AddMotion(r, delta)
	}
}
