package system

import (
	"sort"

	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
)

// OverlapResult is the bookkeeping decided by ResolveOverlaps. It moves
// nothing; ApplyOverlaps writes it to the pickups.
type OverlapResult struct {
	// Links maps each follower to the driver it mirrors.
	Links map[*component.Pickup]*component.Pickup
	// Paused holds group members hidden behind the front of their group.
	Paused map[*component.Pickup]bool
	// Drivers is the driver of every group after the pass.
	Drivers map[*component.Group]*component.Pickup
}

// Followers returns the followers of d in ID order.
func (r OverlapResult) Followers(d *component.Pickup) []*component.Pickup {
	var out []*component.Pickup
	for f, driver := range r.Links {
		if driver == d {
			out = append(out, f)
		}
	}
	SortByID(out)
	return out
}

// ResolveOverlaps decides which pickups share a screen-space cell under vp
// and which group members sit behind their group's front. Lowest stable ID
// wins every tie. Perspective views yield an empty result.
func ResolveOverlaps(w *ecs.World, vp common.Viewpoint, tolerance float32) OverlapResult {
	res := OverlapResult{
		Links:   make(map[*component.Pickup]*component.Pickup),
		Paused:  make(map[*component.Pickup]bool),
		Drivers: make(map[*component.Group]*component.Pickup),
	}

	var pickups []*component.Pickup
	ecs.ForEach(w, component.PickupComponent.Kind(), func(_ ecs.Entity, p *component.Pickup) {
		if !p.Stale() {
			pickups = append(pickups, p)
		}
	})
	SortByID(pickups)

	groups := groupsOf(pickups)
	for _, g := range groups {
		res.Drivers[g] = g.Driver()
	}
	if !vp.IsOrthographic() {
		return res
	}

	for _, g := range groups {
		var live []*component.Pickup
		for _, m := range g.Members {
			if !m.Stale() {
				live = append(live, m)
			}
		}
		if len(live) == 0 {
			continue
		}
		front := vp.Depth(live[0].Center())
		for _, m := range live[1:] {
			if d := vp.Depth(m.Center()); d < front {
				front = d
			}
		}
		var firstFront *component.Pickup
		for _, m := range live {
			if vp.Depth(m.Center()) > front+tolerance {
				res.Paused[m] = true
			} else if firstFront == nil {
				firstFront = m
			}
		}
		if d := res.Drivers[g]; d == nil || res.Paused[d] || d.Stale() {
			res.Drivers[g] = firstFront
		}
	}

	var candidates []*component.Pickup
	for _, p := range pickups {
		st := p.Physics()
		if res.Paused[p] || p.Instance.Hidden || st.Vanished {
			continue
		}
		candidates = append(candidates, p)
	}

	// Group drivers claim first so an independent pickup in front of or
	// behind a group mirrors the group rather than the other way round.
	leaders := append([]*component.Pickup(nil), candidates...)
	sort.SliceStable(leaders, func(i, j int) bool {
		gi, gj := leaders[i].Group != nil, leaders[j].Group != nil
		if gi != gj {
			return gi
		}
		return leaders[i].ID < leaders[j].ID
	})

	leading := make(map[*component.Pickup]bool)
	for _, a := range leaders {
		if _, linked := res.Links[a]; linked {
			continue
		}
		if a.Group != nil && res.Drivers[a.Group] != a {
			continue
		}
		sa := vp.Project(a.Center())
		for _, b := range candidates {
			if b == a || b.Group != nil || leading[b] {
				continue
			}
			if _, linked := res.Links[b]; linked {
				continue
			}
			if common.NearlyEqual(vp.Project(b.Center()), sa, tolerance) {
				res.Links[b] = a
				leading[a] = true
			}
		}
	}
	return res
}

// ApplyOverlaps resets links and pauses and writes res. Group drivers are
// kept unless res replaced them.
func ApplyOverlaps(w *ecs.World, res OverlapResult) {
	ecs.ForEach(w, component.PickupComponent.Kind(), func(_ ecs.Entity, p *component.Pickup) {
		p.VisibleOverlapper = nil
		if st := p.Physics(); st != nil {
			st.Paused = false
		}
	})
	for g, d := range res.Drivers {
		if d != nil {
			g.SetDriver(d)
		}
	}
	for p := range res.Paused {
		if st := p.Physics(); st != nil {
			st.Paused = true
			st.Puppet = true
		}
	}
	for f, d := range res.Links {
		f.VisibleOverlapper = d
	}
}

func groupsOf(pickups []*component.Pickup) []*component.Group {
	seen := make(map[*component.Group]bool)
	var out []*component.Group
	for _, p := range pickups {
		if p.Group != nil && !seen[p.Group] {
			seen[p.Group] = true
			out = append(out, p.Group)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OverlapFollowSystem makes every follower copy the motion and physics
// outputs of the driver it mirrors.
type OverlapFollowSystem struct {
	env *Env
}

func NewOverlapFollowSystem(env *Env) *OverlapFollowSystem {
	return &OverlapFollowSystem{env: env}
}

func (s *OverlapFollowSystem) Update(w *ecs.World) {
	if s == nil || w == nil || s.env.Frame == nil {
		return
	}
	f := s.env.Frame
	for _, p := range f.Pickups(w) {
		if !p.Follows() {
			continue
		}
		d := p.Driver()
		st, dst := p.Physics(), d.Physics()
		if st == nil || dst == nil || d.Removed {
			p.VisibleOverlapper = nil
			continue
		}
		if dst.Vanished {
			// The driver left the column; the follower is on its own again.
			p.VisibleOverlapper = nil
			continue
		}
		dm := f.Motion[d]
		p.Move(dm.Sub(f.Motion[p]))
		f.Motion[p] = dm
		st.Velocity = dst.Velocity
		st.Background = dst.Background
		st.Grounded = dst.Grounded
		st.Ground = dst.Ground
		st.Floating = dst.Floating
		p.TouchesWater = d.TouchesWater
	}
}
