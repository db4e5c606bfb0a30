package system

import (
	"log"

	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
)

// PruneSystem drops pickups whose backing instance lost its physics state,
// typically a broken vase cleared from the level on the previous frame.
type PruneSystem struct{}

func NewPruneSystem() *PruneSystem {
	return &PruneSystem{}
}

func (s *PruneSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}

	gone := make(map[*component.Pickup]ecs.Entity)
	ecs.ForEach(w, component.PickupComponent.Kind(), func(e ecs.Entity, p *component.Pickup) {
		if p.Stale() {
			gone[p] = e
		}
	})
	if len(gone) == 0 {
		return
	}

	for p, e := range gone {
		if p.Group != nil {
			p.Group.Remove(p)
		}
		ecs.DestroyEntity(w, e)
	}

	ecs.ForEach(w, component.PickupComponent.Kind(), func(_ ecs.Entity, p *component.Pickup) {
		if _, ok := gone[p.VisibleOverlapper]; ok {
			p.VisibleOverlapper = nil
		}
	})

	ecs.ForEach(w, component.GroupComponent.Kind(), func(e ecs.Entity, g *component.Group) {
		if len(g.Members) == 0 {
			ecs.DestroyEntity(w, e)
		}
	})

	log.Printf("pickups: pruned %d stale pickups", len(gone))
}
