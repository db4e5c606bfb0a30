package pickups

import (
	"fmt"
	"sort"

	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/ecs/system"
	"github.com/milk9111/trileshift/trile"
)

// buildTable scans the level for pickup kinds and creates one entity per
// pickup plus one per rigid group.
func buildTable(w *ecs.World, env *system.Env) (int, int, error) {
	gs := float32(1)
	if env.Gravity.Sign() < 0 {
		gs = -1
	}

	insts := append([]*trile.Instance(nil), env.Level.Instances()...)
	sort.Slice(insts, func(i, j int) bool { return insts[i].ID < insts[j].ID })

	members := make(map[int][]*component.Pickup)
	count := 0
	for _, inst := range insts {
		if inst == nil || !inst.Kind.IsPickable() || inst.Physics == nil {
			continue
		}
		traits, ok := trile.TraitsFor(inst.Kind)
		if !ok {
			continue
		}

		p := component.NewPickup(inst, gs)
		p.Decorations = env.Level.Decorations(inst)
		p.TrackDecorations()
		inst.Physics.Reset()

		e := ecs.CreateEntity(w)
		if err := ecs.Add(w, e, component.PickupComponent.Kind(), p); err != nil {
			return 0, 0, fmt.Errorf("add pickup %v: %w", inst, err)
		}
		if err := ecs.Add(w, e, component.TraitsComponent.Kind(), &component.Traits{Traits: traits, Kind: inst.Kind}); err != nil {
			return 0, 0, fmt.Errorf("add traits %v: %w", inst, err)
		}
		if traits.Fragile {
			_ = ecs.Add(w, e, component.FragileTagComponent.Kind(), &component.FragileTag{})
		}
		if traits.Buoyant {
			_ = ecs.Add(w, e, component.BuoyantTagComponent.Kind(), &component.BuoyantTag{})
		}

		if inst.GroupID != 0 {
			members[inst.GroupID] = append(members[inst.GroupID], p)
		}
		count++
	}

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if len(members[id]) < 2 {
			continue
		}
		g := component.NewGroup(id, members[id])
		e := ecs.CreateEntity(w)
		if err := ecs.Add(w, e, component.GroupComponent.Kind(), g); err != nil {
			return 0, 0, fmt.Errorf("add group %d: %w", id, err)
		}
	}
	groups := len(w.Query(component.GroupComponent.Kind()))
	return count, groups, nil
}

func sortGroups(gs []*component.Group) {
	sort.Slice(gs, func(i, j int) bool { return gs[i].ID < gs[j].ID })
}
