package component

import "sort"

// Group is a rigid set of pickups that moves as one body. Exactly one member
// is the driver; every other member is a puppet.
type Group struct {
	ID      int
	Members []*Pickup
	// MidAir stays set until a member lands.
	MidAir bool

	driver *Pickup
}

var GroupComponent = NewComponent[Group]()

// NewGroup sorts members by ID and makes the first one the driver.
func NewGroup(id int, members []*Pickup) *Group {
	sorted := append([]*Pickup(nil), members...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	g := &Group{ID: id, Members: sorted, MidAir: true}
	for _, m := range sorted {
		m.Group = g
	}
	if len(sorted) > 0 {
		g.SetDriver(sorted[0])
	}
	return g
}

// Driver returns the one member that is genuinely integrated.
func (g *Group) Driver() *Pickup {
	if g == nil {
		return nil
	}
	return g.driver
}

// SetDriver hands control to m and turns every other member into a puppet
// in a single step. m must be a member.
func (g *Group) SetDriver(m *Pickup) bool {
	if g == nil || !g.Contains(m) {
		return false
	}
	g.driver = m
	for _, other := range g.Members {
		if st := other.Physics(); st != nil {
			st.Puppet = other != m
		}
	}
	return true
}

func (g *Group) Contains(p *Pickup) bool {
	if g == nil || p == nil {
		return false
	}
	for _, m := range g.Members {
		if m == p {
			return true
		}
	}
	return false
}

// Remove drops a member. When the driver leaves, the lowest remaining ID
// takes over.
func (g *Group) Remove(p *Pickup) {
	if g == nil {
		return
	}
	kept := g.Members[:0]
	for _, m := range g.Members {
		if m != p {
			kept = append(kept, m)
		}
	}
	g.Members = kept
	if g.driver == p {
		g.driver = nil
		if len(kept) > 0 {
			g.SetDriver(kept[0])
		}
	}
}
