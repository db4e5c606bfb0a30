package obj

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/levels"
	"github.com/milk9111/trileshift/trile"
)

type cellKey [3]int

func keyOf(cell mgl32.Vec3) cellKey {
	return cellKey{int(cell[0]), int(cell[1]), int(cell[2])}
}

// Level is an in-memory block grid built from a level definition. It owns
// every instance; the pickup core only asks it to update, clear or restore
// the ones it knows.
type Level struct {
	Name string

	def        *levels.Level
	size       mgl32.Vec3
	loops      bool
	viewHeight float32

	liquid       trile.Liquid
	liquidHeight float32

	instances   []*trile.Instance
	byID        map[int]*trile.Instance
	grid        map[cellKey]*trile.Instance
	cells       map[*trile.Instance]cellKey
	decorations map[*trile.Instance][]*trile.Decoration
	removed     map[*trile.Instance]bool
	breakSounds map[trile.Kind]string
	loading     bool

	// Updates counts UpdateInstance calls, for tools and tests.
	Updates int
}

// LoadLevel builds the embedded level called name.
func LoadLevel(name string) (*Level, error) {
	def, err := levels.Load(name)
	if err != nil {
		return nil, err
	}
	return NewLevel(def)
}

// NewLevel builds the runtime grid for def. Static blocks get negative IDs
// so they never collide with authored pickup IDs.
func NewLevel(def *levels.Level) (*Level, error) {
	if def == nil {
		return nil, fmt.Errorf("obj: new level: nil definition")
	}
	l := &Level{
		Name:        def.Name,
		def:         def,
		size:        mgl32.Vec3{float32(def.Size[0]), float32(def.Size[1]), float32(def.Size[2])},
		loops:       def.Loops,
		viewHeight:  def.ViewHeight,
		byID:        make(map[int]*trile.Instance),
		grid:        make(map[cellKey]*trile.Instance),
		cells:       make(map[*trile.Instance]cellKey),
		decorations: make(map[*trile.Instance][]*trile.Decoration),
		removed:     make(map[*trile.Instance]bool),
		breakSounds: make(map[trile.Kind]string),
	}
	if l.viewHeight == 0 {
		l.viewHeight = l.size[1]
	}
	if def.Liquid != nil {
		l.liquid = trile.Liquid(def.Liquid.Type)
		l.liquidHeight = def.Liquid.Height
	}
	for kind, cue := range def.BreakSounds {
		l.breakSounds[trile.Kind(kind)] = cue
	}

	nextStatic := -1
	addSolid := func(c [3]int) {
		key := cellKey(c)
		if _, taken := l.grid[key]; taken {
			return
		}
		inst := trile.NewInstance(nextStatic, trile.KindSolid, mgl32.Vec3{float32(c[0]), float32(c[1]), float32(c[2])})
		nextStatic--
		l.add(inst)
	}
	for _, c := range def.Solids {
		addSolid(c)
	}
	for _, b := range def.SolidBoxes {
		for x := b.Min[0]; x <= b.Max[0]; x++ {
			for y := b.Min[1]; y <= b.Max[1]; y++ {
				for z := b.Min[2]; z <= b.Max[2]; z++ {
					addSolid([3]int{x, y, z})
				}
			}
		}
	}

	for _, p := range def.Pickups {
		kind := trile.Kind(p.Kind)
		if !kind.IsPickable() {
			return nil, fmt.Errorf("obj: new level %s: pickup %d has unknown kind %q", def.Name, p.ID, p.Kind)
		}
		inst := trile.NewInstance(p.ID, kind, mgl32.Vec3{float32(p.Cell[0]), float32(p.Cell[1]), float32(p.Cell[2])})
		inst.GroupID = p.Group
		l.add(inst)
	}
	for _, d := range def.Decorations {
		inst, ok := l.byID[d.Pickup]
		if !ok {
			continue
		}
		l.decorations[inst] = append(l.decorations[inst], &trile.Decoration{
			Name:   d.Name,
			Offset: mgl32.Vec3(d.Offset),
		})
	}
	return l, nil
}

func (l *Level) add(inst *trile.Instance) {
	l.instances = append(l.instances, inst)
	l.byID[inst.ID] = inst
	l.index(inst)
}

func (l *Level) index(inst *trile.Instance) {
	if old, ok := l.cells[inst]; ok && l.grid[old] == inst {
		delete(l.grid, old)
	}
	key := keyOf(inst.Cell())
	l.cells[inst] = key
	if _, taken := l.grid[key]; !taken {
		l.grid[key] = inst
	}
}

// Instances returns every instance still in the level, in ID order.
func (l *Level) Instances() []*trile.Instance {
	out := make([]*trile.Instance, 0, len(l.instances))
	for _, inst := range l.instances {
		if !l.removed[inst] {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pickups returns the pickup instances still in the level.
func (l *Level) Pickups() []*trile.Instance {
	var out []*trile.Instance
	for _, inst := range l.Instances() {
		if inst.Kind.IsPickable() {
			out = append(out, inst)
		}
	}
	return out
}

func (l *Level) Instance(id int) (*trile.Instance, bool) {
	inst, ok := l.byID[id]
	if !ok || l.removed[inst] {
		return nil, false
	}
	return inst, true
}

func (l *Level) Decorations(inst *trile.Instance) []*trile.Decoration {
	return l.decorations[inst]
}

// UpdateInstance re-indexes inst at its current cell.
func (l *Level) UpdateInstance(inst *trile.Instance) {
	if inst == nil || l.removed[inst] {
		return
	}
	l.index(inst)
	l.Updates++
}

// ClearTrile permanently removes inst and drops its physics state.
func (l *Level) ClearTrile(inst *trile.Instance) {
	if inst == nil || l.removed[inst] {
		return
	}
	l.removed[inst] = true
	if key, ok := l.cells[inst]; ok && l.grid[key] == inst {
		delete(l.grid, key)
	}
	delete(l.cells, inst)
	inst.Physics = nil
	inst.Hidden = true
}

// RestoreTrile puts a respawned instance back into the grid.
func (l *Level) RestoreTrile(inst *trile.Instance) {
	if inst == nil || l.removed[inst] {
		return
	}
	l.index(inst)
}

func (l *Level) InstanceAt(cell mgl32.Vec3) (*trile.Instance, bool) {
	inst, ok := l.grid[keyOf(cell)]
	return inst, ok
}

func (l *Level) Liquid() (trile.Liquid, float32) {
	return l.liquid, l.liquidHeight
}

// SetLiquid changes the liquid plane. Hosts must be told through
// OnLiquidChanged.
func (l *Level) SetLiquid(kind trile.Liquid, height float32) {
	l.liquid = kind
	l.liquidHeight = height
}

func (l *Level) Loops() bool { return l.loops }

func (l *Level) Size() mgl32.Vec3 { return l.size }

func (l *Level) ViewHeight() float32 { return l.viewHeight }

func (l *Level) BreakSound(kind trile.Kind) (string, bool) {
	cue, ok := l.breakSounds[kind]
	return cue, ok
}

func (l *Level) Loading() bool { return l.loading }

func (l *Level) SetLoading(loading bool) {
	l.loading = loading
}

// Reset rebuilds the level from its definition, bringing cleared instances
// back.
func (l *Level) Reset() error {
	fresh, err := NewLevel(l.def)
	if err != nil {
		return err
	}
	updates := l.Updates
	*l = *fresh
	l.Updates = updates
	return nil
}
