// Package trile holds the level-owned block vocabulary shared by the pickup
// core and its collaborators: block instances, their physics state, and the
// fixed pickup kind catalog.
package trile

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Instance is one placed block. The level owns its lifetime; the pickup core
// only mutates its position and physics fields.
type Instance struct {
	ID      int
	Kind    Kind
	Center  mgl32.Vec3
	Size    mgl32.Vec3
	GroupID int
	Hidden  bool

	// Physics is nil for static blocks and for pickups that were permanently
	// cleared from the level.
	Physics *PhysicsState
}

// NewInstance creates a unit-sized instance centered in the given cell.
func NewInstance(id int, kind Kind, cell mgl32.Vec3) *Instance {
	inst := &Instance{
		ID:     id,
		Kind:   kind,
		Center: CellCenter(cell),
		Size:   mgl32.Vec3{1, 1, 1},
	}
	if kind.IsPickable() {
		inst.Physics = NewPhysicsState(inst)
	}
	return inst
}

// Half returns half of the instance extents.
func (i *Instance) Half() mgl32.Vec3 {
	return i.Size.Mul(0.5)
}

// Bottom returns the height of the lower face.
func (i *Instance) Bottom() float32 {
	return i.Center[1] - i.Size[1]/2
}

// Cell returns the grid cell containing the instance center.
func (i *Instance) Cell() mgl32.Vec3 {
	return CellOf(i.Center)
}

func (i *Instance) String() string {
	if i == nil {
		return "trile(nil)"
	}
	return fmt.Sprintf("trile(%d %s)", i.ID, i.Kind)
}

// CellCenter returns the world center of a grid cell.
func CellCenter(cell mgl32.Vec3) mgl32.Vec3 {
	return cell.Add(mgl32.Vec3{0.5, 0.5, 0.5})
}

// CellOf returns the grid cell containing p.
func CellOf(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{floor(p[0]), floor(p[1]), floor(p[2])}
}

func floor(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

// Decoration is a purely cosmetic object that tracks a pickup at a fixed
// offset from its center.
type Decoration struct {
	Name     string
	Offset   mgl32.Vec3
	Position mgl32.Vec3
}

// Liquid identifies the kind of liquid plane in a level.
type Liquid string

const (
	LiquidNone  Liquid = ""
	LiquidWater Liquid = "water"
	LiquidSewer Liquid = "sewer"
	LiquidLava  Liquid = "lava"
)
