package trile

import "fmt"

// Kind is the actor type of a block.
type Kind string

const (
	KindSolid      Kind = "solid"
	KindDecoration Kind = "decoration"

	KindCrate      Kind = "crate"
	KindHeavyCrate Kind = "heavy_crate"
	KindVase       Kind = "vase"
	KindBomb       Kind = "bomb"
	KindCubeBit    Kind = "cube_bit"
)

// Traits are the fixed per-kind behaviors of a pickup.
type Traits struct {
	Fragile         bool
	BreakHeight     float32
	Buoyant         bool
	Heavy           bool
	RespawnsOnBreak bool
	// SubmergedPortion is how deep the lower face sits under the liquid
	// line while floating.
	SubmergedPortion float32
}

var pickupTraits = map[Kind]Traits{
	KindCrate:      {Buoyant: true, SubmergedPortion: 0.5},
	KindHeavyCrate: {Fragile: true, Buoyant: true, Heavy: true, RespawnsOnBreak: true, SubmergedPortion: 0.75},
	KindVase:       {Fragile: true, SubmergedPortion: 0.5},
	KindBomb:       {Fragile: true, RespawnsOnBreak: true, SubmergedPortion: 0.5},
	KindCubeBit:    {Buoyant: true, SubmergedPortion: 0.25},
}

// breakHeights is kept apart from the traits so a fragile kind added without
// a height fails loudly instead of breaking at zero.
var breakHeights = map[Kind]float32{
	KindHeavyCrate: 7,
	KindVase:       1,
	KindBomb:       1,
}

// IsPickable reports whether instances of k are movable pickups.
func (k Kind) IsPickable() bool {
	_, ok := pickupTraits[k]
	return ok
}

// Kinds lists every pickup kind.
func Kinds() []Kind {
	return []Kind{KindCrate, KindHeavyCrate, KindVase, KindBomb, KindCubeBit}
}

// TraitsFor resolves the traits of a pickup kind. Fragile kinds get their
// break height filled in.
func TraitsFor(k Kind) (Traits, bool) {
	t, ok := pickupTraits[k]
	if !ok {
		return Traits{}, false
	}
	if t.Fragile {
		t.BreakHeight = BreakHeight(k)
	}
	return t, true
}

// BreakHeight returns the fall height above which a fragile kind breaks.
// It panics for kinds missing from the catalog.
func BreakHeight(k Kind) float32 {
	h, ok := breakHeights[k]
	if !ok {
		panic(fmt.Sprintf("trile: no break height for fragile kind %q", k))
	}
	return h
}
