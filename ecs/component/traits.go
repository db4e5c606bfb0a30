package component

import "github.com/milk9111/trileshift/trile"

// Traits caches the kind traits resolved when the pickup table is built.
type Traits struct {
	trile.Traits
	Kind trile.Kind
}

var TraitsComponent = NewComponent[Traits]()

// FragileTag marks pickups tracked by the breakage pass.
type FragileTag struct{}

var FragileTagComponent = NewComponent[FragileTag]()

// BuoyantTag marks pickups handled by the buoyancy pass.
type BuoyantTag struct{}

var BuoyantTagComponent = NewComponent[BuoyantTag]()
