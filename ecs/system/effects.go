package system

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/ecs"
)

// Event types pushed on the world queue.
const (
	EventEffect = "pickup_effect"
	EventSound  = "pickup_sound"
)

type EffectKind string

const (
	EffectSplash    EffectKind = "splash"
	EffectExplosion EffectKind = "explosion"
	EffectDust      EffectKind = "dust"
	EffectGlitch    EffectKind = "glitch"
)

// Effect is a fire-and-forget particle request.
type Effect struct {
	Kind      EffectKind
	At        mgl32.Vec3
	Intensity float32
	// Pickup is the instance ID the effect belongs to.
	Pickup int
}

// Sound is a fire-and-forget audio request.
type Sound struct {
	Cue string
	At  mgl32.Vec3
}

func emitEffect(w *ecs.World, fx Effect) {
	w.Events().Push(ecs.Event{Type: EventEffect, Data: fx})
}

func emitSound(w *ecs.World, cue string, at mgl32.Vec3) {
	w.Events().Push(ecs.Event{Type: EventSound, Data: Sound{Cue: cue, At: at}})
}
