// Package pickups drives the pickup simulation: it owns the pickup table,
// runs the per-frame passes in a fixed order and exposes the lifecycle
// hooks the level, camera and gravity call.
package pickups

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/ecs/system"
	"github.com/milk9111/trileshift/prefabs"
)

// ParticleSink receives particle requests.
type ParticleSink interface {
	Spawn(fx system.Effect)
}

// SoundSink receives audio requests.
type SoundSink interface {
	Play(cue string, at mgl32.Vec3)
}

// viewpointAware integrators are re-projected on every viewpoint change.
type viewpointAware interface {
	SetViewpoint(vp common.Viewpoint)
}

type Options struct {
	Integrator system.Integrator
	Level      system.Level
	Camera     system.Camera
	Gravity    system.Gravity
	Player     system.Player

	Particles ParticleSink
	Sounds    SoundSink

	// Tuning defaults to DefaultTuning when nil.
	Tuning *prefabs.Tuning
}

// Host is the frame driver of the pickup simulation.
type Host struct {
	// mu is the init lock: a rebuild holds it for its whole duration and
	// Update waits for it.
	mu    sync.Mutex
	ready atomic.Bool

	world     *ecs.World
	env       *system.Env
	scheduler *ecs.Scheduler
	deferred  *system.Deferred

	particles ParticleSink
	sounds    SoundSink

	now               float32
	sinceLiquidChange float32
	last              *system.Frame
	lastOverlaps      system.OverlapResult
}

func NewHost(opts Options) (*Host, error) {
	var missing []error
	if opts.Integrator == nil {
		missing = append(missing, errors.New("integrator"))
	}
	if opts.Level == nil {
		missing = append(missing, errors.New("level"))
	}
	if opts.Camera == nil {
		missing = append(missing, errors.New("camera"))
	}
	if opts.Gravity == nil {
		missing = append(missing, errors.New("gravity"))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pickups: new host: missing collaborators: %w", errors.Join(missing...))
	}

	tuning := opts.Tuning
	if tuning == nil {
		def := prefabs.DefaultTuning()
		tuning = &def
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("pickups: new host: %w", err)
	}
	malus, err := prefabs.NewMalus(tuning.Buoyancy)
	if err != nil {
		return nil, fmt.Errorf("pickups: new host: %w", err)
	}

	h := &Host{
		world:     ecs.NewWorld(),
		deferred:  &system.Deferred{},
		particles: opts.Particles,
		sounds:    opts.Sounds,
	}
	h.env = &system.Env{
		Integrator: opts.Integrator,
		Level:      opts.Level,
		Camera:     opts.Camera,
		Gravity:    opts.Gravity,
		Player:     opts.Player,
		Tuning:     tuning,
		Malus:      malus,
		Deferred:   h.deferred,
	}
	h.scheduler = ecs.NewScheduler(
		system.NewPruneSystem(),
		system.NewOrderSystem(h.env),
		system.NewRespawnSystem(h.env),
		system.NewBuoyancySystem(h.env),
		system.NewIntegrateSystem(h.env),
		system.NewGroupSyncSystem(h.env),
		system.NewOverlapFollowSystem(h.env),
		system.NewBreakageSystem(h.env),
		system.NewPresentSystem(h.env),
	)
	return h, nil
}

// InitializePickups rebuilds the pickup table from the level. It holds the
// init lock for the whole rebuild, then resolves overlaps immediately.
func (h *Host) InitializePickups() error {
	h.ready.Store(false)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.world.Reset()
	h.deferred.Clear()
	h.sinceLiquidChange = 0
	h.last = nil

	n, groups, err := buildTable(h.world, h.env)
	if err != nil {
		return fmt.Errorf("pickups: initialize: %w", err)
	}
	log.Printf("pickups: built %d pickups in %d groups", n, groups)

	h.resolveOverlapsLocked(true)
	h.ready.Store(true)
	return nil
}

// Ready reports whether the table is built and no rebuild is in flight.
func (h *Host) Ready() bool {
	return h.ready.Load()
}

// Update advances the simulation by dt seconds.
func (h *Host) Update(dt float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.now += dt
	h.sinceLiquidChange += dt
	h.deferred.RunDue(h.now)

	frame := system.NewFrame(dt, h.now, h.sinceLiquidChange)
	h.env.Frame = frame
	h.scheduler.Update(h.world)
	h.dispatch()
	h.env.Frame = nil
	h.last = frame

	if frame.Respawned {
		h.resolveOverlapsLocked(true)
	}
}

// ResolveOverlaps recomputes screen-space links and group pauses. Unless
// forced it does nothing while the level is loading.
func (h *Host) ResolveOverlaps(forceImmediate bool) system.OverlapResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolveOverlapsLocked(forceImmediate)
}

func (h *Host) resolveOverlapsLocked(force bool) system.OverlapResult {
	if !force && h.env.Level.Loading() {
		return h.lastOverlaps
	}
	res := system.ResolveOverlaps(h.world, h.env.Camera.Viewpoint(), h.env.Tuning.Overlap.Tolerance)
	system.ApplyOverlaps(h.world, res)
	h.lastOverlaps = res
	return res
}

// OnViewpointChanged must be called after every camera rotation. The
// integrator is re-projected under the init lock so no frame integrates
// against a half-built projection.
func (h *Host) OnViewpointChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if va, ok := h.env.Integrator.(viewpointAware); ok {
		va.SetViewpoint(h.env.Camera.Viewpoint())
	}
	h.resolveOverlapsLocked(false)
}

// OnGravityChanged makes every pickup forget its cached ground.
func (h *Host) OnGravityChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	gs := h.env.Gravity.Sign()
	ecs.ForEach(h.world, component.PickupComponent.Kind(), func(_ ecs.Entity, p *component.Pickup) {
		st := p.Physics()
		if st == nil {
			return
		}
		st.ForgetGround()
		st.PushedDownBy = nil
		p.WasGrounded = false
		p.FlightApex = p.Center()[1] * gs
	})
	ecs.ForEach(h.world, component.GroupComponent.Kind(), func(_ ecs.Entity, g *component.Group) {
		g.MidAir = true
	})
}

// OnLiquidChanged reopens the window in which floating pickups snap to the
// new liquid line.
func (h *Host) OnLiquidChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinceLiquidChange = 0
}

// SetTuning swaps the tuning, recompiling the malus curve. The previous
// tuning stays active on error.
func (h *Host) SetTuning(t *prefabs.Tuning) error {
	if t == nil {
		return errors.New("pickups: set tuning: nil tuning")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("pickups: set tuning: %w", err)
	}
	malus, err := prefabs.NewMalus(t.Buoyancy)
	if err != nil {
		return fmt.Errorf("pickups: set tuning: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.env.Tuning = t
	h.env.Malus = malus
	log.Printf("pickups: tuning %q applied", t.Name)
	return nil
}

// Tuning returns the active tuning.
func (h *Host) Tuning() *prefabs.Tuning {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.env.Tuning
}

// After runs fn on the first update at least d seconds from now. fn runs
// under the init lock and must not call back into the host.
func (h *Host) After(d float32, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deferred.After(d, fn)
}

// Pickups returns the live pickups ordered by ID.
func (h *Host) Pickups() []*component.Pickup {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*component.Pickup
	ecs.ForEach(h.world, component.PickupComponent.Kind(), func(_ ecs.Entity, p *component.Pickup) {
		out = append(out, p)
	})
	system.SortByID(out)
	return out
}

// Pickup looks a pickup up by instance ID.
func (h *Host) Pickup(id int) (*component.Pickup, bool) {
	for _, p := range h.Pickups() {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Groups returns the rigid groups ordered by ID.
func (h *Host) Groups() []*component.Group {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*component.Group
	ecs.ForEach(h.world, component.GroupComponent.Kind(), func(_ ecs.Entity, g *component.Group) {
		out = append(out, g)
	})
	sortGroups(out)
	return out
}

// LastFrame returns the transient state of the most recent update.
func (h *Host) LastFrame() *system.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Overlaps returns the result of the most recent overlap pass.
func (h *Host) Overlaps() system.OverlapResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastOverlaps
}

func (h *Host) dispatch() {
	for _, evt := range h.world.Events().Drain() {
		switch evt.Type {
		case system.EventEffect:
			fx, ok := evt.Data.(system.Effect)
			if ok && h.particles != nil {
				h.particles.Spawn(fx)
			}
		case system.EventSound:
			snd, ok := evt.Data.(system.Sound)
			if ok && h.sounds != nil {
				h.sounds.Play(snd.Cue, snd.At)
			}
		}
	}
}
