// Package sim wires the reference collaborators to a pickup host so tools
// can run a level without a renderer.
package sim

import (
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/system"
	"github.com/milk9111/trileshift/obj"
	"github.com/milk9111/trileshift/pickups"
	"github.com/milk9111/trileshift/prefabs"
	"github.com/milk9111/trileshift/trace"
	"github.com/milk9111/trileshift/trile"
)

// Session is one loaded level with its camera, gravity, player, integrator
// and pickup host.
type Session struct {
	Level   *obj.Level
	Camera  *obj.Camera
	Gravity *obj.Gravity
	Player  *obj.Player
	Physics *ecs.PhysicsWorld
	Host    *pickups.Host

	frame int

	mu      sync.Mutex
	effects []system.Effect
	sounds  []string
}

// NewSession loads the named level and initializes its pickups. A nil
// tuning uses the defaults.
func NewSession(levelName string, tuning *prefabs.Tuning) (*Session, error) {
	if tuning == nil {
		def := prefabs.DefaultTuning()
		tuning = &def
	}
	level, err := obj.LoadLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("sim: new session: %w", err)
	}

	s := &Session{
		Level:   level,
		Camera:  obj.NewCamera(level.ViewHeight()),
		Gravity: obj.NewGravity(),
		Player:  obj.NewPlayerIn(level),
	}
	s.Physics = ecs.NewPhysicsWorld(level, physicsConfig(tuning))
	s.Physics.Track(level.Pickups()...)

	s.Host, err = pickups.NewHost(pickups.Options{
		Integrator: s.Physics,
		Level:      level,
		Camera:     s.Camera,
		Gravity:    s.Gravity,
		Player:     s.Player,
		Particles:  s,
		Sounds:     s,
		Tuning:     tuning,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: new session: %w", err)
	}
	if err := s.Host.InitializePickups(); err != nil {
		return nil, fmt.Errorf("sim: new session: %w", err)
	}
	return s, nil
}

func physicsConfig(t *prefabs.Tuning) ecs.PhysicsConfig {
	return ecs.PhysicsConfig{
		Gravity:      t.Physics.Gravity,
		MaxFallSpeed: t.Physics.MaxFallSpeed,
		Step:         t.Physics.Step,
		Damping:      t.Physics.Damping,
	}
}

// Spawn collects particle requests until the next drain.
func (s *Session) Spawn(fx system.Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, fx)
}

// Play collects sound cues until the next drain.
func (s *Session) Play(cue string, _ mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sounds = append(s.sounds, cue)
}

// Drain returns and clears the collected effects and sounds.
func (s *Session) Drain() ([]system.Effect, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fx, snd := s.effects, s.sounds
	s.effects, s.sounds = nil, nil
	return fx, snd
}

// Step advances the simulation by dt.
func (s *Session) Step(dt float32) {
	s.Host.Update(dt)
	s.frame++
}

func (s *Session) Frame() int { return s.frame }

// Rotate turns the camera by quarter turns and re-resolves overlaps.
func (s *Session) Rotate(steps int) {
	vp := s.Camera.Rotate(steps)
	s.Host.OnViewpointChanged()
	log.Printf("sim: viewpoint %s", vp)
}

// FlipGravity inverts gravity for the integrator and the pickups.
func (s *Session) FlipGravity() {
	sign := s.Gravity.Flip()
	s.Physics.SetGravitySign(sign)
	s.Host.OnGravityChanged()
	log.Printf("sim: gravity sign %v", sign)
}

// SetLiquid moves the liquid plane.
func (s *Session) SetLiquid(kind trile.Liquid, height float32) {
	s.Level.SetLiquid(kind, height)
	s.Host.OnLiquidChanged()
}

// ApplyTuning swaps the tuning of both the host and the integrator.
func (s *Session) ApplyTuning(t *prefabs.Tuning) error {
	if err := s.Host.SetTuning(t); err != nil {
		return err
	}
	s.Physics.SetConfig(physicsConfig(t))
	return nil
}

// Reload rebuilds the level from its definition and the pickup table from
// the level. Overlaps stay frozen while the rebuild runs.
func (s *Session) Reload() error {
	s.Level.SetLoading(true)
	defer s.Level.SetLoading(false)

	if err := s.Level.Reset(); err != nil {
		return fmt.Errorf("sim: reload: %w", err)
	}
	s.Level.SetLoading(true)
	s.Player.PlaceIn(s.Level)
	s.Physics.SetGravitySign(s.Gravity.Sign())
	s.Physics.Rebuild()
	s.Physics.Track(s.Level.Pickups()...)
	if err := s.Host.InitializePickups(); err != nil {
		return fmt.Errorf("sim: reload: %w", err)
	}
	s.Drain()
	return nil
}

// Capture records the current frame, including the effects and sounds
// passed in.
func (s *Session) Capture(fx []system.Effect, sounds []string) trace.Entry {
	var now float32
	if f := s.Host.LastFrame(); f != nil {
		now = f.Time
	}
	e := trace.Capture(s.frame, now, s.Camera.Viewpoint(), s.Gravity.Sign(), s.Host.Pickups())
	for _, x := range fx {
		e.Effects = append(e.Effects, trace.Effect{Kind: string(x.Kind), Pickup: x.Pickup, At: x.At})
	}
	e.Sounds = append(e.Sounds, sounds...)
	return e
}
