package trile

import "github.com/go-gl/mathgl/mgl32"

// Ground describes what an instance rests on after the last integration.
type Ground struct {
	// First is the dynamic instance underneath, nil when resting on static
	// geometry or airborne.
	First  *Instance
	Static bool
}

// Collision is the horizontal blocking result of the last integration.
type Collision struct {
	Collided bool
	Instance *Instance
	Normal   mgl32.Vec3
}

// PhysicsState is the integrator-facing state of a movable instance.
type PhysicsState struct {
	Instance *Instance

	Velocity      mgl32.Vec3
	Grounded      bool
	Ground        Ground
	WallCollision Collision
	PushedDownBy  *Instance

	Background bool
	// Puppet states are integrated only to detect grounding; their motion is
	// overwritten by the driver they mirror.
	Puppet bool
	// Paused states are skipped by integration entirely.
	Paused bool
	// Floating states are held by buoyancy; integrators skip gravity.
	Floating bool
	// Respawned suppresses breakage on the next landing.
	Respawned     bool
	Vanished      bool
	ShouldRespawn bool
}

func NewPhysicsState(inst *Instance) *PhysicsState {
	return &PhysicsState{Instance: inst}
}

// Supported reports whether the state rests on ground or floats.
func (s *PhysicsState) Supported() bool {
	return s.Grounded || s.Floating
}

// ForgetGround drops cached ground references.
func (s *PhysicsState) ForgetGround() {
	s.Grounded = false
	s.Ground = Ground{}
}

// Reset zeroes motion and transient flags, keeping the instance binding.
func (s *PhysicsState) Reset() {
	inst := s.Instance
	*s = PhysicsState{Instance: inst}
}
