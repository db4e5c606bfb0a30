package prefabs

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TuningFile is the prefab holding the default game-feel parameters.
const TuningFile = "tuning.yaml"

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// Tuning gathers every tunable constant of the pickup simulation.
type Tuning struct {
	Name      string        `yaml:"name"`
	Overlap   OverlapSpec   `yaml:"overlap"`
	Buoyancy  BuoyancySpec  `yaml:"buoyancy"`
	Breakage  BreakageSpec  `yaml:"breakage"`
	Respawn   RespawnSpec   `yaml:"respawn"`
	PushChain PushChainSpec `yaml:"push_chain"`
	Physics   PhysicsSpec   `yaml:"physics"`
}

type OverlapSpec struct {
	// Tolerance is the screen-space distance under which two pickups share
	// a cell.
	Tolerance float32 `yaml:"tolerance"`
}

type BuoyancySpec struct {
	BobAmplitude float32 `yaml:"bob_amplitude"`
	// BobRate is the phase advance in radians per second.
	BobRate float32 `yaml:"bob_rate"`

	VerticalDamping   float32 `yaml:"vertical_damping"`
	HorizontalDrag    float32 `yaml:"horizontal_drag"`
	Stiffness         float32 `yaml:"stiffness"`
	FloatEnterSpeed   float32 `yaml:"float_enter_speed"`
	FloatPull         float32 `yaml:"float_pull"`
	MaxFloatSpeed     float32 `yaml:"max_float_speed"`
	Drift             float32 `yaml:"drift"`
	ExitMargin        float32 `yaml:"exit_margin"`
	SplashThreshold   float32 `yaml:"splash_threshold"`
	MalusPerSupporter float32 `yaml:"malus_per_supporter"`
	MalusSmoothing    float32 `yaml:"malus_smoothing"`
	// MalusScript optionally names a tengo script under scripts/ that
	// replaces the linear malus curve.
	MalusScript string `yaml:"malus_script"`

	LiquidSnapWindow float32 `yaml:"liquid_snap_window"`
	LiquidSnapRange  float32 `yaml:"liquid_snap_range"`
}

type BreakageSpec struct {
	DustThreshold float32 `yaml:"dust_threshold"`
}

type RespawnSpec struct {
	Epsilon        float32 `yaml:"epsilon"`
	GlitchDuration float32 `yaml:"glitch_duration"`
}

type PushChainSpec struct {
	MaxLength int `yaml:"max_length"`
}

type PhysicsSpec struct {
	Gravity      float32 `yaml:"gravity"`
	MaxFallSpeed float32 `yaml:"max_fall_speed"`
	Step         float32 `yaml:"step"`
	Friction     float32 `yaml:"friction"`
	Damping      float32 `yaml:"damping"`
}

// DefaultTuning returns the built-in values used when no file is available
// and to fill fields a file leaves out.
func DefaultTuning() Tuning {
	return Tuning{
		Name:    "default",
		Overlap: OverlapSpec{Tolerance: 0.01},
		Buoyancy: BuoyancySpec{
			BobAmplitude:      0.1,
			BobRate:           1.5,
			VerticalDamping:   0.5,
			HorizontalDrag:    0.9,
			Stiffness:         60,
			FloatEnterSpeed:   0.3,
			FloatPull:         0.1,
			MaxFloatSpeed:     2,
			Drift:             0.95,
			ExitMargin:        0.5,
			SplashThreshold:   1,
			MalusPerSupporter: -0.25,
			MalusSmoothing:    0.1,
			LiquidSnapWindow:  1,
			LiquidSnapRange:   1.5,
		},
		Breakage:  BreakageSpec{DustThreshold: 4},
		Respawn:   RespawnSpec{Epsilon: 0.002, GlitchDuration: 0.25},
		PushChain: PushChainSpec{MaxLength: 16},
		Physics: PhysicsSpec{
			Gravity:      30,
			MaxFallSpeed: 20,
			Step:         1.0 / 60.0,
			Friction:     0.8,
			Damping:      1,
		},
	}
}

// LoadTuning reads a tuning prefab and fills unset fields from the defaults.
func LoadTuning(name string) (*Tuning, error) {
	if name == "" {
		name = TuningFile
	}
	spec, err := LoadSpec[Tuning](name)
	if err != nil {
		return nil, err
	}
	spec.applyDefaults(DefaultTuning())
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", name, err)
	}
	return &spec, nil
}

func (t *Tuning) applyDefaults(d Tuning) {
	if t.Name == "" {
		t.Name = d.Name
	}
	fill(&t.Overlap.Tolerance, d.Overlap.Tolerance)

	b, db := &t.Buoyancy, d.Buoyancy
	fill(&b.BobAmplitude, db.BobAmplitude)
	fill(&b.BobRate, db.BobRate)
	fill(&b.VerticalDamping, db.VerticalDamping)
	fill(&b.HorizontalDrag, db.HorizontalDrag)
	fill(&b.Stiffness, db.Stiffness)
	fill(&b.FloatEnterSpeed, db.FloatEnterSpeed)
	fill(&b.FloatPull, db.FloatPull)
	fill(&b.MaxFloatSpeed, db.MaxFloatSpeed)
	fill(&b.Drift, db.Drift)
	fill(&b.ExitMargin, db.ExitMargin)
	fill(&b.SplashThreshold, db.SplashThreshold)
	fill(&b.MalusPerSupporter, db.MalusPerSupporter)
	fill(&b.MalusSmoothing, db.MalusSmoothing)
	fill(&b.LiquidSnapWindow, db.LiquidSnapWindow)
	fill(&b.LiquidSnapRange, db.LiquidSnapRange)

	fill(&t.Breakage.DustThreshold, d.Breakage.DustThreshold)
	fill(&t.Respawn.Epsilon, d.Respawn.Epsilon)
	if t.PushChain.MaxLength == 0 {
		t.PushChain.MaxLength = d.PushChain.MaxLength
	}

	p, dp := &t.Physics, d.Physics
	fill(&p.Gravity, dp.Gravity)
	fill(&p.MaxFallSpeed, dp.MaxFallSpeed)
	fill(&p.Step, dp.Step)
	fill(&p.Friction, dp.Friction)
	fill(&p.Damping, dp.Damping)
}

func fill(v *float32, def float32) {
	if *v == 0 {
		*v = def
	}
}

// Validate rejects values that would make the simulation diverge.
func (t *Tuning) Validate() error {
	b := t.Buoyancy
	switch {
	case t.Overlap.Tolerance < 0:
		return fmt.Errorf("overlap.tolerance must be >= 0, got %v", t.Overlap.Tolerance)
	case b.BobAmplitude < 0:
		return fmt.Errorf("buoyancy.bob_amplitude must be >= 0, got %v", b.BobAmplitude)
	case b.MalusSmoothing < 0 || b.MalusSmoothing > 1:
		return fmt.Errorf("buoyancy.malus_smoothing must be in [0,1], got %v", b.MalusSmoothing)
	case b.FloatPull <= 0 || b.FloatPull > 1:
		return fmt.Errorf("buoyancy.float_pull must be in (0,1], got %v", b.FloatPull)
	case b.VerticalDamping < 0 || b.VerticalDamping > 1:
		return fmt.Errorf("buoyancy.vertical_damping must be in [0,1], got %v", b.VerticalDamping)
	case t.Physics.Step <= 0:
		return fmt.Errorf("physics.step must be > 0, got %v", t.Physics.Step)
	case t.PushChain.MaxLength < 1:
		return fmt.Errorf("push_chain.max_length must be >= 1, got %d", t.PushChain.MaxLength)
	}
	return nil
}
