package prefabs

import (
	"fmt"
	"log"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// MalusFunc maps a supporter count to the target float offset.
type MalusFunc func(supporters int) float32

// LinearMalus is the built-in curve: every supporter sinks the float line by
// perSupporter.
func LinearMalus(perSupporter float32) MalusFunc {
	return func(supporters int) float32 {
		return float32(supporters) * perSupporter
	}
}

// NewMalus builds the malus curve described by the buoyancy tuning. Without
// a script it is linear.
func NewMalus(spec BuoyancySpec) (MalusFunc, error) {
	if spec.MalusScript == "" {
		return LinearMalus(spec.MalusPerSupporter), nil
	}
	sm, err := compileMalusScript(spec.MalusScript, spec.MalusPerSupporter)
	if err != nil {
		return nil, err
	}
	return sm.Eval, nil
}

// scriptMalus runs a tengo script that reads `supporters` and
// `per_supporter` and assigns `malus`. Results are memoized per count.
type scriptMalus struct {
	path     string
	fallback MalusFunc

	mu       sync.Mutex
	compiled *tengo.Compiled
	cache    map[int]float32
	failed   bool
}

func compileMalusScript(path string, perSupporter float32) (*scriptMalus, error) {
	src, err := LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load malus script %s: %w", path, err)
	}

	script := tengo.NewScript(src)
	_ = script.Add("supporters", 0)
	_ = script.Add("per_supporter", float64(perSupporter))
	_ = script.Add("malus", 0.0)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("prefabs: compile malus script %s: %w", path, err)
	}

	sm := &scriptMalus{
		path:     path,
		fallback: LinearMalus(perSupporter),
		compiled: compiled,
		cache:    make(map[int]float32),
	}
	if _, err := sm.run(0); err != nil {
		return nil, fmt.Errorf("prefabs: run malus script %s: %w", path, err)
	}
	return sm, nil
}

// Eval never fails: a script error is logged once and the linear curve takes
// over.
func (s *scriptMalus) Eval(supporters int) float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache[supporters]; ok {
		return v
	}
	if s.failed {
		return s.fallback(supporters)
	}
	v, err := s.run(supporters)
	if err != nil {
		log.Printf("prefabs: malus script %s: %v (falling back to linear)", s.path, err)
		s.failed = true
		return s.fallback(supporters)
	}
	s.cache[supporters] = v
	return v
}

func (s *scriptMalus) run(supporters int) (float32, error) {
	if err := s.compiled.Set("supporters", supporters); err != nil {
		return 0, err
	}
	if err := s.compiled.Set("malus", 0.0); err != nil {
		return 0, err
	}
	if err := s.compiled.Run(); err != nil {
		return 0, err
	}
	out := s.compiled.Get("malus")
	switch out.ValueType() {
	case "float":
		return float32(out.Float()), nil
	case "int":
		return float32(out.Int()), nil
	}
	return 0, fmt.Errorf("malus must be a number, got %s", out.ValueType())
}
