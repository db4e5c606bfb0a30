package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/caarlos0/env/v11"
	"github.com/milk9111/trileshift/prefabs"
	"github.com/milk9111/trileshift/sim"
	"github.com/milk9111/trileshift/trace"
)

// config is read from the environment first; flags override it.
type config struct {
	Level       string  `env:"TRILESHIFT_LEVEL"        envDefault:"harbor"`
	Frames      int     `env:"TRILESHIFT_FRAMES"       envDefault:"600"`
	Dt          float64 `env:"TRILESHIFT_DT"           envDefault:"0.016666667"`
	RotateEvery int     `env:"TRILESHIFT_ROTATE_EVERY" envDefault:"0"`
	FlipAt      int     `env:"TRILESHIFT_FLIP_AT"      envDefault:"0"`
	Tuning      string  `env:"TRILESHIFT_TUNING"       envDefault:"tuning.yaml"`
	PrefabsDir  string  `env:"TRILESHIFT_PREFABS_DIR"  envDefault:"prefabs"`
	Trace       string  `env:"TRILESHIFT_TRACE"`
	Watch       bool    `env:"TRILESHIFT_WATCH"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("pickupsim: parse env: %v", err)
	}
	flag.StringVar(&cfg.Level, "level", cfg.Level, "level name in levels/")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "number of frames to simulate")
	flag.Float64Var(&cfg.Dt, "dt", cfg.Dt, "seconds per frame")
	flag.IntVar(&cfg.RotateEvery, "rotate", cfg.RotateEvery, "rotate the camera every N frames (0 disables)")
	flag.IntVar(&cfg.FlipAt, "flip", cfg.FlipAt, "flip gravity at this frame (0 disables)")
	flag.StringVar(&cfg.Tuning, "tuning", cfg.Tuning, "tuning file under the prefabs dir")
	flag.StringVar(&cfg.PrefabsDir, "prefabs", cfg.PrefabsDir, "prefabs directory checked before the embedded copy")
	flag.StringVar(&cfg.Trace, "trace", cfg.Trace, "write a .jsonl.zst frame trace to this path")
	flag.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload tuning when the prefabs dir changes")
	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config) error {
	prefabs.Dir = cfg.PrefabsDir
	tuning, err := prefabs.LoadTuning(cfg.Tuning)
	if err != nil {
		return fmt.Errorf("pickupsim: %w", err)
	}

	s, err := sim.NewSession(cfg.Level, tuning)
	if err != nil {
		return fmt.Errorf("pickupsim: %w", err)
	}

	var rec *trace.Recorder
	if cfg.Trace != "" {
		rec, err = trace.Create(cfg.Trace)
		if err != nil {
			return fmt.Errorf("pickupsim: %w", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("pickupsim: close trace: %v", err)
			}
		}()
	}

	var watcher *prefabs.Watcher
	if cfg.Watch {
		watcher, err = prefabs.NewWatcher(cfg.PrefabsDir, filepath.Join(cfg.PrefabsDir, "scripts"))
		if err != nil {
			log.Printf("pickupsim: watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	effects := make(map[string]int)
	sounds := make(map[string]int)
	dt := float32(cfg.Dt)
	for i := 1; i <= cfg.Frames; i++ {
		if watcher != nil {
			reloadTuning(s, watcher, cfg.Tuning)
		}
		if cfg.RotateEvery > 0 && i%cfg.RotateEvery == 0 {
			s.Rotate(1)
		}
		if cfg.FlipAt > 0 && i == cfg.FlipAt {
			s.FlipGravity()
		}

		s.Step(dt)

		fx, snd := s.Drain()
		for _, x := range fx {
			effects[string(x.Kind)]++
		}
		for _, cue := range snd {
			sounds[cue]++
		}
		if rec != nil {
			if err := rec.Write(s.Capture(fx, snd)); err != nil {
				return fmt.Errorf("pickupsim: %w", err)
			}
		}
	}

	summarize(s, effects, sounds)
	if rec != nil {
		fmt.Printf("trace: %d frames -> %s\n", rec.Len(), rec.Path())
	}
	return nil
}

func reloadTuning(s *sim.Session, w *prefabs.Watcher, name string) {
	changed := false
	for _, p := range w.Poll() {
		if prefabs.IsTuningChange(p) {
			changed = true
		}
	}
	if !changed {
		return
	}
	t, err := prefabs.LoadTuning(name)
	if err != nil {
		log.Printf("pickupsim: reload tuning: %v", err)
		return
	}
	if err := s.ApplyTuning(t); err != nil {
		log.Printf("pickupsim: reload tuning: %v", err)
	}
}

func summarize(s *sim.Session, effects, sounds map[string]int) {
	fmt.Fprintf(os.Stdout, "level %s after %d frames (%s view)\n", s.Level.Name, s.Frame(), s.Camera.Viewpoint())
	for _, p := range s.Host.Pickups() {
		state := "airborne"
		if st := p.Physics(); st != nil {
			switch {
			case st.Floating:
				state = "floating"
			case st.Grounded:
				state = "grounded"
			}
			if p.Follows() {
				state = fmt.Sprintf("following %d", p.VisibleOverlapper.ID)
			}
		}
		c := p.Center()
		fmt.Printf("  %3d %-12s (%6.2f %6.2f %6.2f) %s\n", p.ID, p.Instance.Kind, c[0], c[1], c[2], state)
	}
	printCounts("effects", effects)
	printCounts("sounds", sounds)
}

func printCounts(title string, m map[string]int) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-14s %d\n", k, m[k])
	}
}
