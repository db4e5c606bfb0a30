package main

import (
	"fmt"
	"image/color"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/milk9111/trileshift/assets"
	"github.com/milk9111/trileshift/ecs/system"
	"github.com/milk9111/trileshift/obj"
	"github.com/milk9111/trileshift/prefabs"
	"github.com/milk9111/trileshift/sim"
	"github.com/milk9111/trileshift/trile"
	"golang.org/x/image/colornames"
)

const (
	baseWidth  = 1280
	baseHeight = 720
)

// flash is a short-lived marker drawn where an effect fired.
type flash struct {
	fx  system.Effect
	ttl int
}

type Game struct {
	frames int
	debug  bool
	paused bool
	mute   bool

	session *sim.Session
	input   *obj.Input
	watcher *prefabs.Watcher
	flashes []flash
	last    string
}

func NewGame(levelName string, debug, mute bool) (*Game, error) {
	if levelName == "" {
		levelName = "harbor"
	}
	tuning, err := prefabs.LoadTuning(prefabs.TuningFile)
	if err != nil {
		return nil, err
	}
	s, err := sim.NewSession(levelName, tuning)
	if err != nil {
		return nil, err
	}
	g := &Game{
		debug:   debug,
		mute:    mute,
		session: s,
		input:   obj.NewInput(),
	}
	if w, err := prefabs.NewWatcher(prefabs.Dir); err != nil {
		log.Printf("viewer: tuning hot reload disabled: %v", err)
	} else {
		g.watcher = w
	}
	return g, nil
}

func (g *Game) Update() error {
	g.frames++
	g.input.Update()
	s := g.session

	if g.watcher != nil {
		g.reloadTuning()
	}
	if g.input.Rotate != 0 {
		s.Rotate(g.input.Rotate)
	}
	if g.input.FlipGravity {
		s.FlipGravity()
	}
	if g.input.Liquid != 0 {
		if kind, h := s.Level.Liquid(); kind != trile.LiquidNone {
			s.SetLiquid(kind, h+float32(g.input.Liquid))
		}
	}
	if g.input.Reload {
		if err := s.Reload(); err != nil {
			log.Printf("viewer: reload: %v", err)
		}
		g.flashes = g.flashes[:0]
	}
	if g.input.Pause {
		g.paused = !g.paused
	}

	if !g.paused || g.input.Step {
		s.Step(float32(1.0 / float64(ebiten.TPS())))
	}

	fx, sounds := s.Drain()
	for _, x := range fx {
		g.flashes = append(g.flashes, flash{fx: x, ttl: 20})
		g.last = fmt.Sprintf("%s #%d", x.Kind, x.Pickup)
	}
	if !g.mute {
		for _, cue := range sounds {
			assets.Play(cue)
		}
	}
	live := g.flashes[:0]
	for _, f := range g.flashes {
		if f.ttl--; f.ttl > 0 {
			live = append(live, f)
		}
	}
	g.flashes = live

	size := s.Level.Size()
	cx, cy := s.Camera.Viewpoint().Screen(size.Mul(0.5))
	s.Camera.Follow(cx, cy)
	return nil
}

func (g *Game) reloadTuning() {
	changed := false
	for _, p := range g.watcher.Poll() {
		changed = changed || prefabs.IsTuningChange(p)
	}
	if !changed {
		return
	}
	t, err := prefabs.LoadTuning(prefabs.TuningFile)
	if err != nil {
		log.Printf("viewer: reload tuning: %v", err)
		return
	}
	if err := g.session.ApplyTuning(t); err != nil {
		log.Printf("viewer: apply tuning: %v", err)
	}
}

// scale is the number of pixels per world unit.
func (g *Game) scale() float32 {
	h := g.session.Camera.ViewHeight()
	if h <= 0 {
		h = 12
	}
	return baseHeight / h
}

func (g *Game) toScreen(p mgl32.Vec3) (float32, float32) {
	s, y := g.session.Camera.Viewpoint().Screen(p)
	k := g.scale()
	return baseWidth/2 + (s-g.session.Camera.PosX)*k, baseHeight/2 - (y-g.session.Camera.PosY)*k
}

func kindColor(k trile.Kind) color.Color {
	switch k {
	case trile.KindSolid:
		return colornames.Slategray
	case trile.KindCrate:
		return colornames.Peru
	case trile.KindHeavyCrate:
		return colornames.Saddlebrown
	case trile.KindVase:
		return colornames.Lightskyblue
	case trile.KindBomb:
		return colornames.Crimson
	case trile.KindCubeBit:
		return colornames.Gold
	}
	return colornames.White
}

func effectColor(k system.EffectKind) color.Color {
	switch k {
	case system.EffectSplash:
		return colornames.Aqua
	case system.EffectExplosion:
		return colornames.Orangered
	case system.EffectGlitch:
		return colornames.Magenta
	}
	return colornames.Wheat
}

func (g *Game) Draw(screen *ebiten.Image) {
	s := g.session
	vp := s.Camera.Viewpoint()
	k := g.scale()
	screen.Fill(colornames.Midnightblue)

	insts := s.Level.Instances()
	// far to near so nearer blocks cover the ones behind them
	sort.SliceStable(insts, func(i, j int) bool { return vp.Depth(insts[i].Center) > vp.Depth(insts[j].Center) })
	for _, inst := range insts {
		if inst.Hidden {
			continue
		}
		x, y := g.toScreen(inst.Center)
		half := k / 2
		vector.FillRect(screen, x-half, y-half, k, k, kindColor(inst.Kind), false)
		if inst.Kind != trile.KindSolid {
			vector.StrokeRect(screen, x-half, y-half, k, k, 1, colornames.Black, false)
		}
	}

	if kind, h := s.Level.Liquid(); kind != trile.LiquidNone {
		_, y := g.toScreen(mgl32.Vec3{0, h, 0})
		fill := color.RGBA{R: 30, G: 90, B: 200, A: 90}
		if kind == trile.LiquidLava {
			fill = color.RGBA{R: 220, G: 70, B: 20, A: 110}
		}
		if y < baseHeight {
			vector.FillRect(screen, 0, y, baseWidth, baseHeight-y, fill, false)
		}
		vector.StrokeLine(screen, 0, y, baseWidth, y, 2, colornames.Lightblue, false)
	}

	for _, f := range g.flashes {
		x, y := g.toScreen(f.fx.At)
		r := k * (0.3 + 0.05*float32(20-f.ttl))
		vector.StrokeRect(screen, x-r, y-r, 2*r, 2*r, 2, effectColor(f.fx.Kind), true)
	}

	if g.debug {
		for _, p := range s.Host.Pickups() {
			if d := p.VisibleOverlapper; d != nil {
				x0, y0 := g.toScreen(p.Center())
				x1, y1 := g.toScreen(d.Center())
				vector.StrokeLine(screen, x0, y0, x1, y1, 2, colornames.Lime, true)
			}
		}
	}

	state := "running"
	if g.paused {
		state = "paused"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"%s  view: %s  gravity: %+.0f  frame: %d  %s  FPS: %.1f\nQ/E rotate  G gravity  R reload  P pause  N step  PgUp/PgDn liquid\n%s",
		s.Level.Name, vp, s.Gravity.Sign(), s.Frame(), state, ebiten.ActualFPS(), g.last,
	))
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
