package pickups

import (
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs"
	"github.com/milk9111/trileshift/ecs/system"
	"github.com/milk9111/trileshift/obj"
	"github.com/milk9111/trileshift/prefabs"
)

const dt = float32(1.0 / 60.0)

type recorder struct {
	mu      sync.Mutex
	effects []system.Effect
	sounds  []string
}

func (r *recorder) Spawn(fx system.Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, fx)
}

func (r *recorder) Play(cue string, _ mgl32.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, cue)
}

func (r *recorder) count(kind system.EffectKind, id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, fx := range r.effects {
		if fx.Kind == kind && (id == 0 || fx.Pickup == id) {
			n++
		}
	}
	return n
}

type fixture struct {
	host    *Host
	level   *obj.Level
	camera  *obj.Camera
	gravity *obj.Gravity
	player  *obj.Player
	physics *ecs.PhysicsWorld
	rec     *recorder
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	level, err := obj.LoadLevel(name)
	if err != nil {
		t.Fatalf("LoadLevel(%s): %v", name, err)
	}
	tun := prefabs.DefaultTuning()
	f := &fixture{
		level:   level,
		camera:  obj.NewCamera(level.ViewHeight()),
		gravity: obj.NewGravity(),
		player:  obj.NewPlayerIn(level),
		rec:     &recorder{},
	}
	f.physics = ecs.NewPhysicsWorld(level, ecs.PhysicsConfig{
		Gravity:      tun.Physics.Gravity,
		MaxFallSpeed: tun.Physics.MaxFallSpeed,
		Step:         tun.Physics.Step,
		Damping:      tun.Physics.Damping,
	})
	f.physics.Track(level.Pickups()...)

	f.host, err = NewHost(Options{
		Integrator: f.physics,
		Level:      level,
		Camera:     f.camera,
		Gravity:    f.gravity,
		Player:     f.player,
		Particles:  f.rec,
		Sounds:     f.rec,
		Tuning:     &tun,
	})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if err := f.host.InitializePickups(); err != nil {
		t.Fatalf("InitializePickups: %v", err)
	}
	return f
}

func (f *fixture) run(frames int) {
	for i := 0; i < frames; i++ {
		f.host.Update(dt)
	}
}

func TestNewHostMissingCollaborators(t *testing.T) {
	_, err := NewHost(Options{Camera: obj.NewCamera(10)})
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"integrator", "level", "gravity"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not name %s", err, want)
		}
	}
	if strings.Contains(err.Error(), "camera") {
		t.Fatalf("error %q names a collaborator that was given", err)
	}
}

func TestNewHostRejectsBadTuning(t *testing.T) {
	level, err := obj.LoadLevel("loop")
	if err != nil {
		t.Fatal(err)
	}
	tun := prefabs.DefaultTuning()
	tun.PushChain.MaxLength = 0
	_, err = NewHost(Options{
		Integrator: ecs.NewPhysicsWorld(level, ecs.PhysicsConfig{Gravity: 30}),
		Level:      level,
		Camera:     obj.NewCamera(10),
		Gravity:    obj.NewGravity(),
		Tuning:     &tun,
	})
	if err == nil {
		t.Fatal("expected invalid tuning to be rejected")
	}
}

func TestInitializePickupsHarbor(t *testing.T) {
	f := newFixture(t, "harbor")
	h := f.host

	if !h.Ready() {
		t.Fatal("host should be ready after initialization")
	}
	if got := len(h.Pickups()); got != 7 {
		t.Fatalf("pickups = %d, want 7", got)
	}
	groups := h.Groups()
	if len(groups) != 1 || groups[0].ID != 1 || len(groups[0].Members) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if !groups[0].MidAir || groups[0].Driver() == nil {
		t.Fatal("a fresh group starts mid-air with a driver")
	}

	two, _ := h.Pickup(2)
	three, _ := h.Pickup(3)
	if three.VisibleOverlapper != two {
		t.Fatal("crate 3 sits behind crate 2 and should follow it")
	}
	if h.Overlaps().Links[three] != two {
		t.Fatal("overlap result should record the link")
	}

	one, _ := h.Pickup(1)
	if len(one.Decorations) != 1 {
		t.Fatal("crate 1 carries the rope decoration")
	}
	want := one.Center().Add(mgl32.Vec3{0, 0.6, 0})
	if got := one.Decorations[0].Position; !common.NearlyEqual(got, want, 1e-5) {
		t.Fatalf("decoration at %v, want %v", got, want)
	}
}

func TestFollowerTracksDriverOnScreen(t *testing.T) {
	f := newFixture(t, "harbor")
	h := f.host
	two, _ := h.Pickup(2)
	three, _ := h.Pickup(3)
	z := three.Center()[2]

	f.run(180)

	vp := f.camera.Viewpoint()
	if !common.NearlyEqual(vp.Project(two.Center()), vp.Project(three.Center()), 1e-4) {
		t.Fatalf("screen positions diverged: %v vs %v", two.Center(), three.Center())
	}
	if three.Center()[2] != z {
		t.Fatal("follower depth must not change")
	}
	if two.Center()[1] >= 7.5 {
		t.Fatal("driver never fell")
	}
	if f.rec.count(system.EffectSplash, 2) == 0 {
		t.Fatal("crate 2 should splash into the harbor")
	}
	if f.rec.count(system.EffectSplash, 3) != 0 {
		t.Fatal("followers never splash on their own")
	}
}

func TestRotationUnlinksAndLoadingGuard(t *testing.T) {
	f := newFixture(t, "harbor")
	h := f.host
	three, _ := h.Pickup(3)

	f.camera.Rotate(1)
	h.OnViewpointChanged()
	if three.Follows() {
		t.Fatal("crates 2 and 3 no longer overlap from the right")
	}

	f.level.SetLoading(true)
	f.camera.Rotate(-1)
	h.OnViewpointChanged()
	if three.Follows() {
		t.Fatal("overlaps must not resolve while the level loads")
	}

	res := h.ResolveOverlaps(true)
	if !three.Follows() || len(res.Links) == 0 {
		t.Fatal("a forced resolve runs even while loading")
	}
}

func TestTowerBreaksAndRespawns(t *testing.T) {
	f := newFixture(t, "tower")
	h := f.host
	bomb, _ := h.Pickup(15)

	f.run(300)

	if f.rec.count(system.EffectExplosion, 15) != 1 {
		t.Fatalf("bomb explosions = %d, want 1", f.rec.count(system.EffectExplosion, 15))
	}
	if f.rec.count(system.EffectGlitch, 15) != 1 {
		t.Fatal("bomb should respawn once")
	}
	if bomb.Removed || bomb.Physics() == nil || bomb.Instance.Hidden {
		t.Fatal("bomb should be back in the level")
	}
	for _, id := range []int{16, 17} {
		if got := f.rec.count(system.EffectExplosion, id); got != 1 {
			t.Fatalf("heavy crate %d explosions = %d, want 1", id, got)
		}
	}
	if g := h.Groups(); len(g) != 1 || len(g[0].Members) != 2 {
		t.Fatal("the heavy group respawns whole")
	}
	if _, ok := h.Pickup(14); !ok {
		t.Fatal("vase resting on the pillar must survive")
	}
	for _, cue := range f.rec.sounds {
		if cue == "vase_shatter" {
			t.Fatal("vase never fell")
		}
	}
}

func TestOnGravityChanged(t *testing.T) {
	f := newFixture(t, "tower")
	h := f.host
	f.run(120)

	f.gravity.Flip()
	f.physics.SetGravitySign(f.gravity.Sign())
	h.OnGravityChanged()

	for _, p := range h.Pickups() {
		st := p.Physics()
		if st.Grounded || p.WasGrounded {
			t.Fatalf("%v kept its ground after the flip", p.Instance)
		}
		if p.FlightApex != -p.Center()[1] {
			t.Fatalf("%v apex %v not reset to the flipped height", p.Instance, p.FlightApex)
		}
	}
	for _, g := range h.Groups() {
		if !g.MidAir {
			t.Fatalf("group %d should be mid-air", g.ID)
		}
	}
}

func TestSetTuning(t *testing.T) {
	f := newFixture(t, "loop")
	h := f.host
	before := h.Tuning()

	bad := prefabs.DefaultTuning()
	bad.Buoyancy.FloatPull = 0
	if err := h.SetTuning(&bad); err == nil {
		t.Fatal("expected invalid tuning to be rejected")
	}
	if err := h.SetTuning(nil); err == nil {
		t.Fatal("expected nil tuning to be rejected")
	}
	if h.Tuning() != before {
		t.Fatal("rejected tuning replaced the active one")
	}

	good := prefabs.DefaultTuning()
	good.Name = "tweaked"
	good.Overlap.Tolerance = 0.05
	if err := h.SetTuning(&good); err != nil {
		t.Fatalf("SetTuning: %v", err)
	}
	if h.Tuning().Name != "tweaked" {
		t.Fatal("tuning not applied")
	}
}

func TestAfterRunsOnUpdate(t *testing.T) {
	f := newFixture(t, "loop")
	h := f.host
	ran := 0
	h.After(0.1, func() { ran++ })

	f.run(3)
	if ran != 0 {
		t.Fatal("ran too early")
	}
	f.run(10)
	if ran != 1 {
		t.Fatalf("ran %d times, want 1", ran)
	}
}

func TestReinitializeDropsDeferred(t *testing.T) {
	f := newFixture(t, "loop")
	h := f.host
	h.After(0.05, func() { t.Fatal("deferred call survived a rebuild") })

	if err := h.InitializePickups(); err != nil {
		t.Fatal(err)
	}
	f.run(10)
	if got := len(h.Pickups()); got != 2 {
		t.Fatalf("pickups = %d, want 2", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	f := newFixture(t, "harbor")
	h := f.host

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		f.run(60)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 60; i++ {
			_ = h.Pickups()
			_ = h.Overlaps()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			h.OnLiquidChanged()
			_ = h.LastFrame()
		}
	}()
	wg.Wait()

	if h.LastFrame() == nil {
		t.Fatal("no frame recorded")
	}
}

// lockCheckIntegrator records whether the host lock was held while the
// projection was rebuilt.
type lockCheckIntegrator struct {
	*ecs.PhysicsWorld
	host     *Host
	calls    int
	unlocked int
}

func (l *lockCheckIntegrator) SetViewpoint(vp common.Viewpoint) {
	l.calls++
	if l.host.mu.TryLock() {
		l.unlocked++
		l.host.mu.Unlock()
	}
	l.PhysicsWorld.SetViewpoint(vp)
}

func TestViewpointReprojectsUnderLock(t *testing.T) {
	f := newFixture(t, "harbor")
	spy := &lockCheckIntegrator{PhysicsWorld: f.physics, host: f.host}
	f.host.env.Integrator = spy

	f.camera.Rotate(1)
	f.host.OnViewpointChanged()
	f.run(10)

	if spy.calls != 1 {
		t.Fatalf("SetViewpoint calls = %d, want 1", spy.calls)
	}
	if spy.unlocked != 0 {
		t.Fatal("projection rebuilt without holding the host lock")
	}
}
