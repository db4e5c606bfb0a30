package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

func markLost(p *component.Pickup) {
	st := p.Physics()
	st.Vanished = true
	st.ShouldRespawn = true
	p.Instance.Hidden = true
	p.Instance.Center = mgl32.Vec3{4.5, -40, 2.5}
}

func TestRespawnIsIdempotent(t *testing.T) {
	h := newHarness()
	p := h.add(1, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)

	f := h.begin()
	rs := NewRespawnSystem(h.env)
	rs.Update(h.w)
	rs.Update(h.w)

	if len(h.level.restored) != 1 {
		t.Fatalf("restored %d times, want 1", len(h.level.restored))
	}
	if got := len(effectsOf(h.w.Events().Drain(), EffectGlitch)); got != 1 {
		t.Fatalf("glitch effects = %d, want 1", got)
	}
	if !f.Respawned {
		t.Fatal("frame should record the respawn")
	}
	st := p.Physics()
	if st.ShouldRespawn || st.Vanished || !st.Respawned {
		t.Fatalf("state after respawn: %+v", st)
	}
	if p.Center()[1] <= p.OriginalCenter[1] {
		t.Fatal("respawn should lift the pickup by epsilon against gravity")
	}
}

func TestRespawnWaitsForFreeFall(t *testing.T) {
	h := newHarness()
	p := h.add(1, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)
	h.player.freeFalling = true

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)
	if !p.Physics().ShouldRespawn || len(h.level.restored) != 0 {
		t.Fatal("respawned while the player was free-falling")
	}

	h.player.freeFalling = false
	h.begin()
	NewRespawnSystem(h.env).Update(h.w)
	if p.Physics().ShouldRespawn || len(h.level.restored) != 1 {
		t.Fatal("respawn did not resume once the player landed")
	}
}

func TestRespawnFlippedGravity(t *testing.T) {
	h := newHarness()
	h.env.Gravity = fakeGravity(-1)
	p := h.add(1, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)

	want := p.OriginalCenter[1] - h.env.Tuning.Respawn.Epsilon
	if got := p.Center()[1]; got != want {
		t.Fatalf("center y = %v, want %v", got, want)
	}
	if p.FlightApex != -p.Center()[1] {
		t.Fatalf("apex = %v, want gravity-relative %v", p.FlightApex, -p.Center()[1])
	}
}

func TestRespawnWholeGroup(t *testing.T) {
	h := newHarness()
	a := h.add(1, trile.KindHeavyCrate, mgl32.Vec3{4.5, 0.5, 2.5})
	b := h.add(2, trile.KindHeavyCrate, mgl32.Vec3{5.5, 0.5, 2.5})
	g := h.group(1, a, b)
	g.MidAir = false
	b.Instance.Center = mgl32.Vec3{5.5, -30, 2.5}
	markLost(b)

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)

	if len(h.level.restored) != 2 {
		t.Fatalf("restored %d members, want 2", len(h.level.restored))
	}
	if !g.MidAir {
		t.Fatal("respawned group should be mid-air")
	}
	if n := drivers(g); n != 1 {
		t.Fatalf("drivers = %d, want 1", n)
	}
	if a.Center().Sub(b.Center()) != a.OriginalCenter.Sub(b.OriginalCenter) {
		t.Fatal("group layout not restored")
	}
}

func TestRespawnUnhidesAfterGlitch(t *testing.T) {
	h := newHarness()
	p := h.add(1, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)
	if !p.Instance.Hidden {
		t.Fatal("pickup should be hidden during the glitch")
	}

	for i := 0; i < 14; i++ {
		h.begin()
	}
	if !p.Instance.Hidden {
		t.Fatal("unhidden before the glitch ended")
	}
	for i := 0; i < 2; i++ {
		h.begin()
	}
	if p.Instance.Hidden {
		t.Fatal("still hidden after the glitch")
	}
}

func TestRespawnUnhideSkippedWhenVanishedAgain(t *testing.T) {
	h := newHarness()
	p := h.add(1, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)
	p.Physics().Vanished = true

	for i := 0; i < 30; i++ {
		h.begin()
	}
	if !p.Instance.Hidden {
		t.Fatal("a pickup that vanished again must stay hidden")
	}
}

func TestRespawnSkipsRemoved(t *testing.T) {
	h := newHarness()
	p := h.add(1, trile.KindVase, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)
	p.Removed = true

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)

	if len(h.level.restored) != 0 {
		t.Fatal("removed pickups never come back")
	}
}

func TestRespawnWaitsForFreeCell(t *testing.T) {
	h := newHarness()
	p := h.add(1, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	blocker := h.add(2, trile.KindCrate, mgl32.Vec3{4.5, 3.5, 2.5})
	markLost(p)

	h.begin()
	NewRespawnSystem(h.env).Update(h.w)
	if !p.Physics().ShouldRespawn || len(h.level.restored) != 0 {
		t.Fatal("respawned into an occupied cell")
	}

	blocker.Instance.Center = mgl32.Vec3{6.5, 3.5, 2.5}
	h.begin()
	NewRespawnSystem(h.env).Update(h.w)
	if p.Physics().ShouldRespawn || len(h.level.restored) != 1 {
		t.Fatal("respawn did not resume once the cell was free")
	}
}
