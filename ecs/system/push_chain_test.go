package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

// row places a pusher and n pickups in a row along +x, one unit apart,
// resting on the floor.
func row(h *harness, n int) []*component.Pickup {
	out := []*component.Pickup{h.add(1, trile.KindCrate, mgl32.Vec3{0.5, 0.5, 2.5})}
	for i := 1; i <= n; i++ {
		out = append(out, h.add(i+1, trile.KindCrate, mgl32.Vec3{0.5 + float32(i), 0.5, 2.5}))
	}
	return out
}

// shove advances the pusher once with velocity v along +x, the way the
// integrate pass does, and propagates the resulting push.
func shove(h *harness, pusher *component.Pickup, v float32) PushResult {
	h.begin()
	st := pusher.Physics()
	st.Velocity[0] = v
	h.integ.Advance(st, false, false)
	return PropagatePush(h.env, pusher, mgl32.Vec3{v, 0, 0})
}

func TestPushChainStopsAtOpposed(t *testing.T) {
	h := newHarness()
	ps := row(h, 3)
	ps[3].Physics().Velocity[0] = -1

	res := shove(h, ps[0], 1)

	if res.Stop != StopOpposed {
		t.Fatalf("stop = %v, want %v", res.Stop, StopOpposed)
	}
	if len(res.Displaced) != 2 || res.Displaced[0] != ps[1] || res.Displaced[1] != ps[2] {
		t.Fatalf("displaced %d pickups, want P1 and P2", len(res.Displaced))
	}
	if ps[3].Center()[0] != 3.5 {
		t.Fatalf("opposed pickup moved to %v", ps[3].Center())
	}
	for _, p := range res.Displaced {
		if common.Abs(h.env.Frame.Motion[p][0]-1.0/60) > 1e-5 {
			t.Fatalf("%v motion = %v, want one frame of push", p.Instance, h.env.Frame.Motion[p])
		}
	}
}

func TestPushChainRunsClear(t *testing.T) {
	h := newHarness()
	ps := row(h, 2)

	res := shove(h, ps[0], 1)

	if res.Stop != StopClear || len(res.Displaced) != 2 {
		t.Fatalf("stop = %v displaced = %d, want clear and 2", res.Stop, len(res.Displaced))
	}
}

func TestPushChainMovesRiders(t *testing.T) {
	h := newHarness()
	h.integ.damping = 0.5
	ps := row(h, 1)
	rider := h.add(10, trile.KindCubeBit, mgl32.Vec3{1.5, 1.5, 2.5})
	rider.Physics().Ground = trile.Ground{First: ps[1].Instance}
	rider.Physics().Grounded = true

	shove(h, ps[0], 1)

	base := h.env.Frame.Motion[ps[1]][0]
	got := rider.Center()[0] - 1.5
	if common.Abs(got-base/0.5) > 1e-5 {
		t.Fatalf("rider moved %v, want %v", got, base/0.5)
	}
}

func TestPushChainStops(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness, ps []*component.Pickup)
		want  StopReason
		moved int
	}{
		{
			name: "same group",
			setup: func(h *harness, ps []*component.Pickup) {
				h.group(1, ps[0], ps[1])
			},
			want: StopSameGroup,
		},
		{
			name: "too long",
			setup: func(h *harness, _ []*component.Pickup) {
				h.env.Tuning.PushChain.MaxLength = 1
			},
			want:  StopTooLong,
			moved: 1,
		},
		{
			name: "static wall",
			setup: func(h *harness, ps []*component.Pickup) {
				wall := trile.NewInstance(-1, trile.KindSolid, mgl32.Vec3{1, 0, 2})
				h.integ.insts = []*trile.Instance{ps[0].Instance, wall}
				wall.Physics = &trile.PhysicsState{Instance: wall}
			},
			want: StopNotPickup,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			ps := row(h, 2)
			tt.setup(h, ps)

			res := shove(h, ps[0], 1)

			if res.Stop != tt.want {
				t.Fatalf("stop = %v, want %v", res.Stop, tt.want)
			}
			if len(res.Displaced) != tt.moved {
				t.Fatalf("displaced = %d, want %d", len(res.Displaced), tt.moved)
			}
		})
	}
}

func TestPushChainNotAhead(t *testing.T) {
	h := newHarness()
	ps := row(h, 1)

	h.begin()
	ps[0].Physics().WallCollision = trile.Collision{Collided: true, Instance: ps[1].Instance}
	res := PropagatePush(h.env, ps[0], mgl32.Vec3{-1, 0, 0})

	if res.Stop != StopNotAhead || len(res.Displaced) != 0 {
		t.Fatalf("stop = %v displaced = %d", res.Stop, len(res.Displaced))
	}
}

func TestIntegratePushesFromDriver(t *testing.T) {
	h := newHarness()
	ps := row(h, 1)
	ps[0].Physics().Velocity[0] = 1

	h.step()

	if ps[1].Center()[0] <= 1.5 {
		t.Fatalf("blocked pickup not pushed: %v", ps[1].Center())
	}
}

func TestPushChainMovesOtherGroupThroughDriver(t *testing.T) {
	h := newHarness()
	pusher := h.add(1, trile.KindCrate, mgl32.Vec3{0.5, 0.5, 2.5})
	driver := h.add(2, trile.KindCrate, mgl32.Vec3{2.5, 0.5, 2.5})
	member := h.add(3, trile.KindCrate, mgl32.Vec3{1.5, 0.5, 2.5})
	g := h.group(1, member, driver)
	if g.Driver() != driver || !member.Physics().Puppet {
		t.Fatal("lowest ID should drive the group")
	}

	res := shove(h, pusher, 3)

	if res.Stop != StopClear || len(res.Displaced) != 1 || res.Displaced[0] != driver {
		t.Fatalf("stop = %v displaced = %v, want the group driver", res.Stop, res.Displaced)
	}
	moved := driver.Center()[0] - 2.5
	if moved <= 0 {
		t.Fatalf("driver did not move: %v", driver.Center())
	}

	NewGroupSyncSystem(h.env).Update(h.w)

	if got := member.Center()[0] - 1.5; common.Abs(got-moved) > 1e-5 {
		t.Fatalf("member moved %v, driver moved %v", got, moved)
	}
}
