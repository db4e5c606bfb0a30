package obj

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/levels"
	"github.com/milk9111/trileshift/trile"
)

func loadHarbor(t *testing.T) *Level {
	t.Helper()
	l, err := LoadLevel("harbor")
	if err != nil {
		t.Fatalf("LoadLevel: %v", err)
	}
	return l
}

func TestLoadLevelHarbor(t *testing.T) {
	l := loadHarbor(t)

	if got := len(l.Pickups()); got != 7 {
		t.Fatalf("pickups = %d, want 7", got)
	}
	if got := len(l.Instances()); got != 514+7 {
		t.Fatalf("instances = %d, want %d", got, 514+7)
	}
	if l.ViewHeight() != 12 || l.Loops() {
		t.Fatalf("view height %v loops %v", l.ViewHeight(), l.Loops())
	}
	if kind, h := l.Liquid(); kind != trile.LiquidWater || h != 3 {
		t.Fatalf("liquid = %q at %v", kind, h)
	}
	if cue, ok := l.BreakSound(trile.KindVase); !ok || cue != "vase_shatter" {
		t.Fatalf("vase cue = %q %v", cue, ok)
	}
	if _, ok := l.BreakSound(trile.KindBomb); ok {
		t.Fatal("bomb has no cue in harbor")
	}

	inst, ok := l.InstanceAt(mgl32.Vec3{2, 5, 4})
	if !ok || inst.ID != 1 {
		t.Fatalf("InstanceAt(2,5,4) = %v", inst)
	}
	if decos := l.Decorations(inst); len(decos) != 1 || decos[0].Name != "rope" {
		t.Fatalf("decorations = %v", decos)
	}
	four, _ := l.Instance(4)
	five, _ := l.Instance(5)
	if four.GroupID != 1 || five.GroupID != 1 {
		t.Fatal("heavy crates should share group 1")
	}
	for _, inst := range l.Instances() {
		if inst.Kind == trile.KindSolid && (inst.ID >= 0 || inst.Physics != nil) {
			t.Fatalf("static block %v has id %d physics %v", inst, inst.ID, inst.Physics)
		}
	}
}

func TestNewLevelRejectsUnknownKind(t *testing.T) {
	def := &levels.Level{
		Name:    "bad",
		Size:    [3]int{4, 4, 4},
		Pickups: []levels.Pickup{{ID: 1, Kind: "barrel", Cell: [3]int{1, 1, 1}}},
	}
	if _, err := NewLevel(def); err == nil {
		t.Fatal("expected an error for an unknown pickup kind")
	}
	if _, err := NewLevel(nil); err == nil {
		t.Fatal("expected an error for a nil definition")
	}
}

func TestUpdateInstanceReindexes(t *testing.T) {
	l := loadHarbor(t)
	inst, _ := l.Instance(7)
	from := inst.Cell()

	inst.Center = inst.Center.Add(mgl32.Vec3{0, 0, 3})
	l.UpdateInstance(inst)

	if got, ok := l.InstanceAt(from.Add(mgl32.Vec3{0, 0, 3})); !ok || got != inst {
		t.Fatal("instance not found at its new cell")
	}
	if _, ok := l.InstanceAt(from); ok {
		t.Fatal("old cell still indexed")
	}
	if l.Updates != 1 {
		t.Fatalf("updates = %d, want 1", l.Updates)
	}
}

func TestClearAndResetTrile(t *testing.T) {
	l := loadHarbor(t)
	vase, _ := l.Instance(6)
	cell := vase.Cell()

	l.ClearTrile(vase)

	if vase.Physics != nil || !vase.Hidden {
		t.Fatal("cleared instance should lose physics and hide")
	}
	if _, ok := l.Instance(6); ok {
		t.Fatal("cleared instance still reachable by id")
	}
	if _, ok := l.InstanceAt(cell); ok {
		t.Fatal("cleared instance still in the grid")
	}
	if got := len(l.Pickups()); got != 6 {
		t.Fatalf("pickups = %d, want 6", got)
	}
	l.RestoreTrile(vase)
	if _, ok := l.InstanceAt(cell); ok {
		t.Fatal("restore must not bring back a cleared instance")
	}

	if err := l.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	fresh, ok := l.Instance(6)
	if !ok || fresh.Physics == nil || fresh.Hidden {
		t.Fatal("reset should rebuild the vase")
	}
}

func TestSetLiquidAndLoading(t *testing.T) {
	l := loadHarbor(t)
	l.SetLiquid(trile.LiquidLava, 5)
	if kind, h := l.Liquid(); kind != trile.LiquidLava || h != 5 {
		t.Fatalf("liquid = %q at %v", kind, h)
	}
	l.SetLoading(true)
	if !l.Loading() {
		t.Fatal("loading flag not set")
	}
}
