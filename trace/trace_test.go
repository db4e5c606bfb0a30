package trace

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/milk9111/trileshift/common"
	"github.com/milk9111/trileshift/ecs/component"
	"github.com/milk9111/trileshift/trile"
)

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "harbor.jsonl.zst")
	rec, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a := component.NewPickup(trile.NewInstance(1, trile.KindCrate, mgl32.Vec3{2, 3, 4}), 1)
	b := component.NewPickup(trile.NewInstance(2, trile.KindCrate, mgl32.Vec3{2, 3, 7}), 1)
	b.VisibleOverlapper = a
	a.Physics().Floating = true

	for i := 0; i < 3; i++ {
		e := Capture(i, float32(i)/60, common.ViewRight, 1, []*component.Pickup{a, b})
		if i == 2 {
			e.Effects = []Effect{{Kind: "splash", Pickup: 1, At: mgl32.Vec3{2.5, 3, 4.5}}}
			e.Sounds = []string{"vase_shatter"}
		}
		if err := rec.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if rec.Len() != 3 {
		t.Fatalf("Len = %d, want 3", rec.Len())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := rec.Write(Entry{}); err == nil {
		t.Fatal("write after close should fail")
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	last := got[2]
	if last.Frame != 2 || last.Viewpoint != "right" {
		t.Fatalf("last entry = %+v", last)
	}
	if len(last.Pickups) != 2 || last.Pickups[1].Follows != 1 || !last.Pickups[0].Floating {
		t.Fatalf("pickups = %+v", last.Pickups)
	}
	if last.Pickups[0].Center != (mgl32.Vec3{2.5, 3.5, 4.5}) {
		t.Fatalf("center = %v", last.Pickups[0].Center)
	}
	if len(last.Effects) != 1 || len(last.Sounds) != 1 {
		t.Fatalf("effects %v sounds %v", last.Effects, last.Sounds)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.jsonl.zst")); err == nil {
		t.Fatal("expected an error")
	}
}
