package ink

import (
	"testing"

	"github.com/gogpu/gg"
)

func paintAll(t *testing.T, dc *gg.Context, hex string) {
	t.Helper()
	dc.SetHexColor(hex)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	if err := dc.Fill(); err != nil {
		t.Fatalf("Fill: %v", err)
	}
}

func TestCompositeOverOpacity(t *testing.T) {
	dst := gg.NewContext(4, 4)
	src := gg.NewContext(4, 4)
	defer dst.Close()
	defer src.Close()

	paintAll(t, src, "#ff0000")
	compositeOver(dst, src, 0.3)

	px := dst.ResizeTarget().Data()
	if a := px[3]; a < 74 || a > 79 {
		t.Errorf("alpha = %d, want ~77 (0.3 opacity)", a)
	}
	if r := px[0]; r != 255 {
		t.Errorf("red = %d, want 255 (straight alpha)", r)
	}
}

func TestCompositeOverSkipsTransparentSource(t *testing.T) {
	dst := gg.NewContext(4, 4)
	src := gg.NewContext(4, 4)
	defer dst.Close()
	defer src.Close()

	paintAll(t, dst, "#00ff00")
	before := snapshotPixels(dst)
	compositeOver(dst, src, 0.3)

	after := dst.ResizeTarget().Data()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("pixel byte %d changed from %d to %d under empty source", i, before[i], after[i])
		}
	}
}

func TestApplyDestinationOut(t *testing.T) {
	dst := gg.NewContext(4, 4)
	mask := gg.NewContext(4, 4)
	defer dst.Close()
	defer mask.Close()

	paintAll(t, dst, "#0000ff")
	paintAll(t, mask, "#ffffff")
	applyDestinationOut(dst, mask)

	px := dst.ResizeTarget().Data()
	for i := 3; i < len(px); i += 4 {
		if px[i] != 0 {
			t.Fatalf("alpha at byte %d = %d, want 0 after full-coverage erase", i, px[i])
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	dc := gg.NewContext(4, 4)
	defer dc.Close()

	paintAll(t, dc, "#123456")
	snap := snapshotPixels(dc)

	dc.Clear()
	restorePixels(dc, snap)

	got := dc.ResizeTarget().Data()
	for i := range snap {
		if got[i] != snap[i] {
			t.Fatalf("pixel byte %d = %d, want %d after restore", i, got[i], snap[i])
		}
	}
}
