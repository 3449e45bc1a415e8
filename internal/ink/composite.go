package ink

import (
	"github.com/gogpu/gg"
)

// FrameScheduler defers a callback to the next display frame. The engine
// uses it to throttle the in-progress highlighter composite to one redraw
// per frame instead of one per input sample. At most one callback is ever
// pending per engine; additional samples while one is pending only mark
// the composite dirty.
type FrameScheduler interface {
	Schedule(fn func())
}

// syncScheduler runs callbacks immediately. It is the default when no
// scheduler is injected and the right choice for tests: every composite
// happens deterministically before the triggering call returns.
type syncScheduler struct{}

func (syncScheduler) Schedule(fn func()) { fn() }

// snapshotPixels copies the context's pixel state.
func snapshotPixels(dc *gg.Context) []uint8 {
	data := dc.ResizeTarget().Data()
	out := make([]uint8, len(data))
	copy(out, data)
	return out
}

// restorePixels writes a snapshot back into the context.
func restorePixels(dc *gg.Context, snap []uint8) {
	data := dc.ResizeTarget().Data()
	if len(snap) != len(data) {
		return
	}
	copy(data, snap)
}

// compositeOver blends src onto dst with standard source-over compositing
// at the given opacity. Both surfaces must share dimensions and store
// straight (non-premultiplied) RGBA.
func compositeOver(dst, src *gg.Context, opacity float64) {
	dp := dst.ResizeTarget().Data()
	sp := src.ResizeTarget().Data()
	if len(dp) != len(sp) {
		return
	}
	for i := 0; i < len(dp); i += 4 {
		sa := float64(sp[i+3]) / 255 * opacity
		if sa <= 0 {
			continue
		}
		da := float64(dp[i+3]) / 255
		outA := sa + da*(1-sa)
		if outA <= 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			sc := float64(sp[i+c]) / 255
			dc := float64(dp[i+c]) / 255
			out := (sc*sa + dc*da*(1-sa)) / outA
			dp[i+c] = uint8(out*255 + 0.5)
		}
		dp[i+3] = uint8(outA*255 + 0.5)
	}
}

// applyDestinationOut removes alpha from dst wherever mask has coverage:
// dstA' = dstA * (1 - maskA). Colors are untouched; fully erased pixels
// end up transparent. This is how the eraser removes ink without ever
// touching the separately composited page raster.
func applyDestinationOut(dst, mask *gg.Context) {
	dp := dst.ResizeTarget().Data()
	mp := mask.ResizeTarget().Data()
	if len(dp) != len(mp) {
		return
	}
	for i := 0; i < len(dp); i += 4 {
		ma := mp[i+3]
		if ma == 0 {
			continue
		}
		keep := float64(255-ma) / 255
		dp[i+3] = uint8(float64(dp[i+3])*keep + 0.5)
	}
}
