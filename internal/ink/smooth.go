package ink

import (
	"github.com/gogpu/gg"
	"gonum.org/v1/gonum/spatial/r2"

	"pdfink/internal/annotation"
)

// Stroke smoothing renders each new segment as a quadratic curve through
// the midpoints of consecutive samples: the segment ending at point i runs
// from mid(p[i-2], p[i-1]) to mid(p[i-1], p[i]) with p[i-1] as control
// point. At typical sampling rates this hides polygon corners without
// noticeably lagging the pen. The first segment of a stroke is a straight
// line; no smoothing is possible with fewer than three points.

func vec(p annotation.Point) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func midpoint(a, b annotation.Point) r2.Vec {
	return r2.Scale(0.5, r2.Add(vec(a), vec(b)))
}

// addSegmentPath appends the path for the segment ending at index i of
// pts to the context's current path. Coordinates are scaled by dpr from
// logical to physical pixels. The caller strokes the path.
func addSegmentPath(dc *gg.Context, pts []annotation.Point, i int, dpr float64) {
	if i < 1 || i >= len(pts) {
		return
	}
	if i == 1 {
		a, b := vec(pts[0]), vec(pts[1])
		dc.MoveTo(a.X*dpr, a.Y*dpr)
		dc.LineTo(b.X*dpr, b.Y*dpr)
		return
	}
	start := midpoint(pts[i-2], pts[i-1])
	end := midpoint(pts[i-1], pts[i])
	ctrl := vec(pts[i-1])
	dc.MoveTo(start.X*dpr, start.Y*dpr)
	dc.QuadraticTo(ctrl.X*dpr, ctrl.Y*dpr, end.X*dpr, end.Y*dpr)
}

// addStrokePath appends the full smoothed path for pts as one connected
// path, used when a whole stroke is rendered at a single width
// (highlighter, eraser).
func addStrokePath(dc *gg.Context, pts []annotation.Point, dpr float64) {
	if len(pts) < 2 {
		return
	}
	first := vec(pts[0])
	dc.MoveTo(first.X*dpr, first.Y*dpr)
	if len(pts) == 2 {
		second := vec(pts[1])
		dc.LineTo(second.X*dpr, second.Y*dpr)
		return
	}
	m := midpoint(pts[0], pts[1])
	dc.LineTo(m.X*dpr, m.Y*dpr)
	for i := 2; i < len(pts); i++ {
		ctrl := vec(pts[i-1])
		end := midpoint(pts[i-1], pts[i])
		dc.QuadraticTo(ctrl.X*dpr, ctrl.Y*dpr, end.X*dpr, end.Y*dpr)
	}
	last := vec(pts[len(pts)-1])
	dc.LineTo(last.X*dpr, last.Y*dpr)
}
