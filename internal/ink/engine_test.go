package ink

import (
	"bytes"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pdfink/internal/annotation"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(100, 100, 1, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Destroy)
	return e
}

func pen(x, y, pressure float64) PointerEvent {
	return PointerEvent{Kind: KindPen, Sample: Sample{X: x, Y: y, Pressure: pressure}}
}

func touch(x, y float64, count int) PointerEvent {
	return PointerEvent{Kind: KindTouch, Sample: Sample{X: x, Y: y}, TouchCount: count}
}

// drawLine feeds a simple horizontal stroke through the engine.
func drawLine(e *Engine, y, pressure float64) {
	e.PointerDown(pen(10, y, pressure))
	for x := 15.0; x <= 90; x += 5 {
		e.PointerMove(pen(x, y, pressure))
	}
	e.PointerUp(pen(90, y, pressure))
}

func alphaAt(img *image.RGBA, x, y int) uint8 {
	return img.Pix[img.PixOffset(x, y)+3]
}

func countInked(img *image.RGBA) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestNewRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		dpr           float64
	}{
		{"zero width", 0, 100, 1},
		{"negative height", 100, -1, 1},
		{"zero dpr", 100, 100, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.width, tc.height, tc.dpr); err == nil {
				t.Error("New accepted unusable geometry")
			}
		})
	}
}

func TestPenTapLeavesDot(t *testing.T) {
	e := newTestEngine(t)

	e.PointerDown(pen(50, 50, 0.8))
	e.PointerUp(pen(50, 50, 0.8))

	strokes := e.Strokes()
	if len(strokes) != 1 || len(strokes[0].Points) != 1 {
		t.Fatalf("got %d strokes, want one single-point stroke", len(strokes))
	}
	if alphaAt(e.Image(), 50, 50) == 0 {
		t.Error("tap left no mark at tap location")
	}
}

// A pen reporting a true zero pressure (hover-contact edge) must keep
// it: only pressure-less kinds take the default.
func TestPenZeroPressureIsNotDefaulted(t *testing.T) {
	e := newTestEngine(t)

	e.PointerDown(pen(50, 50, 0))
	e.PointerUp(pen(50, 50, 0))

	strokes := e.Strokes()
	if len(strokes) != 1 {
		t.Fatalf("got %d strokes, want 1", len(strokes))
	}
	if got := strokes[0].Points[0].Pressure; got != 0 {
		t.Errorf("pen pressure = %v, want 0", got)
	}
	if got := strokes[0].LineWidth; got != DefaultWidths().PenMin {
		t.Errorf("line width = %v, want minimum %v", got, DefaultWidths().PenMin)
	}
}

func TestMousePressureDefaults(t *testing.T) {
	e := newTestEngine(t)

	ev := PointerEvent{Kind: KindMouse, Sample: Sample{X: 50, Y: 50}}
	e.PointerDown(ev)
	e.PointerUp(ev)

	strokes := e.Strokes()
	if len(strokes) != 1 {
		t.Fatalf("got %d strokes, want 1", len(strokes))
	}
	if got := strokes[0].Points[0].Pressure; got != annotation.DefaultPressure {
		t.Errorf("mouse pressure = %v, want %v", got, annotation.DefaultPressure)
	}
}

func TestPressureWidensStroke(t *testing.T) {
	light := newTestEngine(t)
	heavy := newTestEngine(t)

	drawLine(light, 50, 0.1)
	drawLine(heavy, 50, 1.0)

	lightPx := countInked(light.Image())
	heavyPx := countInked(heavy.Image())
	if lightPx == 0 {
		t.Fatal("light stroke left no ink")
	}
	if heavyPx <= lightPx {
		t.Errorf("full pressure inked %d px, light pressure %d px, want more", heavyPx, lightPx)
	}
}

func TestPalmRejection(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		event PointerEvent
		want  int
	}{
		{"single touch rejected", nil, touch(50, 50, 1), 0},
		{"single touch allowed when enabled", []Option{WithTouchDrawing(true)}, touch(50, 50, 1), 1},
		{"two-finger gesture never draws", []Option{WithTouchDrawing(true)}, touch(50, 50, 2), 0},
		{"pen always draws", nil, pen(50, 50, 0.5), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, tc.opts...)
			e.PointerDown(tc.event)
			up := tc.event
			e.PointerUp(up)
			if got := len(e.Strokes()); got != tc.want {
				t.Errorf("got %d strokes, want %d", got, tc.want)
			}
		})
	}
}

func TestHandToolNeverCaptures(t *testing.T) {
	e := newTestEngine(t)
	e.SetTool(annotation.ToolHand)

	e.PointerDown(pen(50, 50, 0.5))
	e.PointerMove(pen(60, 50, 0.5))
	e.PointerUp(pen(60, 50, 0.5))

	if got := len(e.Strokes()); got != 0 {
		t.Errorf("hand tool captured %d strokes", got)
	}
	if got := e.GesturePolicy(); got != GesturePassAll {
		t.Errorf("GesturePolicy() = %v, want GesturePassAll", got)
	}
	e.SetTool(annotation.ToolPen)
	if got := e.GesturePolicy(); got != GestureCaptureSingle {
		t.Errorf("GesturePolicy() = %v, want GestureCaptureSingle", got)
	}
}

func TestCoalescedSamplesExpand(t *testing.T) {
	e := newTestEngine(t)

	e.PointerDown(pen(10, 10, 0.5))
	e.PointerMove(PointerEvent{
		Kind:   KindPen,
		Sample: Sample{X: 40, Y: 10, Pressure: 0.5},
		Coalesced: []Sample{
			{X: 20, Y: 10, Pressure: 0.5},
			{X: 30, Y: 10, Pressure: 0.5},
			{X: 40, Y: 10, Pressure: 0.5},
		},
	})
	e.PointerUp(pen(40, 10, 0.5))

	strokes := e.Strokes()
	if len(strokes) != 1 {
		t.Fatalf("got %d strokes, want 1", len(strokes))
	}
	wantX := []float64{10, 20, 30, 40}
	var gotX []float64
	for _, p := range strokes[0].Points {
		gotX = append(gotX, p.X)
	}
	if diff := cmp.Diff(wantX, gotX); diff != "" {
		t.Errorf("coalesced point order mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveWithoutDownIgnored(t *testing.T) {
	e := newTestEngine(t)
	e.PointerMove(pen(50, 50, 0.5))
	e.PointerUp(pen(50, 50, 0.5))
	if got := len(e.Strokes()); got != 0 {
		t.Errorf("stray move produced %d strokes", got)
	}
}

func TestColorChangeAffectsNextStrokeOnly(t *testing.T) {
	e := newTestEngine(t)
	e.SetColor("#ff0000")

	e.PointerDown(pen(10, 50, 0.5))
	e.SetColor("#0000ff")
	e.PointerMove(pen(50, 50, 0.5))
	e.PointerUp(pen(50, 50, 0.5))

	drawLine(e, 80, 0.5)

	strokes := e.Strokes()
	if len(strokes) != 2 {
		t.Fatalf("got %d strokes, want 2", len(strokes))
	}
	if strokes[0].Color != "#ff0000" {
		t.Errorf("in-progress stroke changed color to %q", strokes[0].Color)
	}
	if strokes[1].Color != "#0000ff" {
		t.Errorf("next stroke color = %q, want #0000ff", strokes[1].Color)
	}
}

func TestPointerLeaveCommits(t *testing.T) {
	e := newTestEngine(t)
	e.PointerDown(pen(10, 50, 0.5))
	e.PointerMove(pen(50, 50, 0.5))
	e.PointerLeave()
	if got := len(e.Strokes()); got != 1 {
		t.Errorf("got %d strokes after leave, want 1", got)
	}
	// a leave racing behind the up must not disturb anything
	e.PointerLeave()
	if got := len(e.Strokes()); got != 1 {
		t.Errorf("got %d strokes after stray leave, want 1", got)
	}
}

func TestHighlighterSelfOverlapDoesNotDarken(t *testing.T) {
	e := newTestEngine(t)
	e.SetTool(annotation.ToolHighlighter)
	e.SetColor("#ffff00")

	// double back over the same line within one stroke
	e.PointerDown(pen(10, 50, 0.5))
	for x := 15.0; x <= 90; x += 5 {
		e.PointerMove(pen(x, 50, 0.5))
	}
	for x := 85.0; x >= 10; x -= 5 {
		e.PointerMove(pen(x, 50, 0.5))
	}
	e.PointerUp(pen(10, 50, 0.5))

	a := alphaAt(e.Image(), 50, 50)
	if a == 0 {
		t.Fatal("highlighter left no ink")
	}
	// 0.3 opacity over a transparent surface, allow rounding slack
	want := uint8(77)
	if a > want+3 {
		t.Errorf("self-overlap alpha = %d, want at most ~%d", a, want)
	}
}

func TestSeparateHighlighterStrokesDoDarken(t *testing.T) {
	e := newTestEngine(t)
	e.SetTool(annotation.ToolHighlighter)

	drawHL := func() {
		e.PointerDown(pen(10, 50, 0.5))
		for x := 15.0; x <= 90; x += 5 {
			e.PointerMove(pen(x, 50, 0.5))
		}
		e.PointerUp(pen(90, 50, 0.5))
	}
	drawHL()
	first := alphaAt(e.Image(), 50, 50)
	drawHL()
	second := alphaAt(e.Image(), 50, 50)

	if second <= first {
		t.Errorf("second stroke alpha %d not darker than first %d", second, first)
	}
}

func TestEraserRemovesInkOnly(t *testing.T) {
	e := newTestEngine(t)

	drawLine(e, 50, 1.0)
	if alphaAt(e.Image(), 50, 50) == 0 {
		t.Fatal("pen stroke left no ink")
	}

	e.SetTool(annotation.ToolEraser)
	e.PointerDown(pen(50, 50, 0.5))
	e.PointerUp(pen(50, 50, 0.5))

	if a := alphaAt(e.Image(), 50, 50); a != 0 {
		t.Errorf("alpha after erase = %d, want 0", a)
	}
	// the eraser stroke itself is recorded
	if got := len(e.Strokes()); got != 2 {
		t.Errorf("got %d strokes, want pen + eraser", got)
	}
}

func TestEraserOnBlankSurfaceIsNoop(t *testing.T) {
	e := newTestEngine(t)
	e.SetTool(annotation.ToolEraser)
	drawLine(e, 50, 0.5)
	if n := countInked(e.Image()); n != 0 {
		t.Errorf("eraser marked %d pixels on a blank surface", n)
	}
}

func TestLoadStrokesReplaysLiveRendering(t *testing.T) {
	live := newTestEngine(t)
	drawLine(live, 30, 0.7)
	drawLine(live, 60, 0.2)

	replayed := newTestEngine(t)
	replayed.LoadStrokes(live.Strokes())

	if !bytes.Equal(live.Image().Pix, replayed.Image().Pix) {
		t.Error("replayed surface differs from live rendering")
	}
	if diff := cmp.Diff(live.Strokes(), replayed.Strokes()); diff != "" {
		t.Errorf("stroke lists differ (-live +replayed):\n%s", diff)
	}
}

func TestLoadStrokesDropsInvalid(t *testing.T) {
	e := newTestEngine(t)
	e.LoadStrokes([]annotation.Stroke{
		{Tool: annotation.ToolPen, Color: "#000000"}, // no points
		{Tool: annotation.ToolPen, Color: "#000000", LineWidth: 2,
			Points: []annotation.Point{{X: 10, Y: 10, Pressure: 0.5}}},
	})
	if got := len(e.Strokes()); got != 1 {
		t.Errorf("got %d strokes, want 1", got)
	}
}

func TestResizeRescalesStrokes(t *testing.T) {
	e := newTestEngine(t)
	drawLine(e, 50, 0.5)

	e.Resize(200, 200)

	strokes := e.Strokes()
	if len(strokes) != 1 {
		t.Fatalf("got %d strokes, want 1", len(strokes))
	}
	first := strokes[0].Points[0]
	if first.X != 20 || first.Y != 100 {
		t.Errorf("first point = (%v, %v), want (20, 100)", first.X, first.Y)
	}
	if alphaAt(e.Image(), 100, 100) == 0 {
		t.Error("resized surface lost the stroke")
	}
}

func TestResizeDiscardsInProgressStroke(t *testing.T) {
	e := newTestEngine(t)
	e.PointerDown(pen(10, 50, 0.5))
	e.PointerMove(pen(50, 50, 0.5))

	e.Resize(150, 150)
	e.PointerUp(pen(50, 50, 0.5))

	if got := len(e.Strokes()); got != 0 {
		t.Errorf("in-progress stroke survived resize, got %d strokes", got)
	}
}

func TestClear(t *testing.T) {
	e := newTestEngine(t)
	drawLine(e, 50, 0.5)
	e.Clear()
	if got := len(e.Strokes()); got != 0 {
		t.Errorf("got %d strokes after clear", got)
	}
	if n := countInked(e.Image()); n != 0 {
		t.Errorf("surface has %d inked pixels after clear", n)
	}
}

func TestDestroyedEngineIgnoresInput(t *testing.T) {
	e, err := New(100, 100, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Destroy()
	e.Destroy() // idempotent

	e.PointerDown(pen(50, 50, 0.5))
	e.PointerUp(pen(50, 50, 0.5))
	e.Resize(10, 10)
	e.Clear()
	if got := e.Image().Bounds(); !got.Empty() {
		t.Errorf("destroyed engine image bounds = %v, want empty", got)
	}
}

// fakeScheduler queues frame callbacks so tests can observe throttling.
type fakeScheduler struct {
	queue []func()
}

func (s *fakeScheduler) Schedule(fn func()) {
	s.queue = append(s.queue, fn)
}

func (s *fakeScheduler) run() {
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		fn()
	}
}

func TestHighlighterCompositeThrottled(t *testing.T) {
	sched := &fakeScheduler{}
	e := newTestEngine(t, WithScheduler(sched))
	e.SetTool(annotation.ToolHighlighter)

	e.PointerDown(pen(10, 50, 0.5))
	for x := 15.0; x <= 60; x += 5 {
		e.PointerMove(pen(x, 50, 0.5))
	}
	if got := len(sched.queue); got != 1 {
		t.Errorf("pending frame callbacks = %d, want 1", got)
	}
	sched.run()
	e.PointerUp(pen(60, 50, 0.5))

	if alphaAt(e.Image(), 30, 50) == 0 {
		t.Error("throttled highlighter left no ink")
	}
}
