package view

import (
	"image"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"pdfink/internal/annotation"
	"pdfink/internal/ink"
	"pdfink/internal/pdfdoc"
	"pdfink/internal/sidecar"
	"pdfink/internal/storage"
)

type fixture struct {
	dir     string
	doc     *pdfdoc.Document
	store   *sidecar.Store
	updates chan int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := pdfdoc.WriteSample(path, 3); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	doc, err := pdfdoc.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return &fixture{
		dir:     dir,
		doc:     doc,
		store:   sidecar.NewStore(storage.NewDirFS(dir), nil),
		updates: make(chan int, 16),
	}
}

func (f *fixture) coordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	renderer := pdfdoc.NewRenderer(pdfdoc.Config{Workers: 1})
	t.Cleanup(renderer.Close)
	opts = append([]Option{
		WithNotifier(NotifierFunc(func(page int) { f.updates <- page })),
	}, opts...)
	c := New(f.doc, renderer, f.store, opts...)
	t.Cleanup(func() { c.Close() })
	return c
}

func (f *fixture) waitReady(t *testing.T, c *Coordinator, page int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-f.updates:
			if p == page && c.State(page) == PageReady {
				return
			}
		case <-deadline:
			t.Fatalf("page %d never became ready, state %v", page, c.State(page))
		}
	}
}

// drawStroke commits a short pen stroke through the page's engine.
func drawStroke(t *testing.T, c *Coordinator, page int, x, y float64) {
	t.Helper()
	e := c.Engine(page)
	if e == nil {
		t.Fatalf("page %d has no engine", page)
	}
	down := ink.PointerEvent{Kind: ink.KindPen, Sample: ink.Sample{X: x, Y: y, Pressure: 0.5}}
	e.PointerDown(down)
	e.PointerMove(ink.PointerEvent{Kind: ink.KindPen, Sample: ink.Sample{X: x + 20, Y: y, Pressure: 0.5}})
	e.PointerUp(down)
}

func TestMountLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	if got := c.State(1); got != PageUnmounted {
		t.Errorf("initial state = %v, want unmounted", got)
	}
	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("second EnsureMounted: %v", err)
	}
	f.waitReady(t, c, 1)

	if c.Engine(1) == nil {
		t.Error("mounted page has no engine")
	}
	if img := c.Composite(1); img == nil || img.Bounds().Empty() {
		t.Error("ready page has no composite")
	}

	c.Unmount(1)
	if got := c.State(1); got != PageUnmounted {
		t.Errorf("state after unmount = %v, want unmounted", got)
	}
	if c.Composite(1) != nil {
		t.Error("unmounted page still composites")
	}
}

func TestMountOutOfRange(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)
	for _, page := range []int{0, -1, 4} {
		if err := c.EnsureMounted(page); err == nil {
			t.Errorf("EnsureMounted(%d) succeeded, want error", page)
		}
	}
}

func TestStrokesSurviveRemount(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	if err := c.EnsureMounted(2); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	drawStroke(t, c, 2, 100, 200)

	c.Unmount(2)
	if err := c.EnsureMounted(2); err != nil {
		t.Fatalf("remount: %v", err)
	}

	strokes := c.Engine(2).Strokes()
	if len(strokes) != 1 {
		t.Fatalf("got %d strokes after remount, want 1", len(strokes))
	}
	p := strokes[0].Points[0]
	if math.Abs(p.X-100) > 0.01 || math.Abs(p.Y-200) > 0.01 {
		t.Errorf("first point = (%v, %v), want (100, 200)", p.X, p.Y)
	}
}

func TestSetScaleRescalesStrokes(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	drawStroke(t, c, 1, 100, 200)

	if err := c.SetScale(2); err != nil {
		t.Fatalf("SetScale: %v", err)
	}
	if got := c.Scale(); got != 2 {
		t.Errorf("Scale() = %v, want 2", got)
	}

	strokes := c.Engine(1).Strokes()
	if len(strokes) != 1 {
		t.Fatalf("got %d strokes after rescale, want 1", len(strokes))
	}
	p := strokes[0].Points[0]
	if math.Abs(p.X-200) > 0.01 || math.Abs(p.Y-400) > 0.01 {
		t.Errorf("rescaled point = (%v, %v), want (200, 400)", p.X, p.Y)
	}
}

func TestSetScaleRejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)
	if err := c.SetScale(0); err == nil {
		t.Error("SetScale(0) succeeded")
	}
}

func TestSaveAllRoundTrip(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	drawStroke(t, c, 1, 100, 200)
	if err := c.SaveAll(); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	set := f.store.Load(f.doc.Path())
	strokes := set.Page(1)
	if len(strokes) != 1 {
		t.Fatalf("sidecar has %d strokes, want 1", len(strokes))
	}
	// persisted coordinates are page fractions
	p := strokes[0].Points[0]
	if p.X <= 0 || p.X >= 1 || p.Y <= 0 || p.Y >= 1 {
		t.Errorf("persisted point (%v, %v) not normalized", p.X, p.Y)
	}

	c2 := f.coordinator(t)
	if err := c2.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	got := c2.Engine(1).Strokes()
	if len(got) != 1 {
		t.Fatalf("reloaded %d strokes, want 1", len(got))
	}
	q := got[0].Points[0]
	if math.Abs(q.X-100) > 0.01 || math.Abs(q.Y-200) > 0.01 {
		t.Errorf("reloaded point = (%v, %v), want (100, 200)", q.X, q.Y)
	}
}

func TestClearPage(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	drawStroke(t, c, 1, 100, 200)
	c.ClearPage(1)

	if got := len(c.Engine(1).Strokes()); got != 0 {
		t.Errorf("engine has %d strokes after clear", got)
	}
	if err := c.SaveAll(); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if set := f.store.Load(f.doc.Path()); !set.Empty() {
		t.Error("cleared page still persisted")
	}
}

func TestToolAndColorPropagate(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	c.SetTool(annotation.ToolHighlighter)
	c.SetColor("#ffff00")

	if got := c.Engine(1).Tool(); got != annotation.ToolHighlighter {
		t.Errorf("mounted engine tool = %v, want highlighter", got)
	}

	// later mounts pick the settings up too
	if err := c.EnsureMounted(2); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	if got := c.Engine(2).Tool(); got != annotation.ToolHighlighter {
		t.Errorf("new engine tool = %v, want highlighter", got)
	}
}

// A zoom change must not flash the blank placeholder when the page
// already had a raster: the old one is shown stretched until the
// re-render arrives.
func TestSetScaleKeepsStretchedRaster(t *testing.T) {
	f := newFixture(t)

	release := make(chan struct{})
	defer close(release)
	var renders atomic.Int32
	red := func(info pdfdoc.PageInfo, scale float64) (*image.RGBA, error) {
		if renders.Add(1) > 1 {
			<-release
		}
		size := info.DisplaySize()
		w := max(1, int(math.Round(size.Width*scale)))
		h := max(1, int(math.Round(size.Height*scale)))
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i] = 255
			img.Pix[i+3] = 255
		}
		return img, nil
	}
	renderer := pdfdoc.NewRenderer(pdfdoc.Config{Workers: 1}, pdfdoc.WithRaster(red))
	t.Cleanup(renderer.Close)
	c := New(f.doc, renderer, f.store,
		WithNotifier(NotifierFunc(func(page int) { f.updates <- page })))
	t.Cleanup(func() { c.Close() })

	if err := c.EnsureMounted(1); err != nil {
		t.Fatalf("EnsureMounted: %v", err)
	}
	f.waitReady(t, c, 1)

	// the second render is gated, so the stretched copy is observable
	if err := c.SetScale(2); err != nil {
		t.Fatalf("SetScale: %v", err)
	}
	if got := c.State(1); got != PagePlaceholder {
		t.Fatalf("state after SetScale = %v, want placeholder", got)
	}

	w, h, err := c.SurfaceSize(1)
	if err != nil {
		t.Fatalf("SurfaceSize: %v", err)
	}
	img := c.Composite(1)
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("composite = %dx%d, want %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy(), w, h)
	}
	i := img.PixOffset(w/2, h/2)
	if img.Pix[i] != 255 || img.Pix[i+1] != 0 {
		t.Errorf("center pixel = %v, want stretched red raster, not placeholder",
			img.Pix[i:i+4])
	}
}
