// Package view coordinates page lifecycles for the annotation viewer:
// which pages have live ink surfaces, which rasters are ready, and how
// stroke coordinates move between surface pixels and the normalized
// page fractions the sidecar stores.
package view

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"
	"sync"

	xdraw "golang.org/x/image/draw"

	"pdfink/internal/annotation"
	"pdfink/internal/ink"
	"pdfink/internal/pdfdoc"
	"pdfink/internal/sidecar"
	"pdfink/pkg/geometry"
)

// PageState is the lifecycle stage of one page.
type PageState int

const (
	// PageUnmounted pages have no surface and no raster; their strokes
	// live only in the annotation set.
	PageUnmounted PageState = iota

	// PagePlaceholder pages have a live ink surface while the page
	// raster is still rendering.
	PagePlaceholder

	// PageReady pages have both surface and raster.
	PageReady
)

func (s PageState) String() string {
	switch s {
	case PageUnmounted:
		return "unmounted"
	case PagePlaceholder:
		return "placeholder"
	case PageReady:
		return "ready"
	default:
		return "unknown"
	}
}

type pageSlot struct {
	state  PageState
	info   pdfdoc.PageInfo
	engine *ink.Engine
	raster *image.RGBA
	cancel context.CancelFunc

	// logical surface size in pixels at the mount-time scale
	width, height int
}

// Coordinator owns the per-page engines and rasters for one open
// document. Pages are numbered from 1. All methods are safe for
// concurrent use; raster completions arrive on renderer goroutines.
type Coordinator struct {
	log      *slog.Logger
	doc      *pdfdoc.Document
	renderer *pdfdoc.Renderer
	store    *sidecar.Store
	notifier Notifier

	dpr   float64
	touch bool

	mu    sync.Mutex
	scale float64
	tool  annotation.Tool
	color string
	set   annotation.PageSet
	slots map[int]*pageSlot
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithNotifier registers the page update callback.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithScale sets the initial render scale.
func WithScale(scale float64) Option {
	return func(c *Coordinator) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithDPR sets the device pixel ratio for new ink surfaces.
func WithDPR(dpr float64) Option {
	return func(c *Coordinator) {
		if dpr > 0 {
			c.dpr = dpr
		}
	}
}

// WithTouchDrawing enables single-finger touch drawing on every page.
func WithTouchDrawing(allow bool) Option {
	return func(c *Coordinator) { c.touch = allow }
}

// New creates a coordinator for doc and loads its sidecar annotations.
func New(doc *pdfdoc.Document, renderer *pdfdoc.Renderer, store *sidecar.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		log:      slog.New(slog.DiscardHandler),
		doc:      doc,
		renderer: renderer,
		store:    store,
		notifier: nopNotifier{},
		dpr:      1,
		scale:    1,
		tool:     annotation.ToolPen,
		color:    "#000000",
		slots:    make(map[int]*pageSlot),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.set = store.Load(doc.Path())
	if !c.set.Empty() {
		c.log.Info("loaded annotations",
			"doc", doc.Path(), "pages", len(c.set.Pages()), "strokes", c.set.TotalStrokes())
	}
	return c
}

// NumPages returns the document's page count.
func (c *Coordinator) NumPages() int {
	return c.doc.NumPages()
}

// Scale returns the current render scale.
func (c *Coordinator) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// State returns the lifecycle stage of page.
func (c *Coordinator) State(page int) PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.slots[page]; ok {
		return slot.state
	}
	return PageUnmounted
}

// EnsureMounted creates the ink surface for page if it does not already
// exist and kicks off its raster. Calling it for a mounted page is a
// no-op, so scroll handlers can invoke it for every visible page on
// every scroll tick.
func (c *Coordinator) EnsureMounted(page int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mountLocked(page)
}

func (c *Coordinator) mountLocked(page int) error {
	if _, ok := c.slots[page]; ok {
		return nil
	}
	if page < 1 || page > c.doc.NumPages() {
		return fmt.Errorf("view: page %d out of range [1, %d]", page, c.doc.NumPages())
	}

	info, err := c.doc.Page(page - 1)
	if err != nil {
		return fmt.Errorf("view: mount page %d: %w", page, err)
	}

	size := info.DisplaySize()
	w := max(1, int(math.Round(size.Width*c.scale)))
	h := max(1, int(math.Round(size.Height*c.scale)))

	engine, err := ink.New(w, h, c.dpr,
		ink.WithLogger(c.log),
		ink.WithTouchDrawing(c.touch))
	if err != nil {
		return fmt.Errorf("view: mount page %d: %w", page, err)
	}
	engine.SetTool(c.tool)
	engine.SetColor(c.color)
	engine.LoadStrokes(denormalize(c.set.Page(page), w, h))

	ctx, cancel := context.WithCancel(context.Background())
	slot := &pageSlot{
		state:  PagePlaceholder,
		info:   info,
		engine: engine,
		cancel: cancel,
		width:  w,
		height: h,
	}
	c.slots[page] = slot

	// raster in physical pixels so it composites 1:1 with the ink layer
	results := c.renderer.RenderPage(ctx, page, info, c.scale*c.dpr)
	go c.awaitRaster(page, slot, results)

	c.log.Debug("page mounted", "page", page, "width", w, "height", h, "scale", c.scale)
	return nil
}

func (c *Coordinator) awaitRaster(page int, slot *pageSlot, results <-chan pdfdoc.Result) {
	res, ok := <-results
	if !ok {
		return
	}
	if res.Err != nil {
		if !errors.Is(res.Err, context.Canceled) {
			c.log.Warn("page raster failed, keeping placeholder", "page", page, "error", res.Err)
		}
		return
	}

	c.mu.Lock()
	if c.slots[page] != slot {
		// page was unmounted or remounted while rendering
		c.mu.Unlock()
		return
	}
	slot.raster = res.Image
	slot.state = PageReady
	c.mu.Unlock()

	c.notifier.PageUpdated(page)
}

// Unmount flushes the page's strokes into the annotation set and
// releases its surface and raster. Unmounting an unmounted page is a
// no-op.
func (c *Coordinator) Unmount(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unmountLocked(page)
}

func (c *Coordinator) unmountLocked(page int) {
	slot, ok := c.slots[page]
	if !ok {
		return
	}
	c.flushLocked(page, slot)
	slot.cancel()
	slot.engine.Destroy()
	delete(c.slots, page)
	c.log.Debug("page unmounted", "page", page)
}

// flushLocked moves the engine's committed strokes into the annotation
// set as normalized page fractions.
func (c *Coordinator) flushLocked(page int, slot *pageSlot) {
	c.set.SetPage(page, normalize(slot.engine.Strokes(), slot.width, slot.height))
}

// Engine returns the live ink engine for page, or nil when the page is
// not mounted. The host widget feeds pointer events straight into it.
func (c *Coordinator) Engine(page int) *ink.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.slots[page]; ok {
		return slot.engine
	}
	return nil
}

// SurfaceSize returns the logical pixel size of page's surface at the
// current scale, mounted or not.
func (c *Coordinator) SurfaceSize(page int) (w, h int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.slots[page]; ok {
		return slot.width, slot.height, nil
	}
	info, err := c.doc.Page(page - 1)
	if err != nil {
		return 0, 0, err
	}
	size := info.DisplaySize()
	return max(1, int(math.Round(size.Width * c.scale))),
		max(1, int(math.Round(size.Height * c.scale))), nil
}

// Composite returns the page raster with the ink layer drawn over it, in
// physical pixels. Placeholder pages composite over a blank sheet so ink
// is visible while the raster renders.
func (c *Coordinator) Composite(page int) *image.RGBA {
	c.mu.Lock()
	slot, ok := c.slots[page]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	raster := slot.raster
	inkLayer := slot.engine.Image()
	c.mu.Unlock()

	out := image.NewRGBA(inkLayer.Bounds())
	if raster != nil {
		xdraw.Draw(out, out.Bounds(), raster, raster.Bounds().Min, xdraw.Src)
	} else {
		xdraw.Draw(out, out.Bounds(), image.White, image.Point{}, xdraw.Src)
	}
	xdraw.Draw(out, out.Bounds(), inkLayer, inkLayer.Bounds().Min, xdraw.Over)
	return out
}

// SetTool switches the active tool on every mounted page and for pages
// mounted later.
func (c *Coordinator) SetTool(tool annotation.Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tool = tool
	for _, slot := range c.slots {
		slot.engine.SetTool(tool)
	}
}

// Tool returns the active tool.
func (c *Coordinator) Tool() annotation.Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tool
}

// SetColor sets the stroke color for subsequently drawn strokes.
func (c *Coordinator) SetColor(hex string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.color = hex
	for _, slot := range c.slots {
		slot.engine.SetColor(hex)
	}
}

// Color returns the active stroke color.
func (c *Coordinator) Color() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color
}

// SetScale changes the render scale. Every mounted page is flushed,
// rebuilt at the new size, and re-rendered; normalized coordinates make
// the round trip lossless up to float precision. Pages that already had
// a raster show a stretched copy of it until the re-render lands.
func (c *Coordinator) SetScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("view: scale %g out of range", scale)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if scale == c.scale {
		return nil
	}

	mounted := make([]int, 0, len(c.slots))
	stale := make(map[int]*image.RGBA, len(c.slots))
	for page, slot := range c.slots {
		mounted = append(mounted, page)
		if slot.raster != nil {
			stale[page] = slot.raster
		}
	}
	sort.Ints(mounted)

	for _, page := range mounted {
		c.unmountLocked(page)
	}
	c.scale = scale
	for _, page := range mounted {
		if err := c.mountLocked(page); err != nil {
			return err
		}
		if old, ok := stale[page]; ok {
			slot := c.slots[page]
			w := max(1, int(math.Round(float64(slot.width)*c.dpr)))
			h := max(1, int(math.Round(float64(slot.height)*c.dpr)))
			slot.raster = pdfdoc.ScaleRaster(old, w, h)
		}
	}
	c.log.Debug("scale changed", "scale", scale, "pages", len(mounted))
	return nil
}

// ClearPage removes every stroke from page, mounted or not.
func (c *Coordinator) ClearPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.slots[page]; ok {
		slot.engine.Clear()
	}
	c.set.SetPage(page, nil)
}

// SaveAll flushes every mounted page and writes the sidecar.
func (c *Coordinator) SaveAll() error {
	c.mu.Lock()
	for page, slot := range c.slots {
		c.flushLocked(page, slot)
	}
	set := c.set.Clone()
	c.mu.Unlock()

	return c.store.Save(c.doc.Path(), set)
}

// Close saves the sidecar and releases every page. The coordinator must
// not be used afterwards.
func (c *Coordinator) Close() error {
	err := c.SaveAll()

	c.mu.Lock()
	for page := range c.slots {
		slot := c.slots[page]
		slot.cancel()
		slot.engine.Destroy()
		delete(c.slots, page)
	}
	c.mu.Unlock()
	return err
}

// normalize converts surface pixel coordinates to page fractions.
func normalize(strokes []annotation.Stroke, w, h int) []annotation.Stroke {
	return mapThrough(strokes, geometry.Scale(1/float64(w), 1/float64(h)))
}

// denormalize converts page fractions back to surface pixels.
func denormalize(strokes []annotation.Stroke, w, h int) []annotation.Stroke {
	return mapThrough(strokes, geometry.Scale(float64(w), float64(h)))
}

func mapThrough(strokes []annotation.Stroke, t geometry.AffineTransform) []annotation.Stroke {
	out := make([]annotation.Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = s.MapPoints(func(x, y float64) (float64, float64) {
			p := t.Apply(geometry.Point2D{X: x, Y: y})
			return p.X, p.Y
		})
	}
	return out
}
