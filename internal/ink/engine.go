// Package ink implements the stroke canvas engine: it turns a stream of
// pointer samples into committed vector strokes and keeps an annotation
// raster layer up to date, incrementally while a stroke is in progress
// and from scratch on load, clear, and resize.
//
// The engine owns only the ink layer. The page raster is composited
// beneath it by the host, so the eraser's destination-out compositing can
// never destroy page content.
package ink

import (
	"errors"
	"image"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	"github.com/google/uuid"

	"pdfink/internal/annotation"
)

// ErrNoSurface is returned when a drawing surface cannot be allocated.
// Construction failures are fatal: the caller must not proceed with a
// surface-less engine.
var ErrNoSurface = errors.New("ink: cannot obtain drawing surface")

// Engine captures pointer input for one page and renders it onto an
// annotation layer. All methods must be called from the UI event loop;
// the engine performs no locking of its own.
type Engine struct {
	id     string
	log    *slog.Logger
	widths Widths

	// Logical dimensions and the device pixel ratio. The ink surface is
	// width*dpr x height*dpr physical pixels; all public coordinates are
	// logical and scaled internally.
	width, height int
	dpr           float64

	ink *gg.Context

	tool       annotation.Tool
	color      string
	allowTouch bool

	scheduler FrameScheduler

	// Capture state. current is non-nil only while a pointer is down.
	current *annotation.Stroke

	// Highlighter in-progress state: a snapshot of the committed pixels
	// taken at stroke start, and a scratch surface holding the live
	// stroke at full opacity. Each frame restores the snapshot and
	// composites the scratch once at the target opacity, so self-overlap
	// can never double-darken.
	snapshot []uint8
	scratch  *gg.Context

	compositePending bool
	compositeDirty   bool

	// eraser segment mask, reused across segments
	mask *gg.Context

	committed []annotation.Stroke
	destroyed bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithWidths overrides the default tool widths.
func WithWidths(w Widths) Option {
	return func(e *Engine) { e.widths = w }
}

// WithTouchDrawing bypasses palm rejection so single-finger touch input
// draws. Multi-touch gestures still pass through.
func WithTouchDrawing(allow bool) Option {
	return func(e *Engine) { e.allowTouch = allow }
}

// WithScheduler injects the frame scheduler used to throttle highlighter
// composites. The default runs composites synchronously.
func WithScheduler(s FrameScheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.scheduler = s
		}
	}
}

// New allocates an engine with a width x height logical pixel surface at
// the given device pixel ratio. It fails if the surface geometry is
// unusable or the drawing surface cannot be allocated.
func New(width, height int, dpr float64, opts ...Option) (*Engine, error) {
	if width <= 0 || height <= 0 || dpr <= 0 {
		return nil, ErrNoSurface
	}

	e := &Engine{
		id:        uuid.NewString(),
		log:       slog.New(slog.DiscardHandler),
		widths:    DefaultWidths(),
		width:     width,
		height:    height,
		dpr:       dpr,
		tool:      annotation.ToolPen,
		color:     "#000000",
		scheduler: syncScheduler{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.ink = gg.NewContext(e.physW(), e.physH())
	if e.ink == nil || e.ink.ResizeTarget() == nil {
		return nil, ErrNoSurface
	}

	e.log.Debug("ink engine created",
		"engine", e.id, "width", width, "height", height, "dpr", dpr)
	return e, nil
}

func (e *Engine) physW() int { return int(math.Round(float64(e.width) * e.dpr)) }
func (e *Engine) physH() int { return int(math.Round(float64(e.height) * e.dpr)) }

// Size returns the logical surface dimensions.
func (e *Engine) Size() (width, height int) {
	return e.width, e.height
}

// DPR returns the device pixel ratio.
func (e *Engine) DPR() float64 {
	return e.dpr
}

// Tool returns the active tool.
func (e *Engine) Tool() annotation.Tool {
	return e.tool
}

// SetTool switches the active tool. A stroke in progress is finished
// first, exactly as if the pointer had been lifted. The hand tool
// disables capture entirely.
func (e *Engine) SetTool(tool annotation.Tool) {
	if e.destroyed {
		return
	}
	if e.current != nil {
		e.endStroke(true)
	}
	e.tool = tool
}

// SetColor sets the color for subsequently started strokes. An
// in-progress stroke keeps the color it started with.
func (e *Engine) SetColor(hex string) {
	e.color = hex
}

// GesturePolicy reports how the host should route touch gestures for the
// current tool: drawing tools capture single-pointer input but let
// two-finger gestures pass, the hand tool passes everything through.
func (e *Engine) GesturePolicy() GesturePolicy {
	if e.tool == annotation.ToolHand {
		return GesturePassAll
	}
	return GestureCaptureSingle
}

// accepts applies the palm rejection policy. Multi-touch gestures are
// checked first and always pass through untouched; then a lone touch is
// rejected unless touch drawing is enabled. Pen and mouse always draw.
func (e *Engine) accepts(ev PointerEvent) bool {
	if ev.Kind != KindTouch {
		return true
	}
	if ev.TouchCount >= 2 {
		return false
	}
	return e.allowTouch
}

// PointerDown begins capture. For pen and eraser a dot is painted
// immediately so a tap without movement still marks; the highlighter's
// first dot is deferred to the first segment to avoid a visible seam at
// stroke start.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.destroyed || e.current != nil {
		return
	}
	if e.tool == annotation.ToolHand || !e.accepts(ev) {
		return
	}

	p := ev.Sample.point(ev.Kind)
	e.current = &annotation.Stroke{
		Points:    []annotation.Point{p},
		Tool:      e.tool,
		Color:     e.color,
		LineWidth: e.widths.Resolve(e.tool, p.Pressure),
	}

	switch e.tool {
	case annotation.ToolPen:
		e.fillDot(e.ink, p, e.color, e.widths.Resolve(e.tool, p.Pressure)/2)
	case annotation.ToolEraser:
		e.eraseDot(p, e.widths.Eraser/2)
	case annotation.ToolHighlighter:
		e.snapshot = snapshotPixels(e.ink)
		e.scratch = gg.NewContext(e.physW(), e.physH())
	}
}

// PointerMove appends samples to the in-progress stroke, expanding any
// coalesced sub-samples in delivery order, and renders only the newest
// segment for each. Without an active stroke it is a no-op; a move after
// an up is a legitimate event race, not an error.
func (e *Engine) PointerMove(ev PointerEvent) {
	if e.destroyed || e.current == nil {
		return
	}
	for _, s := range ev.samples() {
		e.current.Points = append(e.current.Points, s.point(ev.Kind))
		e.renderNewestSegment()
	}
}

// PointerUp ends capture and commits the stroke.
func (e *Engine) PointerUp(ev PointerEvent) {
	if e.destroyed || e.current == nil {
		return
	}
	e.endStroke(true)
}

// PointerLeave ends capture like PointerUp. A leave arriving after an up
// has already cleared capture is silently ignored.
func (e *Engine) PointerLeave() {
	if e.destroyed || e.current == nil {
		return
	}
	e.endStroke(true)
}

// PointerCancel is treated identically to PointerUp: the in-progress
// stroke is committed, with no special rollback.
func (e *Engine) PointerCancel(ev PointerEvent) {
	if e.destroyed || e.current == nil {
		return
	}
	e.endStroke(true)
}

// endStroke finishes the in-progress stroke. With commit, strokes with at
// least one point join the committed list; a discarded stroke leaves no
// trace on the surface.
func (e *Engine) endStroke(commit bool) {
	stroke := e.current
	e.current = nil

	if stroke.Tool == annotation.ToolHighlighter {
		if commit && len(stroke.Points) > 0 {
			// final composite for the live stroke
			e.compositeHighlighter()
		} else if e.snapshot != nil {
			restorePixels(e.ink, e.snapshot)
		}
		e.snapshot = nil
		if e.scratch != nil {
			_ = e.scratch.Close()
			e.scratch = nil
		}
	} else if !commit {
		// pen and eraser draw directly onto the ink layer; undoing a
		// discarded stroke means replaying the committed list
		e.redrawAll()
	}

	if commit && len(stroke.Points) > 0 {
		e.committed = append(e.committed, *stroke)
	}
	e.compositeDirty = false
}

// renderNewestSegment draws the segment ending at the stroke's newest
// point. This is the only rendering done per input sample; full redraws
// happen only on load, clear, and resize.
func (e *Engine) renderNewestSegment() {
	pts := e.current.Points
	i := len(pts) - 1
	if i < 1 {
		return
	}

	switch e.current.Tool {
	case annotation.ToolPen:
		width := e.widths.Resolve(annotation.ToolPen, pts[i].Pressure)
		e.strokeSegment(e.ink, pts, i, e.current.Color, width)
	case annotation.ToolEraser:
		e.eraseSegment(pts, i)
	case annotation.ToolHighlighter:
		// full opacity on the scratch layer; opacity is applied once at
		// composite time
		e.strokeSegment(e.scratch, pts, i, e.current.Color, e.widths.Highlighter)
		e.requestComposite()
	}
}

// requestComposite schedules a frame-throttled highlighter composite. If
// one is already pending the stroke is only marked dirty; the callback
// reschedules itself until the surface is clean. This bounds the pending
// callbacks per stroke to one no matter how fast samples arrive.
func (e *Engine) requestComposite() {
	if e.compositePending {
		e.compositeDirty = true
		return
	}
	e.compositePending = true
	e.scheduler.Schedule(e.compositeFrame)
}

func (e *Engine) compositeFrame() {
	e.compositePending = false
	if e.destroyed || e.scratch == nil || e.snapshot == nil {
		return
	}
	e.compositeHighlighter()
	if e.compositeDirty {
		e.compositeDirty = false
		e.compositePending = true
		e.scheduler.Schedule(e.compositeFrame)
	}
}

// compositeHighlighter restores the committed-pixel snapshot and lays the
// scratch surface over it once at the target opacity. However often the
// live stroke crosses itself, it renders as if drawn exactly once.
func (e *Engine) compositeHighlighter() {
	restorePixels(e.ink, e.snapshot)
	compositeOver(e.ink, e.scratch, e.widths.HighlighterOpacity)
}

// Clear discards the in-progress stroke and all committed strokes for
// this page and blanks the surface.
func (e *Engine) Clear() {
	if e.destroyed {
		return
	}
	e.current = nil
	e.snapshot = nil
	if e.scratch != nil {
		_ = e.scratch.Close()
		e.scratch = nil
	}
	e.committed = nil
	e.ink.Clear()
}

// Strokes returns a deep copy of the committed stroke list, in drawing
// order. An in-progress stroke is not included until it commits.
func (e *Engine) Strokes() []annotation.Stroke {
	out := make([]annotation.Stroke, len(e.committed))
	for i, s := range e.committed {
		out[i] = s.Clone()
	}
	return out
}

// LoadStrokes replaces the committed stroke list and redraws the surface
// from scratch. Strokes without points are dropped.
func (e *Engine) LoadStrokes(strokes []annotation.Stroke) {
	if e.destroyed {
		return
	}
	e.current = nil
	e.committed = e.committed[:0]
	for _, s := range strokes {
		if s.Validate() == nil {
			e.committed = append(e.committed, s.Clone())
		}
	}
	e.redrawAll()
}

// Resize changes the logical surface dimensions, rescales the committed
// strokes into the new pixel space, and redraws them. Pointer coordinates
// are always captured in current surface space, so the stroke list is
// rescaled before anything renders against the new geometry. A stroke in
// progress during a resize is discarded.
func (e *Engine) Resize(width, height int) {
	if e.destroyed || width <= 0 || height <= 0 {
		return
	}
	if e.current != nil {
		e.log.Debug("resize during capture, discarding stroke", "engine", e.id)
		e.current = nil
		e.snapshot = nil
		if e.scratch != nil {
			_ = e.scratch.Close()
			e.scratch = nil
		}
	}

	sx := float64(width) / float64(e.width)
	sy := float64(height) / float64(e.height)
	for i, s := range e.committed {
		e.committed[i] = s.MapPoints(func(x, y float64) (float64, float64) {
			return x * sx, y * sy
		})
	}

	e.width, e.height = width, height
	_ = e.ink.Close()
	e.ink = gg.NewContext(e.physW(), e.physH())
	if e.mask != nil {
		_ = e.mask.Close()
		e.mask = nil
	}
	e.redrawAll()
}

// Destroy discards any in-progress stroke and releases the drawing
// surfaces. It is safe to call once; subsequent operations no-op.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.current = nil
	e.snapshot = nil
	if e.scratch != nil {
		_ = e.scratch.Close()
		e.scratch = nil
	}
	if e.mask != nil {
		_ = e.mask.Close()
		e.mask = nil
	}
	if e.ink != nil {
		_ = e.ink.Close()
	}
	e.log.Debug("ink engine destroyed", "engine", e.id)
}

// Image returns a copy of the annotation layer in physical pixels. Only
// ink is present; the page raster is composited by the host.
func (e *Engine) Image() *image.RGBA {
	if e.destroyed {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	return e.ink.ResizeTarget().ToImage()
}

// redrawAll re-renders every committed stroke onto a blank surface, in
// order, using the same per-segment pipeline as live capture so replayed
// pages are pixel-equivalent to their live rendering.
func (e *Engine) redrawAll() {
	e.ink.Clear()
	for i := range e.committed {
		e.renderStroke(&e.committed[i])
	}
}

func (e *Engine) renderStroke(s *annotation.Stroke) {
	switch s.Tool {
	case annotation.ToolPen:
		if len(s.Points) == 1 {
			p := s.Points[0]
			e.fillDot(e.ink, p, s.Color, e.widths.Resolve(s.Tool, p.Pressure)/2)
			return
		}
		e.fillDot(e.ink, s.Points[0], s.Color, e.widths.Resolve(s.Tool, s.Points[0].Pressure)/2)
		for i := 1; i < len(s.Points); i++ {
			width := e.widths.Resolve(s.Tool, s.Points[i].Pressure)
			e.strokeSegment(e.ink, s.Points, i, s.Color, width)
		}

	case annotation.ToolHighlighter:
		// a single-point highlighter stroke leaves no mark, matching
		// live capture where the first dot is deferred
		if len(s.Points) < 2 {
			return
		}
		e.ink.PushLayer(gg.BlendNormal, e.widths.HighlighterOpacity)
		e.ink.SetHexColor(s.Color)
		e.ink.SetStroke(gg.RoundStroke().WithWidth(e.widths.Highlighter * e.dpr))
		addStrokePath(e.ink, s.Points, e.dpr)
		if err := e.ink.Stroke(); err != nil {
			e.log.Warn("highlighter replay failed", "engine", e.id, "error", err)
		}
		e.ink.PopLayer()

	case annotation.ToolEraser:
		m := e.segmentMask()
		m.Clear()
		if len(s.Points) == 1 {
			e.fillDot(m, s.Points[0], "#ffffff", e.widths.Eraser/2)
		} else {
			m.SetRGB(1, 1, 1)
			m.SetStroke(gg.RoundStroke().WithWidth(e.widths.Eraser * e.dpr))
			addStrokePath(m, s.Points, e.dpr)
			if err := m.Stroke(); err != nil {
				e.log.Warn("eraser replay failed", "engine", e.id, "error", err)
			}
		}
		applyDestinationOut(e.ink, m)
	}
}

// strokeSegment renders the smoothed segment ending at index i with round
// caps and joins.
func (e *Engine) strokeSegment(dc *gg.Context, pts []annotation.Point, i int, hex string, width float64) {
	if dc == nil {
		return
	}
	dc.SetHexColor(hex)
	dc.SetStroke(gg.RoundStroke().WithWidth(width * e.dpr))
	addSegmentPath(dc, pts, i, e.dpr)
	if err := dc.Stroke(); err != nil {
		e.log.Warn("segment render failed", "engine", e.id, "error", err)
	}
}

func (e *Engine) fillDot(dc *gg.Context, p annotation.Point, hex string, radius float64) {
	dc.SetHexColor(hex)
	dc.DrawCircle(p.X*e.dpr, p.Y*e.dpr, radius*e.dpr)
	if err := dc.Fill(); err != nil {
		e.log.Warn("dot render failed", "engine", e.id, "error", err)
	}
}

func (e *Engine) segmentMask() *gg.Context {
	if e.mask == nil {
		e.mask = gg.NewContext(e.physW(), e.physH())
	}
	return e.mask
}

func (e *Engine) eraseDot(p annotation.Point, radius float64) {
	m := e.segmentMask()
	m.Clear()
	e.fillDot(m, p, "#ffffff", radius)
	applyDestinationOut(e.ink, m)
}

func (e *Engine) eraseSegment(pts []annotation.Point, i int) {
	m := e.segmentMask()
	m.Clear()
	m.SetRGB(1, 1, 1)
	m.SetStroke(gg.RoundStroke().WithWidth(e.widths.Eraser * e.dpr))
	addSegmentPath(m, pts, i, e.dpr)
	if err := m.Stroke(); err != nil {
		e.log.Warn("eraser segment failed", "engine", e.id, "error", err)
	}
	applyDestinationOut(e.ink, m)
}
