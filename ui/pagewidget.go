// Package ui builds the Fyne interface: a scrollable column of page
// widgets, each compositing its page raster and ink layer, with a
// toolbar driving the shared view coordinator.
package ui

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/driver/mobile"
	"fyne.io/fyne/v2/widget"

	"pdfink/internal/ink"
	"pdfink/internal/view"
)

// PageWidget displays one page and feeds its pointer input into the
// page's ink engine.
type PageWidget struct {
	widget.BaseWidget

	coord *view.Coordinator
	page  int

	raster  *fynecanvas.Raster
	pressed bool
}

// NewPageWidget creates the widget for the 1-based page.
func NewPageWidget(coord *view.Coordinator, page int) *PageWidget {
	pw := &PageWidget{coord: coord, page: page}
	pw.raster = fynecanvas.NewRaster(pw.draw)
	pw.raster.ScaleMode = fynecanvas.ImageScalePixels
	pw.ExtendBaseWidget(pw)
	return pw
}

// Page returns the widget's 1-based page number.
func (pw *PageWidget) Page() int {
	return pw.page
}

func (pw *PageWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(pw.raster)
}

func (pw *PageWidget) MinSize() fyne.Size {
	w, h, err := pw.coord.SurfaceSize(pw.page)
	if err != nil {
		return fyne.NewSize(200, 260)
	}
	return fyne.NewSize(float32(w), float32(h))
}

// draw is the raster callback. Unmounted pages show a blank sheet until
// the scroll handler mounts them.
func (pw *PageWidget) draw(w, h int) image.Image {
	if img := pw.coord.Composite(pw.page); img != nil {
		return img
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	sheet := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range sheet.Pix {
		sheet.Pix[i] = 0xff
	}
	return sheet
}

// engine returns the page's ink engine, mounting the page on first use.
func (pw *PageWidget) engine() *ink.Engine {
	if e := pw.coord.Engine(pw.page); e != nil {
		return e
	}
	if err := pw.coord.EnsureMounted(pw.page); err != nil {
		return nil
	}
	return pw.coord.Engine(pw.page)
}

// sample converts a widget position to surface coordinates. The widget
// is laid out at the surface's logical size, but a stretched layout
// still maps correctly through the size ratio.
func (pw *PageWidget) sample(pos fyne.Position) ink.Sample {
	x, y := float64(pos.X), float64(pos.Y)
	size := pw.Size()
	if w, h, err := pw.coord.SurfaceSize(pw.page); err == nil && size.Width > 0 && size.Height > 0 {
		x *= float64(w) / float64(size.Width)
		y *= float64(h) / float64(size.Height)
	}
	return ink.Sample{X: x, Y: y}
}

func (pw *PageWidget) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	e := pw.engine()
	if e == nil {
		return
	}
	pw.pressed = true
	e.PointerDown(ink.PointerEvent{Kind: ink.KindMouse, Sample: pw.sample(ev.Position)})
	pw.Refresh()
}

func (pw *PageWidget) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !pw.pressed {
		return
	}
	pw.pressed = false
	if e := pw.coord.Engine(pw.page); e != nil {
		e.PointerUp(ink.PointerEvent{Kind: ink.KindMouse, Sample: pw.sample(ev.Position)})
	}
	pw.Refresh()
}

func (pw *PageWidget) Dragged(ev *fyne.DragEvent) {
	if !pw.pressed {
		return
	}
	if e := pw.coord.Engine(pw.page); e != nil {
		e.PointerMove(ink.PointerEvent{Kind: ink.KindMouse, Sample: pw.sample(ev.Position)})
	}
	pw.Refresh()
}

func (pw *PageWidget) DragEnd() {}

func (pw *PageWidget) MouseIn(*desktop.MouseEvent) {}

func (pw *PageWidget) MouseMoved(*desktop.MouseEvent) {}

// MouseOut ends a stroke whose pointer left the page mid-draw.
func (pw *PageWidget) MouseOut() {
	if !pw.pressed {
		return
	}
	pw.pressed = false
	if e := pw.coord.Engine(pw.page); e != nil {
		e.PointerLeave()
	}
	pw.Refresh()
}

func (pw *PageWidget) TouchDown(ev *mobile.TouchEvent) {
	e := pw.engine()
	if e == nil {
		return
	}
	pw.pressed = true
	e.PointerDown(ink.PointerEvent{
		Kind: ink.KindTouch, Sample: pw.sample(ev.Position), TouchCount: 1})
	pw.Refresh()
}

func (pw *PageWidget) TouchUp(ev *mobile.TouchEvent) {
	pw.pressed = false
	if e := pw.coord.Engine(pw.page); e != nil {
		e.PointerUp(ink.PointerEvent{
			Kind: ink.KindTouch, Sample: pw.sample(ev.Position), TouchCount: 1})
	}
	pw.Refresh()
}

func (pw *PageWidget) TouchCancel(ev *mobile.TouchEvent) {
	pw.pressed = false
	if e := pw.coord.Engine(pw.page); e != nil {
		e.PointerCancel(ink.PointerEvent{
			Kind: ink.KindTouch, Sample: pw.sample(ev.Position), TouchCount: 1})
	}
	pw.Refresh()
}
