package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"pdfink/internal/view"
	"pdfink/pkg/geometry"
)

// DocView is the scrollable column of page widgets. It mounts pages as
// they scroll into view and unmounts pages that drift far enough away,
// keeping the number of live ink surfaces proportional to the viewport.
type DocView struct {
	coord  *view.Coordinator
	pages  []*PageWidget
	column *fyne.Container
	scroll *container.Scroll

	// how far beyond the viewport, in viewport heights, pages are
	// mounted ahead of scrolling
	margin float64
}

// NewDocView builds the view and mounts the initially visible pages.
func NewDocView(coord *view.Coordinator, margin float64) *DocView {
	if margin < 0 {
		margin = 0
	}
	dv := &DocView{coord: coord, margin: margin}

	dv.column = container.NewVBox()
	for page := 1; page <= coord.NumPages(); page++ {
		pw := NewPageWidget(coord, page)
		dv.pages = append(dv.pages, pw)
		dv.column.Add(container.NewCenter(pw))
	}

	dv.scroll = container.NewScroll(dv.column)
	dv.scroll.OnScrolled = func(fyne.Position) { dv.MountVisible() }
	return dv
}

// Content returns the object to place in the window.
func (dv *DocView) Content() fyne.CanvasObject {
	return dv.scroll
}

// PageUpdated implements view.Notifier: a finished raster repaints its
// widget.
func (dv *DocView) PageUpdated(page int) {
	if page >= 1 && page <= len(dv.pages) {
		dv.pages[page-1].Refresh()
	}
}

// MountVisible mounts every page within the preload margin of the
// viewport and unmounts the rest. Mounted-page strokes are flushed on
// unmount, so scrolling never loses ink.
func (dv *DocView) MountVisible() {
	if dv.column.Size().Height <= 0 {
		// before the first window layout the cells carry no positions
		dv.column.Resize(dv.column.MinSize())
	}

	height := float64(dv.scroll.Size().Height)
	if height <= 0 {
		height = 600
	}
	viewport := geometry.NewRect(0, float64(dv.scroll.Offset.Y), 1, height)
	reach := viewport.Inset(-height * dv.margin)

	for i, pw := range dv.pages {
		// document-space position comes from the wrapper cell; the page
		// widget's own Position is relative to the centering cell and
		// stays near zero
		cell := dv.column.Objects[i]
		pageRect := geometry.NewRect(0, float64(cell.Position().Y),
			1, float64(cell.Size().Height))

		if reach.Intersects(pageRect) {
			if err := dv.coord.EnsureMounted(pw.Page()); err == nil {
				pw.Refresh()
			}
		} else {
			dv.coord.Unmount(pw.Page())
		}
	}
}

// RefreshAll repaints every page widget, recomputing layout first so a
// scale change resizes the column.
func (dv *DocView) RefreshAll() {
	for _, pw := range dv.pages {
		pw.Refresh()
	}
	dv.column.Refresh()
	dv.scroll.Refresh()
}
