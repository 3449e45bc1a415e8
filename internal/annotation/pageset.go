package annotation

import (
	"sort"
)

// PageSet maps 1-based page numbers to their ordered stroke lists. Later
// strokes draw on top of earlier ones. A page with no strokes is absent
// from the map; SetPage maintains that invariant so an empty list never
// leaks into a sidecar file.
//
// Stroke coordinates inside a PageSet are normalized page fractions in
// [0, 1] of the upright page width and height. Conversion to and from
// surface pixel space happens at the view layer when a page's drawing
// surface is created or flushed.
type PageSet map[int][]Stroke

// NewPageSet returns an empty page set.
func NewPageSet() PageSet {
	return make(PageSet)
}

// SetPage replaces the stroke list for a page. An empty or nil list
// removes the page entry entirely.
func (ps PageSet) SetPage(page int, strokes []Stroke) {
	if len(strokes) == 0 {
		delete(ps, page)
		return
	}
	copied := make([]Stroke, len(strokes))
	for i, s := range strokes {
		copied[i] = s.Clone()
	}
	ps[page] = copied
}

// Page returns the strokes for a page, or nil if the page has none.
// The returned slice is a copy; mutation does not affect the set.
func (ps PageSet) Page(page int) []Stroke {
	strokes, ok := ps[page]
	if !ok {
		return nil
	}
	out := make([]Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = s.Clone()
	}
	return out
}

// Pages returns the sorted page numbers that carry strokes.
func (ps PageSet) Pages() []int {
	pages := make([]int, 0, len(ps))
	for p := range ps {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// TotalStrokes returns the stroke count across all pages.
func (ps PageSet) TotalStrokes() int {
	n := 0
	for _, strokes := range ps {
		n += len(strokes)
	}
	return n
}

// Empty reports whether the set holds no strokes at all.
func (ps PageSet) Empty() bool {
	return len(ps) == 0
}

// Clone returns a deep copy of the set.
func (ps PageSet) Clone() PageSet {
	out := make(PageSet, len(ps))
	for page, strokes := range ps {
		copied := make([]Stroke, len(strokes))
		for i, s := range strokes {
			copied[i] = s.Clone()
		}
		out[page] = copied
	}
	return out
}

// Validate checks every stroke in the set.
func (ps PageSet) Validate() error {
	for _, strokes := range ps {
		for i := range strokes {
			if err := strokes[i].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
