// Package pdfdoc reads PDF page geometry and produces page rasters for
// the viewer. Parsing is delegated to seehuhn.de/go/pdf; only the page
// attributes the viewer needs (media box, rotation) are extracted.
package pdfdoc

import (
	"bytes"
	"fmt"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"pdfink/internal/storage"
	"pdfink/pkg/geometry"
)

// Letter is the fallback page size in PDF points for pages without a
// usable MediaBox.
var Letter = geometry.Size{Width: 612, Height: 792}

// PageInfo describes one page's geometry. Width and Height are the
// media box dimensions in PDF points, before rotation. Rotation is the
// page's display rotation, normalized to 0, 90, 180 or 270 degrees
// clockwise.
type PageInfo struct {
	Width    float64
	Height   float64
	Rotation int
}

// DisplaySize returns the upright page size in points: for 90 and 270
// degree rotations the media box dimensions are swapped.
func (p PageInfo) DisplaySize() geometry.Size {
	s := geometry.Size{Width: p.Width, Height: p.Height}
	if p.Rotation == 90 || p.Rotation == 270 {
		return s.Swapped()
	}
	return s
}

// Document is an open PDF file. Page metadata is read lazily and cached;
// the underlying file stays open until Close.
type Document struct {
	path     string
	r        *pdf.Reader
	numPages int
	pages    []*PageInfo
}

// Open opens the PDF at path and reads its page count.
func Open(path string) (*Document, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return newDocument(path, r)
}

// OpenFS opens a PDF through a storage.FS, for callers that keep all
// file access behind the collaborator interface.
func OpenFS(fsys storage.FS, path string) (*Document, error) {
	data, err := fsys.ReadBinary(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return newDocument(path, r)
}

func newDocument(path string, r *pdf.Reader) (*Document, error) {
	n, err := pagetree.NumPages(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read page count of %s: %w", path, err)
	}
	return &Document{
		path:     path,
		r:        r,
		numPages: n,
		pages:    make([]*PageInfo, n),
	}, nil
}

// Path returns the path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.numPages
}

// Page returns the geometry of the zero-based page n.
func (d *Document) Page(n int) (PageInfo, error) {
	if n < 0 || n >= d.numPages {
		return PageInfo{}, fmt.Errorf("page %d out of range [0, %d)", n, d.numPages)
	}
	if d.pages[n] != nil {
		return *d.pages[n], nil
	}

	dict, err := pagetree.GetPage(d.r, n)
	if err != nil {
		return PageInfo{}, fmt.Errorf("read page %d: %w", n, err)
	}

	info := PageInfo{Width: Letter.Width, Height: Letter.Height}
	if box, err := pdf.GetRectangle(d.r, dict["MediaBox"]); err == nil && box != nil {
		if w, h := box.URx-box.LLx, box.URy-box.LLy; w > 0 && h > 0 {
			info.Width, info.Height = w, h
		}
	}
	if rot, err := pdf.GetInt(d.r, dict["Rotate"]); err == nil {
		info.Rotation = normalizeRotation(int(rot))
	}

	d.pages[n] = &info
	return info, nil
}

// Close closes the underlying file.
func (d *Document) Close() error {
	return d.r.Close()
}

// normalizeRotation maps an arbitrary Rotate value onto the four legal
// display rotations. Values that are not a multiple of 90 are treated as
// unrotated.
func normalizeRotation(deg int) int {
	deg = ((deg % 360) + 360) % 360
	switch deg {
	case 90, 180, 270:
		return deg
	default:
		return 0
	}
}
