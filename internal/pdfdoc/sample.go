package pdfdoc

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// WriteSample writes a small multi-page PDF to path. It exists so the
// viewer can be tried without hunting for a document, and it gives the
// tests a real file to open.
func WriteSample(path string, pages int) error {
	if pages < 1 {
		pages = 1
	}
	p := gofpdf.New("P", "pt", "Letter", "")
	p.SetFont("Helvetica", "", 24)
	for i := 1; i <= pages; i++ {
		p.AddPage()
		p.SetDrawColor(0, 0, 0)
		p.SetLineWidth(0.5)
		p.Text(72, 100, fmt.Sprintf("Sample page %d of %d", i, pages))
		p.Rect(54, 54, 504, 684, "D")
	}
	return p.OutputFileAndClose(path)
}
