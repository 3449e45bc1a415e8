package ink

import (
	"pdfink/internal/annotation"
)

// Widths holds the line-width parameters for each tool, in logical pixels.
type Widths struct {
	// PenMin and PenMax bound the pressure-interpolated pen width.
	PenMin float64
	PenMax float64

	// Highlighter is the fixed highlighter width, drawn at
	// HighlighterOpacity with normal compositing so it tints rather than
	// occludes.
	Highlighter        float64
	HighlighterOpacity float64

	// Eraser is the fixed eraser width.
	Eraser float64
}

// DefaultWidths returns the standard tool widths.
func DefaultWidths() Widths {
	return Widths{
		PenMin:             1,
		PenMax:             4,
		Highlighter:        20,
		HighlighterOpacity: 0.3,
		Eraser:             30,
	}
}

// Resolve maps tool and pressure to a line width. It is a pure function:
// the pen interpolates linearly between PenMin and PenMax by pressure and
// is non-decreasing in pressure; highlighter and eraser widths are fixed.
func (w Widths) Resolve(tool annotation.Tool, pressure float64) float64 {
	switch tool {
	case annotation.ToolPen:
		if pressure < 0 {
			pressure = 0
		}
		if pressure > 1 {
			pressure = 1
		}
		return w.PenMin + (w.PenMax-w.PenMin)*pressure
	case annotation.ToolHighlighter:
		return w.Highlighter
	case annotation.ToolEraser:
		return w.Eraser
	default:
		return 0
	}
}
