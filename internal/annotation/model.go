// Package annotation defines the data model for hand-drawn ink annotations:
// sampled points, strokes, and the per-page stroke collections that are
// persisted alongside a PDF document.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"

	"pdfink/pkg/geometry"
)

// Tool identifies the drawing tool that produced a stroke.
type Tool int

const (
	ToolPen Tool = iota
	ToolHighlighter
	ToolEraser

	// ToolHand is an interaction mode, not a drawing tool: it disables
	// capture entirely so the host can pan and zoom. Strokes are never
	// tagged with it and it never appears in a sidecar file.
	ToolHand
)

func (t Tool) String() string {
	switch t {
	case ToolPen:
		return "pen"
	case ToolHighlighter:
		return "highlighter"
	case ToolEraser:
		return "eraser"
	case ToolHand:
		return "hand"
	default:
		return "unknown"
	}
}

// ParseTool converts a serialized tool name back to a Tool.
func ParseTool(s string) (Tool, error) {
	switch s {
	case "pen":
		return ToolPen, nil
	case "highlighter":
		return ToolHighlighter, nil
	case "eraser":
		return ToolEraser, nil
	case "hand":
		return ToolHand, nil
	default:
		return 0, fmt.Errorf("unknown tool %q", s)
	}
}

// Draws reports whether the tool produces strokes.
func (t Tool) Draws() bool {
	return t == ToolPen || t == ToolHighlighter || t == ToolEraser
}

// MarshalJSON implements json.Marshaler.
func (t Tool) MarshalJSON() ([]byte, error) {
	if !t.Draws() {
		return nil, fmt.Errorf("tool %v cannot be serialized", t)
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tool) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTool(s)
	if err != nil {
		return err
	}
	if !parsed.Draws() {
		return fmt.Errorf("tool %q is not a drawing tool", s)
	}
	*t = parsed
	return nil
}

// Point is one sampled input event. Coordinates are interpreted by the
// owner of the containing stroke list: surface-local logical pixels during
// capture, normalized page fractions in a persisted PageSet. A Point is
// immutable once created.
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure"`
	TiltX    float64 `json:"tiltX"`
	TiltY    float64 `json:"tiltY"`
	// Timestamp is a monotonic sample time in milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// DefaultPressure is reported for devices without pressure sensing.
const DefaultPressure = 0.5

// Stroke is one continuous pointer-down-to-pointer-up drawing action:
// an ordered point list plus the tool, color, and resolved line width it
// was drawn with. Point order is temporal order is rendering order.
type Stroke struct {
	Points    []Point `json:"points"`
	Tool      Tool    `json:"tool"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
}

// ErrEmptyStroke is returned for strokes with no points. Such strokes must
// never be committed or persisted.
var ErrEmptyStroke = errors.New("annotation: stroke has no points")

// Validate checks the stroke invariants.
func (s *Stroke) Validate() error {
	if len(s.Points) == 0 {
		return ErrEmptyStroke
	}
	if !s.Tool.Draws() {
		return fmt.Errorf("annotation: stroke tagged with non-drawing tool %v", s.Tool)
	}
	return nil
}

// Clone returns a deep copy of the stroke.
func (s Stroke) Clone() Stroke {
	out := s
	out.Points = make([]Point, len(s.Points))
	copy(out.Points, s.Points)
	return out
}

// Bounds returns the stroke's axis-aligned bounding box, grown by half
// the line width to cover the rendered extent.
func (s Stroke) Bounds() geometry.Rect {
	pts := make([]geometry.Point2D, len(s.Points))
	for i, p := range s.Points {
		pts[i] = geometry.Point2D{X: p.X, Y: p.Y}
	}
	return geometry.BoundingBox(pts).Inset(-s.LineWidth / 2)
}

// MapPoints returns a copy of the stroke with every point position passed
// through fn. Pressure, tilt, and timestamps are preserved.
func (s Stroke) MapPoints(fn func(x, y float64) (float64, float64)) Stroke {
	out := s.Clone()
	for i := range out.Points {
		out.Points[i].X, out.Points[i].Y = fn(out.Points[i].X, out.Points[i].Y)
	}
	return out
}
