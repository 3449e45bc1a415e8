package ink

import (
	"pdfink/internal/annotation"
)

// Kind identifies the physical input source of a pointer event.
type Kind int

const (
	KindMouse Kind = iota
	KindPen
	KindTouch
)

func (k Kind) String() string {
	switch k {
	case KindMouse:
		return "mouse"
	case KindPen:
		return "pen"
	case KindTouch:
		return "touch"
	default:
		return "unknown"
	}
}

// Sample is one position/pressure measurement. Coordinates are logical
// surface pixels. Pressure is in [0, 1]; mouse and touch input carries
// no pressure and resolves to annotation.DefaultPressure, while a pen
// keeps whatever it reports, zero included. Tilt is in degrees, zero if
// unavailable. Timestamp is monotonic milliseconds.
type Sample struct {
	X, Y      float64
	Pressure  float64
	TiltX     float64
	TiltY     float64
	Timestamp int64
}

// PointerEvent is one dispatched input event. Some input sources batch
// high-frequency sub-samples between dispatched events; these arrive in
// Coalesced, ordered oldest first, and must be processed in that order.
// When Coalesced is empty the event's own Sample is the only sample.
type PointerEvent struct {
	Kind Kind
	Sample

	// TouchCount is the number of simultaneous touch points at the time
	// of the event. Only meaningful for KindTouch.
	TouchCount int

	Coalesced []Sample
}

// samples returns the ordered samples carried by the event.
func (ev PointerEvent) samples() []Sample {
	if len(ev.Coalesced) > 0 {
		return ev.Coalesced
	}
	return []Sample{ev.Sample}
}

// point converts a sample to an annotation point. Kinds without pressure
// sensing take the default; a pen's zero pressure is a real measurement
// and passes through.
func (s Sample) point(kind Kind) annotation.Point {
	pressure := s.Pressure
	if kind != KindPen && pressure <= 0 {
		pressure = annotation.DefaultPressure
	}
	if pressure < 0 {
		pressure = 0
	}
	if pressure > 1 {
		pressure = 1
	}
	return annotation.Point{
		X:         s.X,
		Y:         s.Y,
		Pressure:  pressure,
		TiltX:     s.TiltX,
		TiltY:     s.TiltY,
		Timestamp: s.Timestamp,
	}
}

// GesturePolicy tells the host widget how to treat touch gestures while
// this engine is active.
type GesturePolicy int

const (
	// GestureCaptureSingle captures single-pointer input for drawing but
	// lets two-finger gestures through for scroll and pinch zoom.
	GestureCaptureSingle GesturePolicy = iota

	// GesturePassAll passes every pointer and gesture through to the
	// host; the surface is transparent to input (hand tool).
	GesturePassAll
)
