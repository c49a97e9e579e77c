// Package viewport holds the user-controlled display transform for one
// render context: zoom, pan, rotation, flips, and the display window.
// A Viewport has a single writer; it is mutated only by explicit user
// commands and never read concurrently with its own mutation.
package viewport

import (
	"errors"
	"log"
	"math"

	"dicom-viewer/pkg/geometry"
)

const (
	// MinScale and MaxScale bound the zoom factor. Mutations outside the
	// range are clamped, not rejected.
	MinScale = 0.1
	MaxScale = 10.0

	// fitMargin leaves 5% of the canvas free on each fit so the image
	// edge is never clipped by the border.
	fitMargin = 0.95
)

// ErrInvalidWindow reports a non-positive window width supplied by a
// caller. The width is clamped to 1 and the render proceeds.
var ErrInvalidWindow = errors.New("window width must be positive")

// Viewport is the display state for one context.
type Viewport struct {
	Scale       float64
	Translation geometry.Point2D
	RotationDeg float64
	FlipH       bool
	FlipV       bool

	WindowCenter float64
	WindowWidth  float64
	Invert       bool
}

// New returns a viewport at identity with a full-range 8-bit window.
func New() *Viewport {
	return &Viewport{Scale: 1, WindowCenter: 128, WindowWidth: 256}
}

// Reset restores the geometric state to identity. The display window is
// left alone; resetting contrast is a separate command.
func (v *Viewport) Reset() {
	v.Scale = 1
	v.Translation = geometry.Point2D{}
	v.RotationDeg = 0
	v.FlipH = false
	v.FlipV = false
}

// SetZoom sets the scale factor, clamped to [MinScale, MaxScale].
func (v *Viewport) SetZoom(scale float64) {
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}
	v.Scale = scale
}

// Pan shifts the user translation by a canvas-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.Translation.X += dx
	v.Translation.Y += dy
}

// SetRotation sets the rotation, normalized into [0, 360).
func (v *Viewport) SetRotation(degrees float64) {
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	v.RotationDeg = degrees
}

// Rotate adds to the current rotation.
func (v *Viewport) Rotate(degrees float64) {
	v.SetRotation(v.RotationDeg + degrees)
}

// ToggleFlipH mirrors the image horizontally.
func (v *Viewport) ToggleFlipH() { v.FlipH = !v.FlipH }

// ToggleFlipV mirrors the image vertically.
func (v *Viewport) ToggleFlipV() { v.FlipV = !v.FlipV }

// ToggleInvert flips the grayscale polarity.
func (v *Viewport) ToggleInvert() { v.Invert = !v.Invert }

// SetWindowLevel sets the display window. A width below 1 is clamped and
// reported with ErrInvalidWindow; the viewport stays usable either way.
func (v *Viewport) SetWindowLevel(center, width float64) error {
	v.WindowCenter = center
	if width < 1 {
		log.Printf("viewport: clamping window width %.2f to 1", width)
		v.WindowWidth = 1
		return ErrInvalidWindow
	}
	v.WindowWidth = width
	return nil
}

// FitToWindow scales the image to fill the canvas with a small margin and
// clears the user translation.
func (v *Viewport) FitToWindow(canvasW, canvasH, imageW, imageH float64) {
	if imageW <= 0 || imageH <= 0 || canvasW <= 0 || canvasH <= 0 {
		return
	}
	v.SetZoom(math.Min(canvasW*fitMargin/imageW, canvasH*fitMargin/imageH))
	v.Translation = geometry.Point2D{}
}

// DragMapping converts a window/level drag gesture into window deltas.
// The directionality is deliberately configurable; see prefs.
type DragMapping struct {
	CenterGain float64 // windowCenter change per horizontal pixel
	WidthGain  float64 // windowWidth change per vertical pixel
}

// DefaultDragMapping is the conventional mapping: horizontal drag moves
// the center (level), vertical drag widens the window.
func DefaultDragMapping() DragMapping {
	return DragMapping{CenterGain: 1, WidthGain: 1}
}

// ApplyDrag adjusts the window by a pointer delta under the mapping.
func (v *Viewport) ApplyDrag(dx, dy float64, m DragMapping) {
	center := v.WindowCenter + dx*m.CenterGain
	width := v.WindowWidth + dy*m.WidthGain
	if width < 1 {
		width = 1
	}
	v.WindowCenter = center
	v.WindowWidth = width
}
