// Package intensity maps raw sample values to display values through
// window/level lookup tables.
package intensity

import (
	"image"

	"dicom-viewer/internal/frame"
)

// Window is a display window in modality units.
type Window struct {
	Center float64
	Width  float64
	Invert bool
}

// Normalized returns the window with its width clamped to a minimum of 1.
// A zero or negative width never reaches the LUT math.
func (w Window) Normalized() Window {
	if w.Width < 1 {
		w.Width = 1
	}
	return w
}

// LUT is a precomputed sample -> display value table. Index by the raw
// stored sample; the modality rescale is folded in at build time.
type LUT struct {
	Window Window
	Table  []uint8
}

// lutKey identifies a cached table. Rescale terms participate because the
// table maps stored samples, not modality units.
type lutKey struct {
	center, width    float64
	invert           bool
	slope, intercept float64
	size             int
}

// Transform builds and memoizes lookup tables. Building is O(sample
// range) while application is O(width*height), so tables are rebuilt only
// when the window or the frame's rescale metadata changes.
type Transform struct {
	tables map[lutKey]*LUT
}

// NewTransform creates an empty LUT cache.
func NewTransform() *Transform {
	return &Transform{tables: make(map[lutKey]*LUT)}
}

const maxCachedLUTs = 8

// LUT returns the lookup table for the frame's sample range under the
// given window, building it on first use.
func (t *Transform) LUT(f *frame.Frame, w Window) *LUT {
	w = w.Normalized()

	slope := f.RescaleSlope
	if slope == 0 {
		slope = 1
	}
	size := f.MaxSampleValue() + 1

	key := lutKey{
		center: w.Center, width: w.Width, invert: w.Invert,
		slope: slope, intercept: f.RescaleIntercept, size: size,
	}
	if cached, ok := t.tables[key]; ok {
		return cached
	}

	l := buildLUT(w, slope, f.RescaleIntercept, size)

	// W/L dragging sweeps through many windows; an unbounded cache would
	// hold a 64KiB table per step.
	if len(t.tables) >= maxCachedLUTs {
		t.tables = make(map[lutKey]*LUT)
	}
	t.tables[key] = l
	return l
}

// buildLUT computes the table. Clip edges are inclusive: samples at or
// below the window floor map to 0, at or above the ceiling to 255.
func buildLUT(w Window, slope, intercept float64, size int) *LUT {
	minVal := w.Center - w.Width/2
	maxVal := w.Center + w.Width/2

	table := make([]uint8, size)
	for s := 0; s < size; s++ {
		v := float64(s)*slope + intercept

		var out uint8
		switch {
		case v <= minVal:
			out = 0
		case v >= maxVal:
			out = 255
		default:
			out = uint8((v-minVal)/w.Width*255 + 0.5)
		}
		if w.Invert {
			out = 255 - out
		}
		table[s] = out
	}
	return &LUT{Window: w, Table: table}
}

// Apply maps the frame's samples through the table into dst, which must
// hold width*height bytes. It returns dst for chaining.
func (l *LUT) Apply(f *frame.Frame, dst []uint8) []uint8 {
	table := l.Table
	for i, s := range f.Pixels {
		idx := int(s)
		if idx >= len(table) {
			idx = len(table) - 1
		}
		dst[i] = table[idx]
	}
	return dst
}

// ApplyImage maps the frame through the table into a new grayscale image.
func (l *LUT) ApplyImage(f *frame.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	l.Apply(f, img.Pix)
	return img
}
