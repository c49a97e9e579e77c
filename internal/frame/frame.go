// Package frame provides decoded grayscale image frames and the sources
// that produce them.
package frame

import (
	"fmt"
)

// PixelSpacing is the physical size of one pixel step, in millimeters.
// Row is the spacing between rows (the Y step), Col between columns (X).
type PixelSpacing struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// IsCalibrated reports whether both spacings are known and positive.
func (s PixelSpacing) IsCalibrated() bool {
	return s.Row > 0 && s.Col > 0
}

// Frame is a single decoded grayscale frame. The pixel buffer holds the
// raw stored sample values; it is immutable once decoded. Modality-unit
// conversion (rescale slope/intercept) is carried as metadata and folded
// into the display lookup table, so the buffer itself is never rewritten.
type Frame struct {
	ID            string
	Width         int
	Height        int
	BitsPerSample int
	Pixels        []uint16

	Spacing  PixelSpacing
	Modality string

	// Native display window from the source metadata, in modality units.
	DefaultWindowCenter float64
	DefaultWindowWidth  float64

	// Modality LUT: sample -> slope*sample + intercept.
	RescaleSlope     float64
	RescaleIntercept float64
}

// SizeBytes returns the memory footprint of the pixel buffer.
func (f *Frame) SizeBytes() int {
	return len(f.Pixels) * 2
}

// MaxSampleValue returns the largest representable stored sample.
func (f *Frame) MaxSampleValue() int {
	bits := f.BitsPerSample
	if bits <= 0 || bits > 16 {
		bits = 16
	}
	return (1 << bits) - 1
}

// SampleAt returns the stored sample at (x, y), or 0 outside the frame.
func (f *Frame) SampleAt(x, y int) uint16 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pixels[y*f.Width+x]
}

// ModalityValue converts a stored sample to modality units (e.g. HU).
func (f *Frame) ModalityValue(sample uint16) float64 {
	slope := f.RescaleSlope
	if slope == 0 {
		slope = 1
	}
	return float64(sample)*slope + f.RescaleIntercept
}

// Validate checks internal consistency after decode.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame %s: invalid dimensions %dx%d", f.ID, f.Width, f.Height)
	}
	if len(f.Pixels) != f.Width*f.Height {
		return fmt.Errorf("frame %s: pixel buffer has %d samples, want %d",
			f.ID, len(f.Pixels), f.Width*f.Height)
	}
	return nil
}
