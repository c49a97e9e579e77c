package intensity

import (
	"gonum.org/v1/gonum/stat"

	"dicom-viewer/internal/frame"
)

// AutoWindow derives a display window from the frame's pixel histogram.
// The window spans the 1st to 99th percentile of observed values, which
// keeps calibration artifacts and other outlier extremes from flattening
// the displayed contrast range. Returned values are in modality units.
func AutoWindow(f *frame.Frame) (center, width float64) {
	if len(f.Pixels) == 0 {
		return 0, 1
	}

	counts := make([]float64, f.MaxSampleValue()+1)
	for _, s := range f.Pixels {
		counts[s]++
	}

	// Observed sample values with their histogram counts as quantile
	// weights; equivalent to a counting sort of the full buffer.
	values := make([]float64, 0, 256)
	weights := make([]float64, 0, 256)
	for s, c := range counts {
		if c > 0 {
			values = append(values, float64(s))
			weights = append(weights, c)
		}
	}

	p1 := stat.Quantile(0.01, stat.Empirical, values, weights)
	p99 := stat.Quantile(0.99, stat.Empirical, values, weights)

	slope := f.RescaleSlope
	if slope == 0 {
		slope = 1
	}
	lo := p1*slope + f.RescaleIntercept
	hi := p99*slope + f.RescaleIntercept

	width = hi - lo
	if width < 1 {
		// Near-constant image.
		width = 1
	}
	center = (lo + hi) / 2
	return center, width
}

// SampleStats summarizes the frame's modality values.
type SampleStats struct {
	Min, Max     float64
	Mean, StdDev float64
}

// Stats computes summary statistics over the frame in modality units.
func Stats(f *frame.Frame) SampleStats {
	if len(f.Pixels) == 0 {
		return SampleStats{}
	}

	values := make([]float64, len(f.Pixels))
	min, max := f.ModalityValue(f.Pixels[0]), f.ModalityValue(f.Pixels[0])
	for i, s := range f.Pixels {
		v := f.ModalityValue(s)
		values[i] = v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	return SampleStats{Min: min, Max: max, Mean: mean, StdDev: std}
}
