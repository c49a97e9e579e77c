package intensity

import (
	"math"
	"testing"

	"dicom-viewer/internal/frame"
)

func testFrame(bits int, pixels []uint16, w, h int) *frame.Frame {
	return &frame.Frame{
		ID:            "test",
		Width:         w,
		Height:        h,
		BitsPerSample: bits,
		Pixels:        pixels,
		RescaleSlope:  1,
	}
}

func TestLUTClipEdges(t *testing.T) {
	f := testFrame(8, make([]uint16, 1), 1, 1)
	lut := NewTransform().LUT(f, Window{Center: 100, Width: 50})

	// Floor is 75, ceiling 125, both inclusive.
	if lut.Table[75] != 0 {
		t.Errorf("table[75] = %d, want 0", lut.Table[75])
	}
	if lut.Table[50] != 0 {
		t.Errorf("table[50] = %d, want 0", lut.Table[50])
	}
	if lut.Table[125] != 255 {
		t.Errorf("table[125] = %d, want 255", lut.Table[125])
	}
	if lut.Table[200] != 255 {
		t.Errorf("table[200] = %d, want 255", lut.Table[200])
	}
	if lut.Table[100] == 0 || lut.Table[100] == 255 {
		t.Errorf("table[100] = %d, want interior value", lut.Table[100])
	}
}

func TestLUTMonotonic(t *testing.T) {
	f := testFrame(12, make([]uint16, 1), 1, 1)
	lut := NewTransform().LUT(f, Window{Center: 2000, Width: 700})

	if len(lut.Table) != 4096 {
		t.Fatalf("table size = %d, want 4096", len(lut.Table))
	}
	for i := 1; i < len(lut.Table); i++ {
		if lut.Table[i] < lut.Table[i-1] {
			t.Fatalf("table not monotonic at %d: %d < %d", i, lut.Table[i], lut.Table[i-1])
		}
	}
}

func TestLUTInvert(t *testing.T) {
	f := testFrame(8, make([]uint16, 1), 1, 1)
	tr := NewTransform()
	normal := tr.LUT(f, Window{Center: 128, Width: 256})
	inverted := tr.LUT(f, Window{Center: 128, Width: 256, Invert: true})

	for i := range normal.Table {
		if inverted.Table[i] != 255-normal.Table[i] {
			t.Fatalf("inverted table[%d] = %d, want %d", i, inverted.Table[i], 255-normal.Table[i])
		}
	}
}

func TestLUTRescaleFolded(t *testing.T) {
	// CT-style rescale: stored 1024 is 0 HU.
	f := testFrame(12, make([]uint16, 1), 1, 1)
	f.RescaleIntercept = -1024

	lut := NewTransform().LUT(f, Window{Center: 0, Width: 100})
	if got := lut.Table[1024]; got != 128 {
		t.Errorf("table[1024] = %d, want 128 (window center)", got)
	}
	if got := lut.Table[1024-50]; got != 0 {
		t.Errorf("table at -50 HU = %d, want 0", got)
	}
	if got := lut.Table[1024+50]; got != 255 {
		t.Errorf("table at +50 HU = %d, want 255", got)
	}
}

func TestWindowWidthClamped(t *testing.T) {
	if w := (Window{Center: 10, Width: 0}).Normalized().Width; w != 1 {
		t.Errorf("normalized width = %v, want 1", w)
	}
	if w := (Window{Center: 10, Width: -5}).Normalized().Width; w != 1 {
		t.Errorf("normalized width = %v, want 1", w)
	}

	// A degenerate window still produces a usable step table.
	f := testFrame(8, make([]uint16, 1), 1, 1)
	lut := NewTransform().LUT(f, Window{Center: 100, Width: 0})
	if lut.Table[90] != 0 || lut.Table[110] != 255 {
		t.Errorf("step table wrong: [90]=%d [110]=%d", lut.Table[90], lut.Table[110])
	}
}

func TestLUTMemoized(t *testing.T) {
	f := testFrame(8, make([]uint16, 1), 1, 1)
	tr := NewTransform()
	a := tr.LUT(f, Window{Center: 128, Width: 256})
	b := tr.LUT(f, Window{Center: 128, Width: 256})
	if a != b {
		t.Error("identical window should reuse the cached table")
	}

	c := tr.LUT(f, Window{Center: 129, Width: 256})
	if a == c {
		t.Error("different window must build a new table")
	}
}

func TestApplyImage(t *testing.T) {
	pixels := []uint16{0, 128, 255, 64}
	f := testFrame(8, pixels, 2, 2)
	lut := NewTransform().LUT(f, Window{Center: 128, Width: 256})

	img := lut.ApplyImage(f)
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("image bounds = %v", img.Bounds())
	}
	for i, s := range pixels {
		if img.Pix[i] != lut.Table[s] {
			t.Errorf("pix[%d] = %d, want table[%d] = %d", i, img.Pix[i], s, lut.Table[s])
		}
	}
}

func TestAutoWindowIgnoresOutliers(t *testing.T) {
	// Uniform bulk in [100, 150] with a single hot pixel at 255. The
	// derived window must hug the bulk, not stretch to the outlier.
	pixels := make([]uint16, 50*50)
	for i := range pixels {
		pixels[i] = uint16(100 + i%51)
	}
	pixels[0] = 255

	f := testFrame(8, pixels, 50, 50)
	center, width := AutoWindow(f)

	if width > 100 {
		t.Errorf("width = %v, outlier stretched the window", width)
	}
	if center < 110 || center > 140 {
		t.Errorf("center = %v, want near the bulk midpoint", center)
	}
}

func TestAutoWindowConstantImage(t *testing.T) {
	pixels := make([]uint16, 16)
	for i := range pixels {
		pixels[i] = 77
	}
	f := testFrame(8, pixels, 4, 4)

	center, width := AutoWindow(f)
	if width != 1 {
		t.Errorf("width = %v, want 1 for constant image", width)
	}
	if math.Abs(center-77) > 1 {
		t.Errorf("center = %v, want 77", center)
	}
}

func TestAutoWindowModalityUnits(t *testing.T) {
	pixels := make([]uint16, 100)
	for i := range pixels {
		pixels[i] = uint16(1000 + i)
	}
	f := testFrame(12, pixels, 10, 10)
	f.RescaleIntercept = -1024

	center, _ := AutoWindow(f)
	if center > 100 || center < -100 {
		t.Errorf("center = %v, want rescaled units near 25", center)
	}
}

func TestStats(t *testing.T) {
	f := testFrame(8, []uint16{10, 20, 30, 40}, 2, 2)
	s := Stats(f)
	if s.Min != 10 || s.Max != 40 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if math.Abs(s.Mean-25) > 1e-9 {
		t.Errorf("mean = %v, want 25", s.Mean)
	}
}

func TestPresetsForModality(t *testing.T) {
	presets := DefaultPresets()

	ct := PresetsForModality(presets, "CT")
	for _, p := range ct {
		if p.Modality != "CT" && p.Modality != "" {
			t.Errorf("unexpected modality %q in CT filter", p.Modality)
		}
	}
	if len(ct) == 0 {
		t.Error("no CT presets")
	}

	all := PresetsForModality(presets, "")
	if len(all) != len(presets) {
		t.Errorf("empty modality should match all, got %d of %d", len(all), len(presets))
	}
}

func TestPresetWindowNormalized(t *testing.T) {
	p := Preset{Name: "bad", Center: 50, Width: -1}
	if w := p.WindowValue(); w.Width != 1 {
		t.Errorf("preset window width = %v, want clamped to 1", w.Width)
	}
}
