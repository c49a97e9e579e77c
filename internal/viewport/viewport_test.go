package viewport

import (
	"errors"
	"math"
	"testing"

	"dicom-viewer/pkg/geometry"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestSetZoomClamped(t *testing.T) {
	v := New()

	v.SetZoom(0.01)
	if v.Scale != MinScale {
		t.Errorf("scale = %v, want clamped to %v", v.Scale, MinScale)
	}

	v.SetZoom(100)
	if v.Scale != MaxScale {
		t.Errorf("scale = %v, want clamped to %v", v.Scale, MaxScale)
	}

	v.SetZoom(2.5)
	if v.Scale != 2.5 {
		t.Errorf("scale = %v, want 2.5", v.Scale)
	}
}

func TestRotationNormalized(t *testing.T) {
	v := New()

	v.SetRotation(-90)
	if v.RotationDeg != 270 {
		t.Errorf("rotation = %v, want 270", v.RotationDeg)
	}

	v.SetRotation(450)
	if v.RotationDeg != 90 {
		t.Errorf("rotation = %v, want 90", v.RotationDeg)
	}

	v.SetRotation(90)
	v.Rotate(-180)
	if v.RotationDeg != 270 {
		t.Errorf("rotation after relative turn = %v, want 270", v.RotationDeg)
	}
}

func TestSetWindowLevelClampsWidth(t *testing.T) {
	v := New()

	err := v.SetWindowLevel(40, 0)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("err = %v, want ErrInvalidWindow", err)
	}
	if v.WindowWidth != 1 {
		t.Errorf("width = %v, want clamped to 1", v.WindowWidth)
	}
	if v.WindowCenter != 40 {
		t.Errorf("center = %v, want 40", v.WindowCenter)
	}

	if err := v.SetWindowLevel(40, 400); err != nil {
		t.Errorf("valid window returned %v", err)
	}
}

func TestResetKeepsWindow(t *testing.T) {
	v := New()
	v.SetZoom(3)
	v.Pan(10, 20)
	v.SetRotation(90)
	v.ToggleFlipH()
	_ = v.SetWindowLevel(400, 2000)

	v.Reset()

	if v.Scale != 1 || v.Translation.X != 0 || v.RotationDeg != 0 || v.FlipH {
		t.Errorf("geometry not reset: %+v", v)
	}
	if v.WindowCenter != 400 || v.WindowWidth != 2000 {
		t.Error("reset must not touch the display window")
	}
}

func TestFitToWindow(t *testing.T) {
	v := New()
	v.Pan(50, 50)

	v.FitToWindow(100, 100, 200, 100)
	if !almostEqual(v.Scale, 0.475) {
		t.Errorf("fit scale = %v, want 0.475", v.Scale)
	}
	if v.Translation.X != 0 || v.Translation.Y != 0 {
		t.Error("fit should clear the user translation")
	}

	// Degenerate sizes leave the viewport untouched.
	before := v.Scale
	v.FitToWindow(100, 100, 0, 100)
	if v.Scale != before {
		t.Error("fit with zero image size must be a no-op")
	}
}

func TestTransformCentersImage(t *testing.T) {
	v := New()
	center := v.ToCanvas(geometry.Point2D{X: 32, Y: 32}, 200, 100, 64, 64)
	if !almostEqual(center.X, 100) || !almostEqual(center.Y, 50) {
		t.Errorf("image center mapped to %v, want canvas center (100,50)", center)
	}
}

func TestToImageRoundtrip(t *testing.T) {
	v := New()
	v.SetZoom(2.5)
	v.Pan(13, -7)
	v.SetRotation(30)
	v.ToggleFlipH()

	points := []geometry.Point2D{{X: 0, Y: 0}, {X: 63, Y: 0}, {X: 31.5, Y: 31.5}, {X: 10, Y: 50}}
	for _, p := range points {
		canvas := v.ToCanvas(p, 640, 480, 64, 64)
		back := v.ToImage(canvas, 640, 480, 64, 64)
		if !almostEqual(back.X, p.X) || !almostEqual(back.Y, p.Y) {
			t.Errorf("roundtrip of %v gave %v", p, back)
		}
	}
}

func TestApplyDrag(t *testing.T) {
	v := New()
	_ = v.SetWindowLevel(100, 200)

	v.ApplyDrag(10, -20, DefaultDragMapping())
	if v.WindowCenter != 110 || v.WindowWidth != 180 {
		t.Errorf("window = %v/%v, want 110/180", v.WindowCenter, v.WindowWidth)
	}

	// Dragging the width below 1 clamps instead of going negative.
	v.ApplyDrag(0, -500, DefaultDragMapping())
	if v.WindowWidth != 1 {
		t.Errorf("width = %v, want clamped to 1", v.WindowWidth)
	}

	// Custom gains scale the deltas.
	_ = v.SetWindowLevel(0, 100)
	v.ApplyDrag(10, 10, DragMapping{CenterGain: 5, WidthGain: 0.5})
	if v.WindowCenter != 50 || v.WindowWidth != 105 {
		t.Errorf("window = %v/%v, want 50/105", v.WindowCenter, v.WindowWidth)
	}
}

func TestFlipAffectsTransform(t *testing.T) {
	v := New()
	p := geometry.Point2D{X: 10, Y: 32}

	plain := v.ToCanvas(p, 100, 100, 64, 64)
	v.ToggleFlipH()
	flipped := v.ToCanvas(p, 100, 100, 64, 64)

	if !almostEqual(plain.Y, flipped.Y) {
		t.Error("horizontal flip must not move points vertically")
	}
	if almostEqual(plain.X, flipped.X) {
		t.Error("horizontal flip should mirror X")
	}
	if !almostEqual(plain.X-50, 50-flipped.X) {
		t.Errorf("flip not symmetric about center: %v vs %v", plain.X, flipped.X)
	}
}
