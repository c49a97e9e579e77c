package measure

import (
	"errors"
	"math"
	"testing"

	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/pkg/geometry"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func calibratedEngine() *Engine {
	e := NewEngine()
	e.SetCalibration(frame.PixelSpacing{Row: 0.5, Col: 0.5})
	return e
}

func TestDistanceCalibrated(t *testing.T) {
	e := calibratedEngine()
	e.Begin(KindDistance)

	if m, err := e.AddImagePoint(geometry.Point2D{X: 0, Y: 0}); err != nil || m != nil {
		t.Fatalf("first point: m=%v err=%v", m, err)
	}
	m, err := e.AddImagePoint(geometry.Point2D{X: 0, Y: 20})
	if err != nil {
		t.Fatalf("second point: %v", err)
	}
	if m == nil {
		t.Fatal("distance should auto-complete at two points")
	}

	// 20 px * 0.5 mm/px.
	if !almostEqual(m.Value, 10) || m.Unit != "mm" {
		t.Errorf("value = %v %s, want 10 mm", m.Value, m.Unit)
	}
	if e.Collecting() {
		t.Error("engine should be idle after completion")
	}
}

func TestDistanceUncalibratedUsesPixels(t *testing.T) {
	e := NewEngine()
	e.Begin(KindDistance)
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 0})
	m, _ := e.AddImagePoint(geometry.Point2D{X: 3, Y: 4})

	if m == nil || !almostEqual(m.Value, 5) || m.Unit != "px" {
		t.Errorf("got %+v, want 5 px", m)
	}
}

func TestAnisotropicSpacing(t *testing.T) {
	e := NewEngine()
	e.SetCalibration(frame.PixelSpacing{Row: 2, Col: 0.5})
	e.Begin(KindDistance)

	// Pure vertical run uses the row spacing.
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 0})
	m, _ := e.AddImagePoint(geometry.Point2D{X: 0, Y: 10})
	if !almostEqual(m.Value, 20) {
		t.Errorf("vertical distance = %v, want 20", m.Value)
	}

	// Pure horizontal run uses the column spacing.
	e.Begin(KindDistance)
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 0})
	m, _ = e.AddImagePoint(geometry.Point2D{X: 10, Y: 0})
	if !almostEqual(m.Value, 5) {
		t.Errorf("horizontal distance = %v, want 5", m.Value)
	}
}

func TestMeasurementInvariantUnderViewport(t *testing.T) {
	// The same two anatomical points clicked under different zoom and
	// rotation must yield the same millimeter value.
	p1 := geometry.Point2D{X: 10, Y: 10}
	p2 := geometry.Point2D{X: 10, Y: 30}

	measureVia := func(vp *viewport.Viewport) float64 {
		e := calibratedEngine()
		e.Begin(KindDistance)
		_, err := e.AddCanvasPoint(vp.ToCanvas(p1, 800, 600, 64, 64), vp, 800, 600, 64, 64)
		if err != nil {
			t.Fatal(err)
		}
		m, err := e.AddCanvasPoint(vp.ToCanvas(p2, 800, 600, 64, 64), vp, 800, 600, 64, 64)
		if err != nil || m == nil {
			t.Fatalf("m=%v err=%v", m, err)
		}
		return m.Value
	}

	plain := viewport.New()
	zoomed := viewport.New()
	zoomed.SetZoom(3)
	zoomed.Pan(40, -25)
	rotated := viewport.New()
	rotated.SetRotation(45)
	rotated.ToggleFlipH()

	a, b, c := measureVia(plain), measureVia(zoomed), measureVia(rotated)
	if !almostEqual(a, 10) {
		t.Errorf("baseline = %v, want 10 mm", a)
	}
	if !almostEqual(a, b) || !almostEqual(a, c) {
		t.Errorf("viewport changed the measurement: %v %v %v", a, b, c)
	}
}

func TestCompletedMeasurementSurvivesViewportChange(t *testing.T) {
	vp := viewport.New()
	e := calibratedEngine()
	e.Begin(KindDistance)
	_, _ = e.AddCanvasPoint(vp.ToCanvas(geometry.Point2D{X: 0, Y: 0}, 100, 100, 64, 64), vp, 100, 100, 64, 64)
	m, _ := e.AddCanvasPoint(vp.ToCanvas(geometry.Point2D{X: 0, Y: 20}, 100, 100, 64, 64), vp, 100, 100, 64, 64)
	want := m.Value

	vp.SetZoom(5)
	vp.SetRotation(180)

	if got := e.Measurements()[0].Value; got != want {
		t.Errorf("stored value changed from %v to %v after viewport edits", want, got)
	}
}

func TestAngle(t *testing.T) {
	e := NewEngine()
	e.Begin(KindAngle)

	_, _ = e.AddImagePoint(geometry.Point2D{X: 10, Y: 0})
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 0}) // vertex
	m, err := e.AddImagePoint(geometry.Point2D{X: 0, Y: 10})
	if err != nil || m == nil {
		t.Fatalf("m=%v err=%v", m, err)
	}
	if !almostEqual(m.Value, 90) || m.Unit != "deg" {
		t.Errorf("angle = %v %s, want 90 deg", m.Value, m.Unit)
	}
}

func TestAreaCalibrated(t *testing.T) {
	e := calibratedEngine()
	e.Begin(KindArea)

	// 20x20 px square at 0.5 mm/px is 100 mm².
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}} {
		if m, err := e.AddImagePoint(p); err != nil || m != nil {
			t.Fatalf("area must not auto-complete: m=%v err=%v", m, err)
		}
	}

	m, err := e.Complete()
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(m.Value, 100) || m.Unit != "mm²" {
		t.Errorf("area = %v %s, want 100 mm²", m.Value, m.Unit)
	}
}

func TestIncompleteMeasurement(t *testing.T) {
	e := NewEngine()
	e.Begin(KindArea)
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 0})
	_, _ = e.AddImagePoint(geometry.Point2D{X: 10, Y: 0})

	_, err := e.Complete()
	var incomplete *IncompleteMeasurementError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteMeasurementError", err)
	}
	if incomplete.Have != 2 || incomplete.Need != 3 {
		t.Errorf("error fields = %+v", incomplete)
	}

	// The collection survives the failed completion.
	if !e.Collecting() || len(e.PendingPoints()) != 2 {
		t.Fatal("failed completion discarded the collection")
	}
	_, _ = e.AddImagePoint(geometry.Point2D{X: 5, Y: 10})
	if _, err := e.Complete(); err != nil {
		t.Errorf("completion after third point: %v", err)
	}
}

func TestCancelDiscardsPoints(t *testing.T) {
	e := NewEngine()
	e.Begin(KindDistance)
	_, _ = e.AddImagePoint(geometry.Point2D{X: 1, Y: 1})
	e.Cancel()

	if e.Collecting() {
		t.Error("cancel should stop collection")
	}
	if len(e.Measurements()) != 0 {
		t.Error("cancel must not record a measurement")
	}

	// Points while idle are ignored.
	if m, err := e.AddImagePoint(geometry.Point2D{X: 2, Y: 2}); m != nil || err != nil {
		t.Errorf("idle point capture: m=%v err=%v", m, err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	e := NewEngine()
	e.Begin(KindDistance)
	_, _ = e.AddImagePoint(geometry.Point2D{})
	first, _ := e.AddImagePoint(geometry.Point2D{X: 1, Y: 0})
	e.Begin(KindDistance)
	_, _ = e.AddImagePoint(geometry.Point2D{})
	_, _ = e.AddImagePoint(geometry.Point2D{X: 2, Y: 0})

	if !e.Remove(first.ID) {
		t.Fatal("remove by id failed")
	}
	if e.Remove(first.ID) {
		t.Fatal("second remove should fail")
	}
	if len(e.Measurements()) != 1 {
		t.Fatalf("count = %d, want 1", len(e.Measurements()))
	}

	e.Clear()
	if len(e.Measurements()) != 0 {
		t.Error("clear left measurements behind")
	}
}

func TestHitTest(t *testing.T) {
	e := NewEngine()
	e.Begin(KindArea)
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}} {
		_, _ = e.AddImagePoint(p)
	}
	area, _ := e.Complete()

	if got := e.HitTest(geometry.Point2D{X: 10, Y: 10}, 2); got == nil || got.ID != area.ID {
		t.Error("interior point should hit the area")
	}
	if got := e.HitTest(geometry.Point2D{X: 21, Y: 0.5}, 2); got == nil {
		t.Error("point near a vertex should hit")
	}
	if got := e.HitTest(geometry.Point2D{X: 100, Y: 100}, 2); got != nil {
		t.Error("far point should miss")
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	e := calibratedEngine()
	e.Begin(KindDistance)
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 0})
	_, _ = e.AddImagePoint(geometry.Point2D{X: 0, Y: 20})

	data, err := e.ExportJSON()
	if err != nil {
		t.Fatal(err)
	}

	restored := NewEngine()
	if err := restored.ImportJSON(data); err != nil {
		t.Fatal(err)
	}

	got := restored.Measurements()
	if len(got) != 1 {
		t.Fatalf("restored %d measurements, want 1", len(got))
	}
	if got[0].Kind != KindDistance || !almostEqual(got[0].Value, 10) || got[0].Unit != "mm" {
		t.Errorf("restored measurement = %+v", got[0])
	}
	if got[0].ID == 0 {
		t.Error("import should assign a fresh id")
	}
}
