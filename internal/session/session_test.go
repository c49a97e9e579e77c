package session

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/pkg/geometry"
)

func TestCaptureRestoreRoundtrip(t *testing.T) {
	vp := viewport.New()
	vp.SetZoom(2.5)
	vp.Pan(17, -9)
	vp.SetRotation(90)
	vp.ToggleFlipH()
	vp.ToggleInvert()
	_ = vp.SetWindowLevel(400, 2000)

	eng := measure.NewEngine()
	eng.SetCalibration(frame.PixelSpacing{Row: 0.5, Col: 0.5})
	eng.Begin(measure.KindDistance)
	_, _ = eng.AddImagePoint(geometry.Point2D{X: 0, Y: 0})
	_, _ = eng.AddImagePoint(geometry.Point2D{X: 0, Y: 20})

	sess := New("/data/study1")
	sess.Capture(vp, eng, 7)

	restoredVP := viewport.New()
	restoredEng := measure.NewEngine()
	if err := sess.Restore(restoredVP, restoredEng); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restoredVP.Scale != 2.5 || restoredVP.Translation.X != 17 || restoredVP.Translation.Y != -9 {
		t.Errorf("geometry not restored: %+v", restoredVP)
	}
	if restoredVP.RotationDeg != 90 || !restoredVP.FlipH || restoredVP.FlipV || !restoredVP.Invert {
		t.Errorf("orientation not restored: %+v", restoredVP)
	}
	if restoredVP.WindowCenter != 400 || restoredVP.WindowWidth != 2000 {
		t.Errorf("window not restored: %v/%v", restoredVP.WindowCenter, restoredVP.WindowWidth)
	}
	if sess.FrameIndex != 7 {
		t.Errorf("frame index = %d", sess.FrameIndex)
	}

	got := restoredEng.Measurements()
	if len(got) != 1 {
		t.Fatalf("restored %d measurements, want 1", len(got))
	}
	if got[0].Kind != measure.KindDistance || math.Abs(got[0].Value-10) > 1e-6 {
		t.Errorf("restored measurement = %+v", got[0])
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reading.dvsession")

	sess := New(filepath.Join(dir, "study"))
	sess.SetStudyPath(path, filepath.Join(dir, "study"))
	sess.FrameIndex = 3
	sess.Viewport.Scale = 1.5

	if err := sess.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Version != 1 || loaded.FrameIndex != 3 || loaded.Viewport.Scale != 1.5 {
		t.Errorf("loaded = %+v", loaded)
	}
	if got := loaded.GetStudyPath(path); got != filepath.Join(dir, "study") {
		t.Errorf("study path = %q", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.dvsession")); err == nil {
		t.Error("loading a missing session should fail")
	}

	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("corrupt session accepted")
	}
}

func TestRestoreInvalidWindowClamped(t *testing.T) {
	sess := New("s")
	sess.Viewport.WindowWidth = 0
	sess.Viewport.Scale = 1

	vp := viewport.New()
	if err := sess.Restore(vp, measure.NewEngine()); err == nil {
		t.Error("zero-width window should be reported")
	}
	if vp.WindowWidth != 1 {
		t.Errorf("width = %v, want clamped to 1", vp.WindowWidth)
	}
}
