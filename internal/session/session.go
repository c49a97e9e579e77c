// Package session provides viewing-session persistence: the study path,
// the display state, and the completed measurements, restorable across
// application runs.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/viewport"
)

// File represents a saved viewing session (.dvsession).
type File struct {
	Version  int       `json:"version"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// StudyPath is relative to the session file when possible.
	StudyPath  string `json:"study_path,omitempty"`
	FrameIndex int    `json:"frame_index"`

	Viewport     ViewportState          `json:"viewport"`
	Measurements []measure.ExportRecord `json:"measurements,omitempty"`
}

// ViewportState is the serialized display transform and window.
type ViewportState struct {
	Scale        float64 `json:"scale"`
	TranslateX   float64 `json:"translate_x"`
	TranslateY   float64 `json:"translate_y"`
	RotationDeg  float64 `json:"rotation_deg"`
	FlipH        bool    `json:"flip_h"`
	FlipV        bool    `json:"flip_v"`
	WindowCenter float64 `json:"window_center"`
	WindowWidth  float64 `json:"window_width"`
	Invert       bool    `json:"invert"`
}

// New creates a session snapshot for the given study.
func New(studyPath string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Created:  now,
		Modified: now,
		StudyPath: studyPath,
		Viewport:  ViewportState{Scale: 1, WindowCenter: 128, WindowWidth: 256},
	}
}

// Capture records the current viewport and measurements into the session.
func (f *File) Capture(vp *viewport.Viewport, eng *measure.Engine, frameIndex int) {
	f.FrameIndex = frameIndex
	f.Viewport = ViewportState{
		Scale:        vp.Scale,
		TranslateX:   vp.Translation.X,
		TranslateY:   vp.Translation.Y,
		RotationDeg:  vp.RotationDeg,
		FlipH:        vp.FlipH,
		FlipV:        vp.FlipV,
		WindowCenter: vp.WindowCenter,
		WindowWidth:  vp.WindowWidth,
		Invert:       vp.Invert,
	}

	f.Measurements = f.Measurements[:0]
	for _, m := range eng.Measurements() {
		f.Measurements = append(f.Measurements, measure.ExportRecord{
			Kind:      m.Kind,
			Points:    m.Points,
			Value:     m.Value,
			Unit:      m.Unit,
			CreatedAt: m.CreatedAt,
		})
	}
}

// Restore applies the session's viewport state and re-imports its
// measurements into a fresh engine.
func (f *File) Restore(vp *viewport.Viewport, eng *measure.Engine) error {
	vp.SetZoom(f.Viewport.Scale)
	vp.Translation.X = f.Viewport.TranslateX
	vp.Translation.Y = f.Viewport.TranslateY
	vp.SetRotation(f.Viewport.RotationDeg)
	vp.FlipH = f.Viewport.FlipH
	vp.FlipV = f.Viewport.FlipV
	vp.Invert = f.Viewport.Invert
	if err := vp.SetWindowLevel(f.Viewport.WindowCenter, f.Viewport.WindowWidth); err != nil {
		return err
	}

	if len(f.Measurements) == 0 {
		return nil
	}
	data, err := json.Marshal(f.Measurements)
	if err != nil {
		return err
	}
	return eng.ImportJSON(data)
}

// Load loads a session from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save saves the session to a file.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SetStudyPath stores the study path relative to the session file when
// both live under a common root.
func (f *File) SetStudyPath(sessionPath, studyPath string) {
	rel, err := filepath.Rel(filepath.Dir(sessionPath), studyPath)
	if err != nil {
		f.StudyPath = studyPath
	} else {
		f.StudyPath = rel
	}
	f.Modified = time.Now()
}

// GetStudyPath returns the absolute study path.
func (f *File) GetStudyPath(sessionPath string) string {
	if f.StudyPath == "" {
		return ""
	}
	if filepath.IsAbs(f.StudyPath) {
		return f.StudyPath
	}
	return filepath.Join(filepath.Dir(sessionPath), f.StudyPath)
}
