// Package measure captures calibrated geometric measurements (distance,
// angle, area) on the displayed image.
package measure

import (
	"fmt"
	"math"
	"time"

	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/pkg/geometry"
)

// Kind identifies a measurement tool.
type Kind string

const (
	KindDistance Kind = "distance"
	KindAngle    Kind = "angle"
	KindArea     Kind = "area"
)

// requiredPoints returns the completion point count; area is a minimum.
func (k Kind) requiredPoints() int {
	switch k {
	case KindDistance:
		return 2
	case KindAngle:
		return 3
	default:
		return 3
	}
}

// Measurement is a completed measurement. Points are image-space
// coordinates captured at click time and never mutated afterwards, so the
// value stays invariant under later viewport changes.
type Measurement struct {
	ID        int                `json:"id"`
	Kind      Kind               `json:"kind"`
	Points    []geometry.Point2D `json:"points"`
	Value     float64            `json:"value"`
	Unit      string             `json:"unit"`
	CreatedAt time.Time          `json:"createdAt"`
}

// IncompleteMeasurementError reports a completion request before the
// tool's point-count invariant holds. The collection state is unchanged.
type IncompleteMeasurementError struct {
	Kind Kind
	Have int
	Need int
}

func (e *IncompleteMeasurementError) Error() string {
	return fmt.Sprintf("%s measurement needs %d points, have %d", e.Kind, e.Need, e.Have)
}

// Engine is the per-context measurement state machine: Idle until a tool
// begins, Collecting while points arrive, back to Idle once a measurement
// completes. Point capture is synchronous with pointer events.
type Engine struct {
	spacing      frame.PixelSpacing
	active       Kind
	collecting   bool
	points       []geometry.Point2D
	measurements []Measurement
	nextID       int
}

// NewEngine creates an idle engine with uncalibrated (pixel) units.
func NewEngine() *Engine {
	return &Engine{nextID: 1}
}

// SetCalibration sets the pixel spacing used for physical units. Zero
// spacing means values are reported in pixels.
func (e *Engine) SetCalibration(spacing frame.PixelSpacing) {
	e.spacing = spacing
}

// Begin starts collecting points for a tool, discarding any partial
// collection from a previous tool.
func (e *Engine) Begin(kind Kind) {
	e.active = kind
	e.collecting = true
	e.points = e.points[:0]
}

// Collecting reports whether a tool is waiting for points.
func (e *Engine) Collecting() bool {
	return e.collecting
}

// ActiveKind returns the tool currently collecting, or "".
func (e *Engine) ActiveKind() Kind {
	if !e.collecting {
		return ""
	}
	return e.active
}

// PendingPoints returns the image-space points captured so far.
func (e *Engine) PendingPoints() []geometry.Point2D {
	return e.points
}

// AddCanvasPoint converts a canvas-space click to image space through the
// viewport's inverse transform and captures it. Storing image-space
// coordinates is what makes finished measurements invariant to pan, zoom
// and rotation applied afterwards. Distance and angle complete
// automatically at their required point count; the completed measurement
// is returned when that happens.
func (e *Engine) AddCanvasPoint(p geometry.Point2D, vp *viewport.Viewport, canvasW, canvasH, imageW, imageH float64) (*Measurement, error) {
	return e.AddImagePoint(vp.ToImage(p, canvasW, canvasH, imageW, imageH))
}

// AddImagePoint captures an already image-space point.
func (e *Engine) AddImagePoint(p geometry.Point2D) (*Measurement, error) {
	if !e.collecting {
		return nil, nil
	}
	e.points = append(e.points, p)

	// Area collects until an explicit Complete call.
	if e.active != KindArea && len(e.points) >= e.active.requiredPoints() {
		m, err := e.Complete()
		return m, err
	}
	return nil, nil
}

// Complete finishes the active collection. Area requires at least 3
// points; completing earlier returns IncompleteMeasurementError and
// leaves the collection untouched.
func (e *Engine) Complete() (*Measurement, error) {
	if !e.collecting {
		return nil, &IncompleteMeasurementError{Kind: e.active, Have: 0, Need: e.active.requiredPoints()}
	}
	need := e.active.requiredPoints()
	if len(e.points) < need {
		return nil, &IncompleteMeasurementError{Kind: e.active, Have: len(e.points), Need: need}
	}

	points := make([]geometry.Point2D, len(e.points))
	copy(points, e.points)

	value, unit := e.evaluate(e.active, points)
	m := Measurement{
		ID:        e.nextID,
		Kind:      e.active,
		Points:    points,
		Value:     value,
		Unit:      unit,
		CreatedAt: time.Now(),
	}
	e.nextID++
	e.measurements = append(e.measurements, m)

	e.collecting = false
	e.points = e.points[:0]
	return &e.measurements[len(e.measurements)-1], nil
}

// Cancel abandons the active collection.
func (e *Engine) Cancel() {
	e.collecting = false
	e.points = e.points[:0]
}

// Measurements returns all completed measurements.
func (e *Engine) Measurements() []Measurement {
	return e.measurements
}

// Remove deletes a measurement by id.
func (e *Engine) Remove(id int) bool {
	for i, m := range e.measurements {
		if m.ID == id {
			e.measurements = append(e.measurements[:i], e.measurements[i+1:]...)
			return true
		}
	}
	return false
}

// Clear deletes all measurements.
func (e *Engine) Clear() {
	e.measurements = nil
}

// HitTest returns the topmost measurement at an image-space point: inside
// an area polygon, or within tol pixels of any captured vertex.
func (e *Engine) HitTest(p geometry.Point2D, tol float64) *Measurement {
	for i := len(e.measurements) - 1; i >= 0; i-- {
		m := &e.measurements[i]
		if m.Kind == KindArea && geometry.PointInPolygon(p, m.Points) {
			return m
		}
		for _, v := range m.Points {
			if v.Distance(p) <= tol {
				return m
			}
		}
	}
	return nil
}

// evaluate computes the calibrated value for a completed point set.
func (e *Engine) evaluate(kind Kind, points []geometry.Point2D) (float64, string) {
	rowMm, colMm := e.spacing.Row, e.spacing.Col
	calibrated := e.spacing.IsCalibrated()
	if !calibrated {
		rowMm, colMm = 1, 1
	}

	switch kind {
	case KindDistance:
		dx := (points[1].X - points[0].X) * colMm
		dy := (points[1].Y - points[0].Y) * rowMm
		if calibrated {
			return math.Sqrt(dx*dx + dy*dy), "mm"
		}
		return math.Sqrt(dx*dx + dy*dy), "px"

	case KindAngle:
		// Point order: endpoint, vertex, endpoint.
		return geometry.VertexAngle(points[0], points[1], points[2]), "deg"

	case KindArea:
		areaPx := geometry.Area(points)
		if calibrated {
			return areaPx * rowMm * colMm, "mm²"
		}
		return areaPx, "px²"
	}
	return 0, ""
}
