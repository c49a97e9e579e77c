package measure

import (
	"encoding/json"
	"time"

	"dicom-viewer/pkg/geometry"
)

// ExportRecord is the wire form of one measurement. Points remain
// image-space; consumers re-project through whatever viewport they hold.
type ExportRecord struct {
	Kind      Kind               `json:"kind"`
	Points    []geometry.Point2D `json:"points"`
	Value     float64            `json:"value"`
	Unit      string             `json:"unit"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ExportJSON serializes all completed measurements.
func (e *Engine) ExportJSON() ([]byte, error) {
	records := make([]ExportRecord, 0, len(e.measurements))
	for _, m := range e.measurements {
		records = append(records, ExportRecord{
			Kind:      m.Kind,
			Points:    m.Points,
			Value:     m.Value,
			Unit:      m.Unit,
			CreatedAt: m.CreatedAt,
		})
	}
	return json.MarshalIndent(records, "", "  ")
}

// ImportJSON restores measurements from a previous export, assigning
// fresh ids after any already present.
func (e *Engine) ImportJSON(data []byte) error {
	var records []ExportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for _, r := range records {
		e.measurements = append(e.measurements, Measurement{
			ID:        e.nextID,
			Kind:      r.Kind,
			Points:    r.Points,
			Value:     r.Value,
			Unit:      r.Unit,
			CreatedAt: r.CreatedAt,
		})
		e.nextID++
	}
	return nil
}
