// Package panels provides the side panel with window presets and the
// measurement list.
package panels

import (
	"fmt"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/intensity"
	"dicom-viewer/internal/measure"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// SidePanel shows window presets, completed measurements, and cache
// statistics for the current display context.
type SidePanel struct {
	state *app.State

	presets      []intensity.Preset
	presetList   *widget.List
	measureList  *widget.List
	measurements []measure.Measurement
	statsLabel   *widget.Label

	container *fyne.Container

	// onChanged is fired when the panel mutates state (preset applied,
	// measurement removed) so the window can re-render.
	onChanged func()
}

// NewSidePanel creates the side panel over the application state.
func NewSidePanel(state *app.State) *SidePanel {
	sp := &SidePanel{state: state}

	sp.presetList = widget.NewList(
		func() int { return len(sp.presets) },
		func() fyne.CanvasObject { return widget.NewLabel("preset") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			p := sp.presets[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s (C %.0f / W %.0f)", p.Name, p.Center, p.Width))
		},
	)
	sp.presetList.OnSelected = func(i widget.ListItemID) {
		sp.state.ApplyPreset(sp.presets[i])
		sp.presetList.UnselectAll()
		sp.changed()
	}

	sp.measureList = widget.NewList(
		func() int { return len(sp.measurements) },
		func() fyne.CanvasObject { return widget.NewLabel("measurement") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			m := sp.measurements[i]
			o.(*widget.Label).SetText(fmt.Sprintf("#%d %s: %.1f %s", m.ID, m.Kind, m.Value, m.Unit))
		},
	)
	sp.measureList.OnSelected = func(i widget.ListItemID) {
		sp.state.Measurements.Remove(sp.measurements[i].ID)
		sp.measureList.UnselectAll()
		sp.SyncMeasurements()
		sp.changed()
	}

	clearBtn := widget.NewButton("Clear All", func() {
		sp.state.Measurements.Clear()
		sp.SyncMeasurements()
		sp.changed()
	})

	sp.statsLabel = widget.NewLabel("")

	sp.container = container.NewBorder(
		nil,
		container.NewVBox(clearBtn, sp.statsLabel),
		nil,
		nil,
		container.NewVSplit(
			container.NewBorder(widget.NewLabel("Window Presets"), nil, nil, nil, sp.presetList),
			container.NewBorder(widget.NewLabel("Measurements (tap to delete)"), nil, nil, nil, sp.measureList),
		),
	)

	sp.SyncPresets("")
	return sp
}

// Container returns the panel's root object for embedding.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// OnChanged registers the state-mutation callback.
func (sp *SidePanel) OnChanged(fn func()) {
	sp.onChanged = fn
}

// SyncPresets refreshes the preset list, filtered by modality.
func (sp *SidePanel) SyncPresets(modality string) {
	sp.presets = intensity.PresetsForModality(sp.state.Presets, modality)
	sp.presetList.Refresh()
}

// SyncMeasurements refreshes the measurement list from the engine.
func (sp *SidePanel) SyncMeasurements() {
	sp.measurements = append(sp.measurements[:0], sp.state.Measurements.Measurements()...)
	sp.measureList.Refresh()
}

// SetStats updates the cache statistics readout.
func (sp *SidePanel) SetStats(text string) {
	sp.statsLabel.SetText(text)
}

func (sp *SidePanel) changed() {
	if sp.onChanged != nil {
		sp.onChanged()
	}
}
