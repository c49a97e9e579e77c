// Package dialogs provides application dialogs.
package dialogs

import (
	"strconv"

	"dicom-viewer/internal/viewport"
	"dicom-viewer/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// PreferencesDialog edits window/level drag sensitivity and rendering
// options.
type PreferencesDialog struct {
	prefs  *prefs.Prefs
	window fyne.Window

	centerGainEntry *widget.Entry
	widthGainEntry  *widget.Entry
	cacheMBEntry    *widget.Entry
	gpuCheck        *widget.Check

	onSave func(mapping viewport.DragMapping)
}

// NewPreferencesDialog creates the preferences dialog.
func NewPreferencesDialog(p *prefs.Prefs, window fyne.Window, onSave func(viewport.DragMapping)) *PreferencesDialog {
	d := &PreferencesDialog{prefs: p, window: window, onSave: onSave}

	d.centerGainEntry = widget.NewEntry()
	d.centerGainEntry.SetText(formatFloat(p.Float(prefs.KeyWindowDragCenterGain, 1)))
	d.widthGainEntry = widget.NewEntry()
	d.widthGainEntry.SetText(formatFloat(p.Float(prefs.KeyWindowDragWidthGain, 1)))
	d.cacheMBEntry = widget.NewEntry()
	d.cacheMBEntry.SetText(formatFloat(p.Float(prefs.KeyCacheBudgetMB, 256)))
	d.gpuCheck = widget.NewCheck("Use accelerated compositor", nil)
	d.gpuCheck.SetChecked(p.Bool(prefs.KeyUseGPUCompositor, false))

	return d
}

// Show displays the dialog.
func (d *PreferencesDialog) Show() {
	items := []*widget.FormItem{
		widget.NewFormItem("Level per pixel (horizontal drag)", d.centerGainEntry),
		widget.NewFormItem("Width per pixel (vertical drag)", d.widthGainEntry),
		widget.NewFormItem("Cache budget (MB, next start)", d.cacheMBEntry),
		widget.NewFormItem("", d.gpuCheck),
	}

	dialog.ShowForm("Preferences", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		centerGain := parseFloat(d.centerGainEntry.Text, 1)
		widthGain := parseFloat(d.widthGainEntry.Text, 1)
		cacheMB := parseFloat(d.cacheMBEntry.Text, 256)

		d.prefs.SetFloat(prefs.KeyWindowDragCenterGain, centerGain)
		d.prefs.SetFloat(prefs.KeyWindowDragWidthGain, widthGain)
		d.prefs.SetFloat(prefs.KeyCacheBudgetMB, cacheMB)
		d.prefs.SetBool(prefs.KeyUseGPUCompositor, d.gpuCheck.Checked)
		if err := d.prefs.Save(); err != nil {
			dialog.ShowError(err, d.window)
			return
		}

		if d.onSave != nil {
			d.onSave(viewport.DragMapping{CenterGain: centerGain, WidthGain: widthGain})
		}
	}, d.window)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
