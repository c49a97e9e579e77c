// Package main provides the entry point for the DICOM viewer.
package main

import (
	"log"
	"os"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/intensity"
	"dicom-viewer/internal/render"
	"dicom-viewer/internal/version"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/ui/mainwindow"
	"dicom-viewer/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const (
	appTitle = "DICOM Viewer"

	defaultCacheMB      = 256
	defaultCacheEntries = 512
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	appPrefs := prefs.Load()

	cacheBytes := int(appPrefs.Float(prefs.KeyCacheBudgetMB, defaultCacheMB)) * 1024 * 1024

	var comp render.Compositor
	if appPrefs.Bool(prefs.KeyUseGPUCompositor, false) {
		comp = render.NewOpenCVCompositor()
	}

	state := app.NewState(frame.NewDICOMSource("."), cacheBytes, defaultCacheEntries, comp)
	state.DragMapping = viewportMapping(appPrefs)

	if path := appPrefs.String(prefs.KeyPresetsPath); path != "" {
		presets, err := intensity.LoadPresets(path)
		if err != nil {
			log.Printf("presets: %v", err)
		}
		state.Presets = presets
	}

	fyneApp := fyneapp.NewWithID("dicom-viewer")
	fyneApp.Settings().SetTheme(&app.ViewerTheme{})

	win := mainwindow.New(fyneApp, state, appPrefs)

	if len(os.Args) > 1 {
		win.OpenStudy(os.Args[1])
	}

	win.ShowAndRun()
}

// viewportMapping reads the window/level drag gains from preferences.
func viewportMapping(p *prefs.Prefs) viewport.DragMapping {
	return viewport.DragMapping{
		CenterGain: p.Float(prefs.KeyWindowDragCenterGain, 1),
		WidthGain:  p.Float(prefs.KeyWindowDragWidthGain, 1),
	}
}
