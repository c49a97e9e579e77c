// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"path/filepath"

	"dicom-viewer/internal/app"
	"dicom-viewer/internal/frame"
	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/session"
	"dicom-viewer/internal/version"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/ui/canvas"
	"dicom-viewer/ui/dialogs"
	"dicom-viewer/ui/panels"
	"dicom-viewer/ui/prefs"
	"dicom-viewer/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.ViewerCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	// Geometry of the frame currently on screen, needed for the
	// canvas-to-image projection of measurement clicks.
	frameW, frameH float64

	studyRoot   string
	sessionPath string
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("DICOM Viewer")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupKeys()

	return mw
}

// setupUI creates the main layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewViewerCanvas(mw.state.Viewport)
	mw.canvas.SetDragMapping(mw.dragMapping())

	mw.canvas.OnViewChanged(mw.render)
	mw.canvas.OnResize(func(w, h int) {
		mw.render()
	})
	mw.canvas.OnTap(mw.onMeasureTap)
	mw.canvas.OnCancel(func() {
		mw.state.Measurements.Cancel()
		mw.render()
	})

	mw.sidePanel = panels.NewSidePanel(mw.state)
	mw.sidePanel.OnChanged(mw.render)

	mw.statusBar = widget.NewLabel("Ready")

	canvasArea := container.NewBorder(
		mw.createToolbar(),
		nil,
		nil,
		nil,
		mw.canvas,
	)

	split := container.NewHSplit(mw.sidePanel.Container(), canvasArea)
	split.SetOffset(0.22)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1200, 800))
}

// createToolbar creates the tool and navigation bar.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	toolButton := func(label string, tool canvas.Tool) *widget.Button {
		return widget.NewButton(label, func() {
			mw.canvas.SetTool(tool)
			if tool.IsMeasure() {
				mw.state.Measurements.Begin(measureKind(tool))
			} else {
				mw.state.Measurements.Cancel()
			}
			mw.render()
		})
	}

	return container.NewHBox(
		widget.NewButton("<", func() { mw.navigate(-1) }),
		widget.NewButton(">", func() { mw.navigate(1) }),
		widget.NewSeparator(),
		toolButton("Pan", canvas.ToolPan),
		toolButton("W/L", canvas.ToolWindowLevel),
		toolButton("Dist", canvas.ToolDistance),
		toolButton("Angle", canvas.ToolAngle),
		toolButton("Area", canvas.ToolArea),
		widget.NewButton("Done", func() { mw.completeArea() }),
		widget.NewSeparator(),
		widget.NewButton("Fit", mw.onFit),
		widget.NewButton("1:1", mw.onActualSize),
		widget.NewButton("Rot", func() { mw.state.Viewport.Rotate(90); mw.render() }),
		widget.NewButton("FlipH", func() { mw.state.Viewport.ToggleFlipH(); mw.render() }),
		widget.NewButton("FlipV", func() { mw.state.Viewport.ToggleFlipV(); mw.render() }),
		widget.NewButton("Invert", func() { mw.state.Viewport.ToggleInvert(); mw.render() }),
		widget.NewButton("Auto W/L", mw.onAutoWindow),
	)
}

func measureKind(tool canvas.Tool) measure.Kind {
	switch tool {
	case canvas.ToolAngle:
		return measure.KindAngle
	case canvas.ToolArea:
		return measure.KindArea
	default:
		return measure.KindDistance
	}
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Study...", mw.onOpenStudy),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open Session...", mw.onOpenSession),
		fyne.NewMenuItem("Save Session", mw.onSaveSession),
		fyne.NewMenuItem("Save Session As...", mw.onSaveSessionAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Measurements...", mw.onExportMeasurements),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Preferences...", mw.onPreferences),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.state.Viewport.SetZoom(mw.state.Viewport.Scale * 1.25); mw.render() }),
		fyne.NewMenuItem("Zoom Out", func() { mw.state.Viewport.SetZoom(mw.state.Viewport.Scale / 1.25); mw.render() }),
		fyne.NewMenuItem("Fit to Window", mw.onFit),
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Rotate 90° CW", func() { mw.state.Viewport.Rotate(90); mw.render() }),
		fyne.NewMenuItem("Rotate 90° CCW", func() { mw.state.Viewport.Rotate(-90); mw.render() }),
		fyne.NewMenuItem("Flip Horizontal", func() { mw.state.Viewport.ToggleFlipH(); mw.render() }),
		fyne.NewMenuItem("Flip Vertical", func() { mw.state.Viewport.ToggleFlipV(); mw.render() }),
		fyne.NewMenuItem("Invert Grayscale", func() { mw.state.Viewport.ToggleInvert(); mw.render() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset View", func() { mw.state.Viewport.Reset(); mw.render() }),
	)

	windowMenu := fyne.NewMenu("Window",
		fyne.NewMenuItem("Auto Window", mw.onAutoWindow),
		fyne.NewMenuItem("Frame Default", mw.onFrameDefaultWindow),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, windowMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventStudyLoaded, func(data interface{}) {
		if ids, ok := data.([]string); ok {
			mw.updateStatus(fmt.Sprintf("Loaded %d frames", len(ids)))
		}
	})

	mw.state.On(app.EventFrameChanged, func(data interface{}) {
		mw.render()
	})

	mw.state.On(app.EventWindowChanged, func(data interface{}) {
		mw.render()
	})

	mw.state.On(app.EventFrameReady, func(data interface{}) {
		// A prefetch finished; repaint only if it is the visible frame.
		if id, ok := data.(string); ok && id == mw.state.CurrentFrameID() {
			mw.render()
		}
	})
}

// setupKeys wires keyboard navigation.
func (mw *MainWindow) setupKeys() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyRight, fyne.KeyDown, fyne.KeyPageDown:
			mw.navigate(1)
		case fyne.KeyLeft, fyne.KeyUp, fyne.KeyPageUp:
			mw.navigate(-1)
		case fyne.KeyHome:
			mw.navigate(-1 << 30)
		case fyne.KeyEnd:
			mw.navigate(1 << 30)
		case fyne.KeyEscape:
			mw.state.Measurements.Cancel()
			mw.render()
		case fyne.KeyReturn, fyne.KeyEnter:
			mw.completeArea()
		case fyne.KeyR:
			mw.state.Viewport.Reset()
			mw.render()
		case fyne.KeyI:
			mw.state.Viewport.ToggleInvert()
			mw.render()
		}
	})
}

// render runs the pipeline onto the canvas surface and repaints.
func (mw *MainWindow) render() {
	id := mw.state.CurrentFrameID()
	if id == "" {
		return
	}

	stats, err := mw.state.Pipeline.Render(
		context.Background(), id, mw.state.Viewport, mw.canvas.Surface(), mw.state.Measurements)
	mw.canvas.Refresh()

	if err != nil {
		mw.updateStatus(fmt.Sprintf("%s: %v", id, err))
		return
	}

	if f, ok := mw.state.Cache.Get(id); ok {
		mw.frameW, mw.frameH = float64(f.Width), float64(f.Height)
	}

	vp := mw.state.Viewport
	cs := mw.state.Pipeline.CacheStats()
	mw.updateStatus(fmt.Sprintf(
		"%s [%d/%d]  C %.0f / W %.0f  zoom %.2f  render %.1f ms%s",
		filepath.Base(id), mw.state.CurrentIndex()+1, len(mw.state.FrameIDs()),
		vp.WindowCenter, vp.WindowWidth, vp.Scale,
		stats.DecodeMs+stats.LUTMs+stats.CompositeMs,
		map[bool]string{true: "  (uncached)", false: ""}[stats.Uncached],
	))
	mw.sidePanel.SetStats(fmt.Sprintf(
		"Cache: %d frames, %.1f MB, %.0f%% hits",
		cs.EntryCount, float64(cs.BytesUsed)/(1024*1024), cs.HitRatio()*100))
}

// navigate steps through the study.
func (mw *MainWindow) navigate(delta int) {
	mw.state.Navigate(context.Background(), delta)
}

// onMeasureTap forwards a measurement click through the inverse viewport
// transform.
func (mw *MainWindow) onMeasureTap(p geometry.Point2D) {
	if mw.frameW <= 0 || mw.frameH <= 0 {
		return
	}
	w, h := mw.canvas.DrawableSize()
	m, err := mw.state.Measurements.AddCanvasPoint(
		p, mw.state.Viewport, float64(w), float64(h), mw.frameW, mw.frameH)
	if err != nil {
		mw.updateStatus(err.Error())
	}
	if m != nil {
		mw.canvas.SetTool(canvas.ToolPan)
		mw.sidePanel.SyncMeasurements()
		mw.updateStatus(fmt.Sprintf("%s: %.1f %s", m.Kind, m.Value, m.Unit))
	}
	mw.render()
}

// completeArea closes the active polygon measurement.
func (mw *MainWindow) completeArea() {
	m, err := mw.state.Measurements.Complete()
	if err != nil {
		mw.updateStatus(err.Error())
		return
	}
	mw.canvas.SetTool(canvas.ToolPan)
	mw.sidePanel.SyncMeasurements()
	mw.updateStatus(fmt.Sprintf("%s: %.1f %s", m.Kind, m.Value, m.Unit))
	mw.render()
}

func (mw *MainWindow) onFit() {
	w, h := mw.canvas.DrawableSize()
	if mw.frameW > 0 && mw.frameH > 0 {
		mw.state.Viewport.FitToWindow(float64(w), float64(h), mw.frameW, mw.frameH)
		mw.render()
	}
}

func (mw *MainWindow) onActualSize() {
	mw.state.Viewport.SetZoom(1)
	mw.render()
}

func (mw *MainWindow) onAutoWindow() {
	if err := mw.state.AutoWindow(context.Background()); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onFrameDefaultWindow() {
	f, err := mw.state.CurrentFrame(context.Background())
	if err != nil {
		mw.updateStatus(err.Error())
		return
	}
	mw.state.ApplyDefaultWindow(f)
}

// OpenStudy loads all DICOM files under dir as the current study.
func (mw *MainWindow) OpenStudy(dir string) {
	ids, err := frame.ListStudy(dir)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	source := frame.NewDICOMSource(dir)
	if len(ids) == 1 {
		// A single file may be a multi-frame object.
		if expanded, err := source.ExpandFrames(ids[0]); err == nil {
			ids = expanded
		}
	}

	mw.studyRoot = dir
	mw.sessionPath = ""
	mw.state.SetSource(source)
	mw.state.LoadStudy(context.Background(), ids)
	mw.SetTitle("DICOM Viewer - " + filepath.Base(dir))

	// Calibrate and adopt the native window from the first frame.
	if f, err := mw.state.CurrentFrame(context.Background()); err == nil && f != nil {
		mw.state.ApplyDefaultWindow(f)
		mw.frameW, mw.frameH = float64(f.Width), float64(f.Height)
		mw.sidePanel.SyncPresets(f.Modality)
		mw.onFit()
	}
	mw.sidePanel.SyncMeasurements()
}

// Menu action handlers

func (mw *MainWindow) onOpenStudy() {
	fd := dialog.NewFolderOpen(func(list fyne.ListableURI, err error) {
		if err != nil || list == nil {
			return
		}
		path := list.Path()
		mw.saveLastDir(path)
		mw.OpenStudy(path)
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenSession() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()

		sess, err := session.Load(path)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if study := sess.GetStudyPath(path); study != "" {
			mw.OpenStudy(study)
		}
		mw.state.Measurements.Clear()
		if err := sess.Restore(mw.state.Viewport, mw.state.Measurements); err != nil {
			dialog.ShowError(err, mw.Window)
		}
		mw.state.Navigate(context.Background(), sess.FrameIndex-mw.state.CurrentIndex())
		mw.sessionPath = path
		mw.sidePanel.SyncMeasurements()
		mw.render()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".dvsession"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveSession() {
	if mw.sessionPath == "" {
		mw.onSaveSessionAs()
		return
	}
	mw.saveSessionTo(mw.sessionPath)
}

func (mw *MainWindow) onSaveSessionAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".dvsession" {
			path += ".dvsession"
		}
		mw.saveLastDir(path)
		mw.sessionPath = path
		mw.saveSessionTo(path)
	}, mw.Window)
	fd.SetFileName("session.dvsession")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) saveSessionTo(path string) {
	sess := session.New(mw.studyRoot)
	sess.SetStudyPath(path, mw.studyRoot)
	sess.Capture(mw.state.Viewport, mw.state.Measurements, mw.state.CurrentIndex())
	if err := sess.Save(path); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.updateStatus("Session saved: " + path)
}

func (mw *MainWindow) onExportMeasurements() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()

		data, err := mw.state.Measurements.ExportJSON()
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if _, err := writer.Write(data); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Measurements exported")
	}, mw.Window)
	fd.SetFileName("measurements.json")
	fd.Show()
}

func (mw *MainWindow) onPreferences() {
	d := dialogs.NewPreferencesDialog(mw.prefs, mw.Window, func(m viewport.DragMapping) {
		mw.state.DragMapping = m
		mw.canvas.SetDragMapping(m)
	})
	d.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About DICOM Viewer",
		fmt.Sprintf("DICOM Viewer v%s\n\n"+
			"A grayscale medical image viewer with windowing,\n"+
			"measurements, and session persistence.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

// dragMapping reads the window/level drag gains from preferences.
func (mw *MainWindow) dragMapping() viewport.DragMapping {
	return viewport.DragMapping{
		CenterGain: mw.prefs.Float(prefs.KeyWindowDragCenterGain, 1),
		WidthGain:  mw.prefs.Float(prefs.KeyWindowDragWidthGain, 1),
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastStudyDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given path.
func (mw *MainWindow) saveLastDir(path string) {
	mw.prefs.SetString(prefs.KeyLastStudyDir, filepath.Dir(path))
	_ = mw.prefs.Save()
}
