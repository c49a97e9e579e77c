// Package canvas provides the frame display widget: a raster the render
// pipeline draws into, plus pointer handling for pan, zoom, window/level
// drag, and measurement clicks.
package canvas

import (
	"image"
	"sync"

	"dicom-viewer/internal/render"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const zoomStep = 1.25

// Tool represents the current pointer tool.
type Tool int

const (
	ToolPan Tool = iota
	ToolWindowLevel
	ToolDistance
	ToolAngle
	ToolArea
)

// IsMeasure reports whether the tool places measurement points.
func (t Tool) IsMeasure() bool {
	return t == ToolDistance || t == ToolAngle || t == ToolArea
}

// ViewerCanvas displays rendered frames and routes pointer gestures to
// the viewport. It does not render frames itself: the pipeline pushes
// pixels through the Surface it exposes, and the canvas only presents
// the latest buffer.
type ViewerCanvas struct {
	widget.BaseWidget

	raster *fynecanvas.Raster

	mu   sync.Mutex
	buf  *image.RGBA
	last struct{ w, h int }

	vp      *viewport.Viewport
	mapping viewport.DragMapping
	tool    Tool

	// Callbacks into the window layer.
	onViewChanged func()
	onTap         func(p geometry.Point2D)
	onCancel      func()
	onResize      func(w, h int)
}

// NewViewerCanvas creates a canvas bound to a viewport.
func NewViewerCanvas(vp *viewport.Viewport) *ViewerCanvas {
	vc := &ViewerCanvas{
		vp:      vp,
		mapping: viewport.DefaultDragMapping(),
	}
	vc.raster = fynecanvas.NewRaster(vc.draw)
	vc.raster.ScaleMode = fynecanvas.ImageScalePixels
	vc.ExtendBaseWidget(vc)
	return vc
}

// SetTool selects the pointer tool.
func (vc *ViewerCanvas) SetTool(tool Tool) {
	vc.tool = tool
}

// GetTool returns the active pointer tool.
func (vc *ViewerCanvas) GetTool() Tool {
	return vc.tool
}

// SetDragMapping sets the window/level drag sensitivity.
func (vc *ViewerCanvas) SetDragMapping(m viewport.DragMapping) {
	vc.mapping = m
}

// OnViewChanged sets the callback fired after any gesture mutates the
// viewport; the window layer re-renders in response.
func (vc *ViewerCanvas) OnViewChanged(fn func()) {
	vc.onViewChanged = fn
}

// OnTap sets the callback for measurement clicks, in canvas coordinates.
func (vc *ViewerCanvas) OnTap(fn func(p geometry.Point2D)) {
	vc.onTap = fn
}

// OnCancel sets the callback for right-clicks (measurement abort).
func (vc *ViewerCanvas) OnCancel(fn func()) {
	vc.onCancel = fn
}

// OnResize sets the callback fired when the drawable size changes.
func (vc *ViewerCanvas) OnResize(fn func(w, h int)) {
	vc.onResize = fn
}

// Surface returns the render target backed by this canvas.
func (vc *ViewerCanvas) Surface() render.Surface {
	return (*canvasSurface)(vc)
}

// Dragged routes drags to the active tool.
func (vc *ViewerCanvas) Dragged(ev *fyne.DragEvent) {
	dx, dy := float64(ev.Dragged.DX), float64(ev.Dragged.DY)
	switch vc.tool {
	case ToolPan:
		vc.vp.Pan(dx, dy)
	case ToolWindowLevel:
		vc.vp.ApplyDrag(dx, dy, vc.mapping)
	default:
		return
	}
	vc.viewChanged()
}

// DragEnd implements fyne.Draggable.
func (vc *ViewerCanvas) DragEnd() {}

// Scrolled zooms with the wheel.
func (vc *ViewerCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		vc.vp.SetZoom(vc.vp.Scale * zoomStep)
	} else if ev.Scrolled.DY < 0 {
		vc.vp.SetZoom(vc.vp.Scale / zoomStep)
	} else {
		return
	}
	vc.viewChanged()
}

// Tapped forwards left-clicks to the measurement layer when a measure
// tool is active.
func (vc *ViewerCanvas) Tapped(ev *fyne.PointEvent) {
	if !vc.tool.IsMeasure() || vc.onTap == nil {
		return
	}
	size := vc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	vc.onTap(geometry.Point2D{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

// TappedSecondary aborts the active measurement.
func (vc *ViewerCanvas) TappedSecondary(ev *fyne.PointEvent) {
	if vc.onCancel != nil {
		vc.onCancel()
	}
}

func (vc *ViewerCanvas) viewChanged() {
	if vc.onViewChanged != nil {
		vc.onViewChanged()
	}
}

// Refresh repaints the raster with the latest buffer.
func (vc *ViewerCanvas) Refresh() {
	vc.raster.Refresh()
	vc.BaseWidget.Refresh()
}

// DrawableSize returns the raster size in pixels from the last draw.
func (vc *ViewerCanvas) DrawableSize() (int, int) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.last.w, vc.last.h
}

// draw is the raster callback. It presents the last rendered buffer and
// notifies the window layer when the drawable size changes so a render
// at the new size can be scheduled.
func (vc *ViewerCanvas) draw(w, h int) image.Image {
	vc.mu.Lock()
	resized := w != vc.last.w || h != vc.last.h
	vc.last.w, vc.last.h = w, h
	buf := vc.buf
	vc.mu.Unlock()

	if resized && w > 0 && h > 0 && vc.onResize != nil {
		go vc.onResize(w, h)
	}

	if buf == nil || buf.Bounds().Dx() != w || buf.Bounds().Dy() != h {
		black := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 3; i < len(black.Pix); i += 4 {
			black.Pix[i] = 255
		}
		return black
	}
	return buf
}

// CreateRenderer implements fyne.Widget.
func (vc *ViewerCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(vc.raster)
}

// canvasSurface adapts the canvas to render.Surface. It is a distinct
// type because the widget's own Size returns fyne units.
type canvasSurface ViewerCanvas

func (s *canvasSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.w, s.last.h
}

func (s *canvasSurface) Clear() {
	s.mu.Lock()
	s.buf = nil
	s.mu.Unlock()
}

func (s *canvasSurface) DrawBuffer(x, y, w, h int, pix []uint8) error {
	if len(pix) < w*h*4 {
		return render.ErrSurfaceUnavailable
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		dstOff := dst.PixOffset(x, y+row)
		srcOff := row * w * 4
		copy(dst.Pix[dstOff:dstOff+w*4], pix[srcOff:srcOff+w*4])
	}
	s.mu.Lock()
	s.buf = dst
	s.mu.Unlock()
	return nil
}
