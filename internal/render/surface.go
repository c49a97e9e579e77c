// Package render orchestrates frame decode, windowing, compositing and
// measurement overlays onto a drawable surface.
package render

import (
	"errors"
	"image"
)

// ErrSurfaceUnavailable reports a destroyed or unready surface. It fails
// the single render call that hit it; cache and viewport state are
// untouched.
var ErrSurfaceUnavailable = errors.New("render surface unavailable")

// Surface is a 2D drawable target. The canvas/GPU layer implements it;
// the pipeline only ever pushes premultiplied RGBA bytes at it.
type Surface interface {
	// Size returns the drawable dimensions in pixels.
	Size() (w, h int)
	// Clear resets the surface to its background.
	Clear()
	// DrawBuffer copies a w*h*4 RGBA byte buffer to (x, y).
	DrawBuffer(x, y, w, h int, pix []uint8) error
}

// ImageSurface is an in-memory Surface backed by an RGBA image. It serves
// headless export and tests.
type ImageSurface struct {
	img    *image.RGBA
	closed bool
}

// NewImageSurface creates a surface of the given size.
func NewImageSurface(w, h int) *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image returns the backing image.
func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}

// Close marks the surface unusable; subsequent draws fail.
func (s *ImageSurface) Close() {
	s.closed = true
}

// Size returns the surface dimensions.
func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear fills the surface with opaque black.
func (s *ImageSurface) Clear() {
	pix := s.img.Pix
	for i := range pix {
		if i%4 == 3 {
			pix[i] = 255
		} else {
			pix[i] = 0
		}
	}
}

// DrawBuffer copies RGBA bytes into the backing image.
func (s *ImageSurface) DrawBuffer(x, y, w, h int, pix []uint8) error {
	if s.closed {
		return ErrSurfaceUnavailable
	}
	if len(pix) < w*h*4 {
		return ErrSurfaceUnavailable
	}
	for row := 0; row < h; row++ {
		dstOff := s.img.PixOffset(x, y+row)
		srcOff := row * w * 4
		copy(s.img.Pix[dstOff:dstOff+w*4], pix[srcOff:srcOff+w*4])
	}
	return nil
}
