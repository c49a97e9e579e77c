package render

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"dicom-viewer/pkg/geometry"
)

// Compositor draws a windowed grayscale frame onto an RGBA destination
// under an affine transform. One implementation is pure Go; the other
// rides OpenCV when the binding is available. Both are selected through
// this interface rather than parallel pipeline variants.
type Compositor interface {
	Name() string
	SupportsGPU() bool
	Composite(dst *image.RGBA, src *image.Gray, t geometry.AffineTransform)
}

// SoftwareCompositor composites with x/image's bilinear transformer: one
// affine draw call, no per-pixel looping in this package.
type SoftwareCompositor struct{}

// NewSoftwareCompositor returns the portable compositing strategy.
func NewSoftwareCompositor() *SoftwareCompositor {
	return &SoftwareCompositor{}
}

func (c *SoftwareCompositor) Name() string { return "software" }

func (c *SoftwareCompositor) SupportsGPU() bool { return false }

func (c *SoftwareCompositor) Composite(dst *image.RGBA, src *image.Gray, t geometry.AffineTransform) {
	m := f64.Aff3{t.A, t.B, t.TX, t.C, t.D, t.TY}
	draw.ApproxBiLinear.Transform(dst, m, src, src.Bounds(), draw.Over, nil)
}
