package viewport

import (
	"math"

	"dicom-viewer/pkg/geometry"
)

// Transform composes the full image-to-canvas affine for the given canvas
// and image dimensions. Composition order, outermost first: translate to
// the canvas center, scale, user translation, rotation, flips, translate
// by the negative image center.
func (v *Viewport) Transform(canvasW, canvasH, imageW, imageH float64) geometry.AffineTransform {
	t := geometry.Translation(canvasW/2, canvasH/2)
	t = t.Compose(geometry.Scale(v.Scale, v.Scale))
	t = t.Compose(geometry.Translation(v.Translation.X, v.Translation.Y))
	t = t.Compose(geometry.Rotation(v.RotationDeg * math.Pi / 180))
	t = t.Compose(geometry.Flip(v.FlipH, v.FlipV))
	t = t.Compose(geometry.Translation(-imageW/2, -imageH/2))
	return t
}

// ToCanvas maps an image-space point onto the canvas.
func (v *Viewport) ToCanvas(p geometry.Point2D, canvasW, canvasH, imageW, imageH float64) geometry.Point2D {
	return v.Transform(canvasW, canvasH, imageW, imageH).Apply(p)
}

// ToImage maps a canvas-space point back into image space using the exact
// matrix inverse. The forward transform is always invertible because the
// scale is clamped away from zero.
func (v *Viewport) ToImage(p geometry.Point2D, canvasW, canvasH, imageW, imageH float64) geometry.Point2D {
	inv, ok := v.Transform(canvasW, canvasH, imageW, imageH).Inverse()
	if !ok {
		return p
	}
	return inv.Apply(p)
}
