package render

import (
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"

	"dicom-viewer/pkg/geometry"
)

// OpenCVCompositor warps through OpenCV's accelerated affine path.
type OpenCVCompositor struct{}

// NewOpenCVCompositor returns the accelerated compositing strategy.
func NewOpenCVCompositor() *OpenCVCompositor {
	return &OpenCVCompositor{}
}

func (c *OpenCVCompositor) Name() string { return "opencv" }

func (c *OpenCVCompositor) SupportsGPU() bool { return true }

func (c *OpenCVCompositor) Composite(dst *image.RGBA, src *image.Gray, t geometry.AffineTransform) {
	srcMat, err := gocv.NewMatFromBytes(src.Bounds().Dy(), src.Bounds().Dx(), gocv.MatTypeCV8U, src.Pix)
	if err != nil {
		// Fall back rather than drop the frame.
		NewSoftwareCompositor().Composite(dst, src, t)
		return
	}
	defer srcMat.Close()

	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	transformMat.SetDoubleAt(0, 0, t.A)
	transformMat.SetDoubleAt(0, 1, t.B)
	transformMat.SetDoubleAt(0, 2, t.TX)
	transformMat.SetDoubleAt(1, 0, t.C)
	transformMat.SetDoubleAt(1, 1, t.D)
	transformMat.SetDoubleAt(1, 2, t.TY)
	defer transformMat.Close()

	bounds := dst.Bounds()
	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpAffineWithParams(srcMat, &warped, transformMat,
		image.Point{X: bounds.Dx(), Y: bounds.Dy()},
		gocv.InterpolationLinear, gocv.BorderConstant,
		color.RGBA{R: 0, G: 0, B: 0, A: 0})

	img, err := warped.ToImage()
	if err != nil {
		NewSoftwareCompositor().Composite(dst, src, t)
		return
	}
	draw.Draw(dst, bounds, img, image.Point{}, draw.Over)
}
