package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"dicom-viewer/internal/measure"
	"dicom-viewer/internal/viewport"
	"dicom-viewer/pkg/colorutil"
	"dicom-viewer/pkg/geometry"
)

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// letterPatterns contains 3x5 pixel patterns for letters and the symbols
// that show up in measurement labels.
var letterPatterns = map[rune][5]uint8{
	'A': {0b010, 0b101, 0b111, 0b101, 0b101},
	'C': {0b011, 0b100, 0b100, 0b100, 0b011},
	'D': {0b110, 0b101, 0b101, 0b101, 0b110},
	'E': {0b111, 0b100, 0b110, 0b100, 0b111},
	'F': {0b111, 0b100, 0b110, 0b100, 0b100},
	'G': {0b011, 0b100, 0b101, 0b101, 0b011},
	'I': {0b111, 0b010, 0b010, 0b010, 0b111},
	'L': {0b100, 0b100, 0b100, 0b100, 0b111},
	'M': {0b101, 0b111, 0b101, 0b101, 0b101},
	'N': {0b101, 0b111, 0b111, 0b101, 0b101},
	'O': {0b010, 0b101, 0b101, 0b101, 0b010},
	'P': {0b110, 0b101, 0b110, 0b100, 0b100},
	'R': {0b110, 0b101, 0b110, 0b101, 0b101},
	'S': {0b011, 0b100, 0b010, 0b001, 0b110},
	'T': {0b111, 0b010, 0b010, 0b010, 0b010},
	'X': {0b101, 0b101, 0b010, 0b101, 0b101},
	'+': {0b000, 0b010, 0b111, 0b010, 0b000},
	'-': {0b000, 0b000, 0b111, 0b000, 0b000},
	'.': {0b000, 0b000, 0b000, 0b000, 0b010},
	' ': {0b000, 0b000, 0b000, 0b000, 0b000},
}

// getCharPattern returns the 3x5 pixel pattern for a character.
// Superscript two renders as a plain 2; unsupported characters are blank.
func getCharPattern(ch rune) [5]uint8 {
	if ch == '²' {
		ch = '2'
	}
	if ch >= '0' && ch <= '9' {
		return digitPatterns[ch-'0']
	}
	if ch >= 'a' && ch <= 'z' {
		ch = ch - 'a' + 'A'
	}
	if pattern, ok := letterPatterns[ch]; ok {
		return pattern
	}
	return [5]uint8{}
}

// DrawLabel renders text with the 3x5 bitmap font, centered on (cx, cy).
func DrawLabel(dst *image.RGBA, text string, cx, cy int, col color.RGBA, scale int) {
	if scale < 1 {
		scale = 1
	}
	runes := []rune(text)
	charW := 4 * scale // 3 columns + 1 gap
	totalW := charW * len(runes)
	x := cx - totalW/2
	y := cy - (5*scale)/2

	bounds := dst.Bounds()
	for _, ch := range runes {
		pattern := getCharPattern(ch)
		for row := 0; row < 5; row++ {
			for colBit := 0; colBit < 3; colBit++ {
				if pattern[row]&(1<<(2-colBit)) == 0 {
					continue
				}
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						px := x + colBit*scale + sx
						py := y + row*scale + sy
						if px >= bounds.Min.X && px < bounds.Max.X &&
							py >= bounds.Min.Y && py < bounds.Max.Y {
							dst.SetRGBA(px, py, col)
						}
					}
				}
			}
		}
		x += charW
	}
}

// drawLine draws a thick line segment.
func drawLine(dst *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := dst.Bounds()
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	length := math.Hypot(dx, dy)
	if length == 0 {
		dst.SetRGBA(x1, y1, col)
		return
	}

	steps := int(length) + 1
	half := thickness / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		cx := x1 + int(dx*t)
		cy := y1 + int(dy*t)
		for oy := -half; oy <= half; oy++ {
			for ox := -half; ox <= half; ox++ {
				px, py := cx+ox, cy+oy
				if px >= bounds.Min.X && px < bounds.Max.X &&
					py >= bounds.Min.Y && py < bounds.Max.Y {
					dst.SetRGBA(px, py, col)
				}
			}
		}
	}
}

// drawCross marks a captured point.
func drawCross(dst *image.RGBA, x, y, arm int, col color.RGBA) {
	drawLine(dst, x-arm, y, x+arm, y, col, 1)
	drawLine(dst, x, y-arm, x, y+arm, col, 1)
}

// formatValue renders a measurement value for its overlay label.
func formatValue(m *measure.Measurement) string {
	return fmt.Sprintf("%.1f %s", m.Value, m.Unit)
}

// drawMeasurements re-projects stored image-space points through the
// current viewport and draws overlay geometry plus value labels.
func drawMeasurements(dst *image.RGBA, eng *measure.Engine, vp *viewport.Viewport, canvasW, canvasH, imageW, imageH float64) {
	if eng == nil {
		return
	}

	project := func(p geometry.Point2D) (int, int) {
		c := vp.ToCanvas(p, canvasW, canvasH, imageW, imageH)
		return int(c.X + 0.5), int(c.Y + 0.5)
	}

	for i := range eng.Measurements() {
		m := &eng.Measurements()[i]
		col := colorForKind(m.Kind)

		pts := make([][2]int, len(m.Points))
		for j, p := range m.Points {
			x, y := project(p)
			pts[j] = [2]int{x, y}
			drawCross(dst, x, y, 3, col)
		}

		switch m.Kind {
		case measure.KindDistance:
			drawLine(dst, pts[0][0], pts[0][1], pts[1][0], pts[1][1], col, 2)
			DrawLabel(dst, formatValue(m),
				(pts[0][0]+pts[1][0])/2, (pts[0][1]+pts[1][1])/2-10, col, 2)

		case measure.KindAngle:
			drawLine(dst, pts[1][0], pts[1][1], pts[0][0], pts[0][1], col, 2)
			drawLine(dst, pts[1][0], pts[1][1], pts[2][0], pts[2][1], col, 2)
			DrawLabel(dst, formatValue(m), pts[1][0], pts[1][1]-12, col, 2)

		case measure.KindArea:
			n := len(pts)
			for j := 0; j < n; j++ {
				k := (j + 1) % n
				drawLine(dst, pts[j][0], pts[j][1], pts[k][0], pts[k][1], col, 2)
			}
			cx, cy := project(geometry.Centroid(m.Points))
			DrawLabel(dst, formatValue(m), cx, cy, col, 2)
		}
	}

	// Partial collection for the active tool.
	pending := eng.PendingPoints()
	for j, p := range pending {
		x, y := project(p)
		drawCross(dst, x, y, 4, colorutil.Yellow)
		if j > 0 {
			px, py := project(pending[j-1])
			drawLine(dst, px, py, x, y, colorutil.WithAlpha(colorutil.Yellow, 200), 1)
		}
	}
}

func colorForKind(k measure.Kind) color.RGBA {
	switch k {
	case measure.KindDistance:
		return colorutil.Cyan
	case measure.KindAngle:
		return colorutil.Magenta
	case measure.KindArea:
		return colorutil.Green
	default:
		return colorutil.White
	}
}
