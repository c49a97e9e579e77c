package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestAffineComposeInverseRoundtrip(t *testing.T) {
	tr := Translation(100, 50).
		Compose(Scale(2.5, 2.5)).
		Compose(Rotation(math.Pi / 3)).
		Compose(Flip(true, false)).
		Compose(Translation(-32, -32))

	inv, ok := tr.Inverse()
	if !ok {
		t.Fatal("transform should be invertible")
	}

	points := []Point2D{{0, 0}, {10, 20}, {-5.5, 7.25}, {64, 64}}
	for _, p := range points {
		back := inv.Apply(tr.Apply(p))
		if !almostEqual(back.X, p.X) || !almostEqual(back.Y, p.Y) {
			t.Errorf("roundtrip of %v gave %v", p, back)
		}
	}
}

func TestAffineInverseSingular(t *testing.T) {
	if _, ok := Scale(0, 1).Inverse(); ok {
		t.Error("zero-scale transform should not invert")
	}
}

func TestRotationPreservesDistance(t *testing.T) {
	r := Rotation(math.Pi / 4)
	a := r.Apply(Point2D{X: 3, Y: 0})
	b := r.Apply(Point2D{X: 0, Y: 4})
	if d := a.Distance(b); !almostEqual(d, 5) {
		t.Errorf("distance after rotation = %v, want 5", d)
	}
}

func TestFlip(t *testing.T) {
	p := Point2D{X: 3, Y: 7}
	if got := Flip(true, false).Apply(p); got.X != -3 || got.Y != 7 {
		t.Errorf("horizontal flip gave %v", got)
	}
	if got := Flip(false, true).Apply(p); got.X != 3 || got.Y != -7 {
		t.Errorf("vertical flip gave %v", got)
	}
	if got := Flip(true, true).Apply(p); got.X != -3 || got.Y != -7 {
		t.Errorf("double flip gave %v", got)
	}
}

func TestPolygonArea(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if a := Area(square); !almostEqual(a, 100) {
		t.Errorf("square area = %v, want 100", a)
	}

	// Winding order must not change the magnitude.
	reversed := []Point2D{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	if a := Area(reversed); !almostEqual(a, 100) {
		t.Errorf("reversed square area = %v, want 100", a)
	}

	triangle := []Point2D{{0, 0}, {10, 0}, {0, 10}}
	if a := Area(triangle); !almostEqual(a, 50) {
		t.Errorf("triangle area = %v, want 50", a)
	}

	if a := Area([]Point2D{{0, 0}, {1, 1}}); a != 0 {
		t.Errorf("degenerate polygon area = %v, want 0", a)
	}
}

func TestPerimeter(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if p := Perimeter(square); !almostEqual(p, 40) {
		t.Errorf("perimeter = %v, want 40", p)
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([]Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}})
	if !almostEqual(c.X, 5) || !almostEqual(c.Y, 5) {
		t.Errorf("centroid = %v, want (5,5)", c)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !PointInPolygon(Point2D{X: 5, Y: 5}, square) {
		t.Error("center should be inside")
	}
	if PointInPolygon(Point2D{X: 15, Y: 5}, square) {
		t.Error("point to the right should be outside")
	}
	if PointInPolygon(Point2D{X: 5, Y: -1}, square) {
		t.Error("point above should be outside")
	}
}

func TestVertexAngle(t *testing.T) {
	cases := []struct {
		name       string
		p1, v, p2  Point2D
		wantDegree float64
	}{
		{"right angle", Point2D{10, 0}, Point2D{0, 0}, Point2D{0, 10}, 90},
		{"straight", Point2D{-5, 0}, Point2D{0, 0}, Point2D{5, 0}, 180},
		{"quarter", Point2D{10, 0}, Point2D{0, 0}, Point2D{10, 10}, 45},
		{"reflex normalized", Point2D{10, 0}, Point2D{0, 0}, Point2D{10, -10}, 45},
	}
	for _, tc := range cases {
		if got := VertexAngle(tc.p1, tc.v, tc.p2); !almostEqual(got, tc.wantDegree) {
			t.Errorf("%s: angle = %v, want %v", tc.name, got, tc.wantDegree)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	r := BoundingBox([]Point2D{{2, 3}, {-1, 8}, {5, 1}})
	if r.X != -1 || r.Y != 1 || r.Width != 6 || r.Height != 7 {
		t.Errorf("bounding box = %+v", r)
	}
	if !r.Contains(Point2D{X: 2, Y: 3}) {
		t.Error("box should contain its input point")
	}
}
