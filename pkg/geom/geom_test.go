package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func square(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func near(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) < 1e-9 && math.Abs(a[1]-b[1]) < 1e-9
}

func TestRect(t *testing.T) {
	r := Rect(1, 1, 2, 1, 0)
	want := square(1, 1, 3, 2)
	for i := range want {
		if !near(r[i], want[i]) {
			t.Errorf("corner %d = %v, want %v", i, r[i], want[i])
		}
	}

	r = Rect(0, 0, 2, 1, math.Pi/2)
	if !near(r[1], orb.Point{0, 2}) || !near(r[2], orb.Point{-1, 2}) {
		t.Errorf("rotated rect = %v", r)
	}
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 orb.Point
		intersect      bool
		cross          bool
	}{
		{"crossing", orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}, true, true},
		{"touching endpoint", orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{2, 0}, true, false},
		{"parallel", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1}, false, false},
		{"collinear overlap", orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}, true, false},
		{"collinear apart", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect(tt.a1, tt.a2, tt.b1, tt.b2); got != tt.intersect {
				t.Errorf("SegmentsIntersect() = %v, want %v", got, tt.intersect)
			}
			if got := SegmentsCross(tt.a1, tt.a2, tt.b1, tt.b2); got != tt.cross {
				t.Errorf("SegmentsCross() = %v, want %v", got, tt.cross)
			}
		})
	}
}

func TestPolygonContainsRing(t *testing.T) {
	donut := orb.Polygon{square(0, 0, 10, 10), square(4, 4, 6, 6)}

	tests := []struct {
		name     string
		ring     orb.Ring
		contains bool
		meets    bool
	}{
		{"inside", square(1, 1, 2, 2), true, true},
		{"partially outside", square(9, 9, 11, 11), false, true},
		{"outside", square(20, 20, 21, 21), false, false},
		{"crosses hole", square(3, 3, 5, 5), false, true},
		{"inside hole", square(4.5, 4.5, 5.5, 5.5), false, false},
		{"encloses hole", square(3, 3, 7, 7), false, true},
		{"on boundary", square(0, 0, 1, 1), true, true},
		{"encloses polygon", square(-1, -1, 11, 11), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PolygonContainsRing(donut, tt.ring); got != tt.contains {
				t.Errorf("PolygonContainsRing() = %v, want %v", got, tt.contains)
			}
			if got := PolygonIntersectsRing(donut, tt.ring); got != tt.meets {
				t.Errorf("PolygonIntersectsRing() = %v, want %v", got, tt.meets)
			}
		})
	}
}

func TestRingsIntersect(t *testing.T) {
	a := square(0, 0, 2, 2)
	if !RingsIntersect(a, square(1, 1, 3, 3)) {
		t.Error("overlapping squares should intersect")
	}
	if !RingsIntersect(a, square(0.5, 0.5, 1, 1)) {
		t.Error("nested squares should intersect")
	}
	if RingsIntersect(a, square(3, 3, 4, 4)) {
		t.Error("disjoint squares should not intersect")
	}
}

func TestLineIntersectsRing(t *testing.T) {
	r := square(0, 0, 2, 2)
	if !LineIntersectsRing(orb.LineString{{-1, 1}, {3, 1}}, r) {
		t.Error("crossing line should intersect")
	}
	if !LineIntersectsRing(orb.LineString{{0.5, 0.5}, {1, 1}}, r) {
		t.Error("contained line should intersect")
	}
	if LineIntersectsRing(orb.LineString{{3, 0}, {3, 2}}, r) {
		t.Error("distant line should not intersect")
	}
}

func TestInterpolate(t *testing.T) {
	ls := orb.LineString{{0, 0}, {10, 0}, {10, 10}}

	tests := []struct {
		d     float64
		want  orb.Point
		angle float64
	}{
		{-1, orb.Point{0, 0}, 0},
		{5, orb.Point{5, 0}, 0},
		{15, orb.Point{10, 5}, math.Pi / 2},
		{100, orb.Point{10, 10}, math.Pi / 2},
	}
	for _, tt := range tests {
		p, a := Interpolate(ls, tt.d)
		if !near(p, tt.want) || math.Abs(a-tt.angle) > 1e-9 {
			t.Errorf("Interpolate(%v) = %v, %v; want %v, %v", tt.d, p, a, tt.want, tt.angle)
		}
	}
}

func TestMerge(t *testing.T) {
	a := orb.LineString{{0, 0}, {1, 0}}

	tests := []struct {
		name string
		b    orb.LineString
		want orb.LineString
		ok   bool
	}{
		{"end to start", orb.LineString{{1, 0}, {2, 0}}, orb.LineString{{0, 0}, {1, 0}, {2, 0}}, true},
		{"end to end", orb.LineString{{2, 0}, {1, 0}}, orb.LineString{{0, 0}, {1, 0}, {2, 0}}, true},
		{"start to end", orb.LineString{{-1, 0}, {0, 0}}, orb.LineString{{-1, 0}, {0, 0}, {1, 0}}, true},
		{"start to start", orb.LineString{{0, 0}, {-1, 0}}, orb.LineString{{-1, 0}, {0, 0}, {1, 0}}, true},
		{"disjoint", orb.LineString{{5, 5}, {6, 6}}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Merge(a, tt.b)
			if ok != tt.ok || !got.Equal(tt.want) {
				t.Errorf("Merge() = %v, %v; want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestChop(t *testing.T) {
	ls := orb.LineString{{0, 0}, {10, 0}}

	pieces := Chop(ls, 3)
	if len(pieces) != 4 {
		t.Fatalf("Chop() produced %d pieces, want 4", len(pieces))
	}
	total := 0.0
	for _, p := range pieces {
		total += planar.Length(p)
	}
	if math.Abs(total-10) > 1e-9 {
		t.Errorf("total length = %v, want 10", total)
	}

	if got := Chop(ls, 20); len(got) != 1 {
		t.Errorf("short line chopped into %d pieces", len(got))
	}
	if got := Chop(ls, 0); len(got) != 1 {
		t.Errorf("non-positive length chopped into %d pieces", len(got))
	}
}

func TestChopRounding(t *testing.T) {
	// 0.1 does not divide 0.7 exactly in floating point.
	ls := orb.LineString{{0, 0}, {0.7, 0}}
	pieces := Chop(ls, 0.1)
	if len(pieces) != 7 {
		t.Fatalf("Chop() produced %d pieces, want 7", len(pieces))
	}
	if end := pieces[6][len(pieces[6])-1]; end != (orb.Point{0.7, 0}) {
		t.Errorf("last piece ends at %v, want [0.7 0]", end)
	}

	// Chopping a piece again leaves it whole.
	for i, p := range pieces {
		if again := Chop(p, 0.1); len(again) != 1 {
			t.Errorf("piece %d chopped again into %d pieces", i, len(again))
		}
	}
}

func TestPointOnSurface(t *testing.T) {
	// A U shape whose centroid falls outside the polygon.
	u := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {8, 10}, {8, 2}, {2, 2}, {2, 10}, {0, 10}, {0, 0}}}
	p := PointOnSurface(u)
	if !planar.PolygonContains(u, p) {
		t.Errorf("PointOnSurface(U) = %v, not inside polygon", p)
	}

	if got := PointOnSurface(orb.LineString{{0, 0}, {4, 0}}); !near(got, orb.Point{2, 0}) {
		t.Errorf("PointOnSurface(line) = %v, want [2 0]", got)
	}
	if got := PointOnSurface(orb.Point{3, 4}); got != (orb.Point{3, 4}) {
		t.Errorf("PointOnSurface(point) = %v", got)
	}
}
