// Package geom provides the planar predicates the label engine needs on top of
// github.com/paulmach/orb: rotated label rectangles, segment and ring
// intersection tests, containment of a rectangle in a polygon with holes, and
// line interpolation.
//
// All functions work in planar map units and never mutate their arguments.
package geom

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Rect returns the closed ring of a w×h rectangle whose bottom-left corner is
// at (x, y), rotated counter-clockwise by alpha radians around that corner.
// Corners are ordered bottom-left, bottom-right, top-right, top-left.
func Rect(x, y, w, h, alpha float64) orb.Ring {
	sin, cos := math.Sincos(alpha)
	dx := orb.Point{w * cos, w * sin}
	dy := orb.Point{-h * sin, h * cos}
	p0 := orb.Point{x, y}
	p1 := orb.Point{x + dx[0], y + dx[1]}
	p2 := orb.Point{p1[0] + dy[0], p1[1] + dy[1]}
	p3 := orb.Point{x + dy[0], y + dy[1]}
	return orb.Ring{p0, p1, p2, p3, p0}
}

// cross returns the z component of (a-o) × (b-o).
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether p, known to be collinear with a-b, lies on it.
func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 share at least
// one point. Touching endpoints and collinear overlaps count.
func SegmentsIntersect(a1, a2, b1, b2 orb.Point) bool {
	d1 := sign(cross(b1, b2, a1))
	d2 := sign(cross(b1, b2, a2))
	d3 := sign(cross(a1, a2, b1))
	d4 := sign(cross(a1, a2, b2))

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	switch {
	case d1 == 0 && onSegment(b1, b2, a1):
		return true
	case d2 == 0 && onSegment(b1, b2, a2):
		return true
	case d3 == 0 && onSegment(a1, a2, b1):
		return true
	case d4 == 0 && onSegment(a1, a2, b2):
		return true
	}
	return false
}

// SegmentsCross reports whether the segments cross at a single point interior
// to both of them.
func SegmentsCross(a1, a2, b1, b2 orb.Point) bool {
	d1 := sign(cross(b1, b2, a1))
	d2 := sign(cross(b1, b2, a2))
	d3 := sign(cross(a1, a2, b1))
	d4 := sign(cross(a1, a2, b2))
	return d1*d2 < 0 && d3*d4 < 0
}

// edges calls fn for every edge of the path until fn returns true.
func edges(path []orb.Point, fn func(a, b orb.Point) bool) bool {
	for i := 1; i < len(path); i++ {
		if fn(path[i-1], path[i]) {
			return true
		}
	}
	return false
}

// closed returns r with its first point appended if it is not already closed.
func closed(r orb.Ring) orb.Ring {
	if len(r) > 1 && r[0] != r[len(r)-1] {
		return append(slices.Clone(r), r[0])
	}
	return r
}

// pathsIntersect reports whether any edge of a meets any edge of b.
func pathsIntersect(a, b []orb.Point) bool {
	return edges(a, func(a1, a2 orb.Point) bool {
		return edges(b, func(b1, b2 orb.Point) bool {
			return SegmentsIntersect(a1, a2, b1, b2)
		})
	})
}

// pathsCross reports whether any edge of a properly crosses any edge of b.
func pathsCross(a, b []orb.Point) bool {
	return edges(a, func(a1, a2 orb.Point) bool {
		return edges(b, func(b1, b2 orb.Point) bool {
			return SegmentsCross(a1, a2, b1, b2)
		})
	})
}

// RingsIntersect reports whether the areas bounded by two rings share a point.
func RingsIntersect(a, b orb.Ring) bool {
	a, b = closed(a), closed(b)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	if pathsIntersect(a, b) {
		return true
	}
	return planar.RingContains(a, b[0]) || planar.RingContains(b, a[0])
}

// PolygonIntersectsRing reports whether ring r shares area with polygon p,
// holes excluded.
func PolygonIntersectsRing(p orb.Polygon, r orb.Ring) bool {
	if len(p) == 0 || len(r) == 0 {
		return false
	}
	r = closed(r)
	if !p.Bound().Intersects(r.Bound()) {
		return false
	}
	for _, ring := range p {
		if pathsIntersect(closed(ring), r) {
			return true
		}
	}
	// No boundary contact: r is either inside p, around p, or disjoint.
	return planar.PolygonContains(p, r[0]) || planar.RingContains(r, p[0][0])
}

// PolygonContainsRing reports whether ring r lies entirely inside polygon p.
// Vertices on p's boundary are accepted, but r may not cross into a hole or
// enclose one.
func PolygonContainsRing(p orb.Polygon, r orb.Ring) bool {
	if len(p) == 0 || len(r) == 0 {
		return false
	}
	r = closed(r)
	if !p.Bound().Contains(r.Bound().Min) || !p.Bound().Contains(r.Bound().Max) {
		return false
	}
	for _, v := range r {
		if !planar.RingContains(p[0], v) {
			return false
		}
	}
	if pathsCross(closed(p[0]), r) {
		return false
	}
	for _, hole := range p[1:] {
		if len(hole) == 0 {
			continue
		}
		if pathsIntersect(closed(hole), r) || planar.RingContains(r, hole[0]) {
			return false
		}
		for _, v := range r {
			if planar.RingContains(hole, v) {
				return false
			}
		}
	}
	return true
}

// LineIntersectsRing reports whether line ls touches the area bounded by r.
func LineIntersectsRing(ls orb.LineString, r orb.Ring) bool {
	if len(ls) == 0 || len(r) == 0 {
		return false
	}
	r = closed(r)
	if !ls.Bound().Intersects(r.Bound()) {
		return false
	}
	if len(ls) > 1 && pathsIntersect(ls, r) {
		return true
	}
	return planar.RingContains(r, ls[0])
}

// RingDistance returns the shortest distance from p to the edges of r.
func RingDistance(p orb.Point, r orb.Ring) float64 {
	r = closed(r)
	best := math.Inf(1)
	edges(r, func(a, b orb.Point) bool {
		best = math.Min(best, planar.DistanceFromSegment(a, b, p))
		return false
	})
	return best
}

// PolygonDistance returns the distance from p to the nearest ring of poly,
// positive when p is inside poly and negative otherwise.
func PolygonDistance(p orb.Point, poly orb.Polygon) float64 {
	best := math.Inf(1)
	for _, r := range poly {
		best = math.Min(best, RingDistance(p, r))
	}
	if planar.PolygonContains(poly, p) {
		return best
	}
	return -best
}

// Angle returns the direction of the vector a→b in radians.
func Angle(a, b orb.Point) float64 {
	return math.Atan2(b[1]-a[1], b[0]-a[0])
}

// Interpolate returns the point at distance d along ls together with the
// direction of the segment containing it. d is clamped to the line's length.
func Interpolate(ls orb.LineString, d float64) (orb.Point, float64) {
	switch len(ls) {
	case 0:
		return orb.Point{}, 0
	case 1:
		return ls[0], 0
	}
	if d <= 0 {
		return ls[0], Angle(ls[0], ls[1])
	}
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if seg == 0 {
			continue
		}
		if d <= seg {
			t := d / seg
			a, b := ls[i-1], ls[i]
			return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}, Angle(a, b)
		}
		d -= seg
	}
	n := len(ls)
	return ls[n-1], Angle(ls[n-2], ls[n-1])
}

// Merge joins a and b when they share an endpoint, reversing b as needed so
// the result is a single continuous line.
func Merge(a, b orb.LineString) (orb.LineString, bool) {
	if len(a) == 0 || len(b) == 0 {
		return nil, false
	}
	aStart, aEnd := a[0], a[len(a)-1]
	bStart, bEnd := b[0], b[len(b)-1]
	rev := func(l orb.LineString) orb.LineString {
		c := slices.Clone(l)
		slices.Reverse(c)
		return c
	}

	switch {
	case aEnd == bStart:
		return append(slices.Clone(a), b[1:]...), true
	case aEnd == bEnd:
		return append(slices.Clone(a), rev(b)[1:]...), true
	case aStart == bEnd:
		return append(slices.Clone(b), a[1:]...), true
	case aStart == bStart:
		return append(rev(b), a[1:]...), true
	}
	return nil, false
}

// chopTolerance is the fraction of the piece length below which a leftover
// tail is folded into the previous piece instead of becoming its own.
const chopTolerance = 1e-9

// Chop splits ls into consecutive pieces no longer than length, up to
// rounding. A line at most length long (within tolerance), or a non-positive
// length, yields ls unchanged.
func Chop(ls orb.LineString, length float64) []orb.LineString {
	total := planar.Length(ls)
	if length <= 0 || total <= length*(1+chopTolerance) || len(ls) < 2 {
		return []orb.LineString{ls}
	}

	var pieces []orb.LineString
	current := orb.LineString{ls[0]}
	remaining := length
	for i := 1; i < len(ls); i++ {
		a, b := current[len(current)-1], ls[i]
		seg := planar.Distance(a, b)
		for seg > remaining && seg > 0 {
			t := remaining / seg
			cut := orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
			current = append(current, cut)
			pieces = append(pieces, current)
			current = orb.LineString{cut}
			a = cut
			seg -= remaining
			remaining = length
		}
		current = append(current, b)
		remaining -= seg
		if remaining <= 0 && i < len(ls)-1 {
			pieces = append(pieces, current)
			current = orb.LineString{b}
			remaining = length
		}
	}
	tail := planar.Length(current)
	switch {
	case len(current) < 2 || tail == 0:
	case tail <= length*chopTolerance && len(pieces) > 0:
		last := pieces[len(pieces)-1]
		last[len(last)-1] = current[len(current)-1]
	default:
		pieces = append(pieces, current)
	}
	return pieces
}
