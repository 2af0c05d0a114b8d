package geom

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// PointOnSurface returns a representative point of g that lies on it: the
// point itself, the middle of a line, or the pole of inaccessibility of a
// polygon. Multi-geometries use their largest member.
func PointOnSurface(g orb.Geometry) orb.Point {
	switch g := g.(type) {
	case orb.Point:
		return g
	case orb.MultiPoint:
		if len(g) == 0 {
			return orb.Point{}
		}
		return g[0]
	case orb.LineString:
		p, _ := Interpolate(g, planar.Length(g)/2)
		return p
	case orb.MultiLineString:
		var longest orb.LineString
		for _, ls := range g {
			if planar.Length(ls) > planar.Length(longest) {
				longest = ls
			}
		}
		return PointOnSurface(longest)
	case orb.Ring:
		return PointOnSurface(orb.Polygon{g})
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) == 0 {
			return orb.Point{}
		}
		b := g.Bound()
		precision := math.Max(b.Right()-b.Left(), b.Top()-b.Bottom()) / 100
		return Polylabel(g, precision)
	case orb.MultiPolygon:
		var largest orb.Polygon
		best := -1.0
		for _, p := range g {
			if a := planar.Area(p); a > best {
				best, largest = a, p
			}
		}
		return PointOnSurface(largest)
	case orb.Bound:
		return g.Center()
	case orb.Collection:
		if len(g) == 0 {
			return orb.Point{}
		}
		return PointOnSurface(g[0])
	}
	return orb.Point{}
}

// cell is a square probe of the polylabel search.
type cell struct {
	center orb.Point
	half   float64
	dist   float64 // signed distance from center to the polygon outline
	max    float64 // upper bound on dist anywhere inside the cell
}

func newCell(x, y, half float64, poly orb.Polygon) cell {
	c := orb.Point{x, y}
	d := PolygonDistance(c, poly)
	return cell{center: c, half: half, dist: d, max: d + half*math.Sqrt2}
}

// cellQueue is a max-heap of cells ordered by their potential.
type cellQueue []cell

func (q cellQueue) Len() int           { return len(q) }
func (q cellQueue) Less(i, j int) bool { return q[i].max > q[j].max }
func (q cellQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *cellQueue) Push(x any)        { *q = append(*q, x.(cell)) }
func (q *cellQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// Polylabel returns the point inside poly farthest from its outline, to within
// precision, using the grid refinement search of Mapbox's polylabel.
func Polylabel(poly orb.Polygon, precision float64) orb.Point {
	b := poly.Bound()
	width, height := b.Right()-b.Left(), b.Top()-b.Bottom()
	size := math.Min(width, height)
	if size == 0 {
		return b.Min
	}
	if precision <= 0 {
		precision = size / 100
	}
	h := size / 2

	q := &cellQueue{}
	for x := b.Left(); x < b.Right(); x += size {
		for y := b.Bottom(); y < b.Top(); y += size {
			heap.Push(q, newCell(x+h, y+h, h, poly))
		}
	}

	best := centroidCell(poly)
	if bc := newCell(b.Left()+width/2, b.Bottom()+height/2, 0, poly); bc.dist > best.dist {
		best = bc
	}

	for q.Len() > 0 {
		c := heap.Pop(q).(cell)
		if c.dist > best.dist {
			best = c
		}
		if c.max-best.dist <= precision {
			continue
		}
		h := c.half / 2
		heap.Push(q, newCell(c.center[0]-h, c.center[1]-h, h, poly))
		heap.Push(q, newCell(c.center[0]+h, c.center[1]-h, h, poly))
		heap.Push(q, newCell(c.center[0]-h, c.center[1]+h, h, poly))
		heap.Push(q, newCell(c.center[0]+h, c.center[1]+h, h, poly))
	}
	return best.center
}

func centroidCell(poly orb.Polygon) cell {
	c, area := planar.CentroidArea(poly)
	if area == 0 {
		c = poly[0][0]
	}
	return newCell(c[0], c[1], 0, poly)
}
