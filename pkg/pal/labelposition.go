package pal

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/labelpal/pkg/geom"
)

// LabelPosition is one candidate placement of a feature's label: a
// rectangle anchored at its bottom-left corner, rotated around that corner.
type LabelPosition struct {
	part  *FeaturePart
	x, y  float64
	w, h  float64
	alpha float64
	ring  orb.Ring
	bound orb.Bound

	cost float64
	// penalty is the share of cost contributed by obstacles.
	penalty float64
	// order is the generation rank within the feature, used to keep sorting
	// stable.
	order int
	// priority is the feature priority captured at extraction.
	priority float64

	id       int
	probFeat int
	overlaps int

	conflictsWithObstacle bool
	hardConflict          bool
}

func newLabelPosition(part *FeaturePart, order int, x, y, w, h, alpha, cost float64) *LabelPosition {
	ring := geom.Rect(x, y, w, h, alpha)
	return &LabelPosition{
		part:     part,
		x:        x,
		y:        y,
		w:        w,
		h:        h,
		alpha:    alpha,
		ring:     ring,
		bound:    ring.Bound(),
		cost:     cost,
		order:    order,
		id:       -1,
		probFeat: -1,
	}
}

// newCenteredPosition returns a candidate whose center is at c.
func newCenteredPosition(part *FeaturePart, order int, c orb.Point, w, h, alpha, cost float64) *LabelPosition {
	sin, cos := math.Sincos(alpha)
	x := c[0] - (w/2)*cos + (h/2)*sin
	y := c[1] - (w/2)*sin - (h/2)*cos
	return newLabelPosition(part, order, x, y, w, h, alpha, cost)
}

// X returns the x coordinate of the bottom-left corner.
func (lp *LabelPosition) X() float64 { return lp.x }

// Y returns the y coordinate of the bottom-left corner.
func (lp *LabelPosition) Y() float64 { return lp.y }

func (lp *LabelPosition) Width() float64  { return lp.w }
func (lp *LabelPosition) Height() float64 { return lp.h }

// Angle returns the rotation in radians, counter-clockwise.
func (lp *LabelPosition) Angle() float64 { return lp.alpha }

// Cost returns the candidate's cost. After extraction it lies in [0,1).
func (lp *LabelPosition) Cost() float64 { return lp.cost }

// ID returns the candidate's global id within its problem, or -1.
func (lp *LabelPosition) ID() int { return lp.id }

// FeatureIndex returns the index of the candidate's feature within its
// problem, or -1.
func (lp *LabelPosition) FeatureIndex() int { return lp.probFeat }

// Overlaps returns the number of candidates of other features this one
// conflicts with.
func (lp *LabelPosition) Overlaps() int { return lp.overlaps }

// Part returns the feature part being labeled.
func (lp *LabelPosition) Part() *FeaturePart { return lp.part }

// Ring returns the candidate's closed outline.
func (lp *LabelPosition) Ring() orb.Ring { return lp.ring }

// Bound returns the candidate's bounding box.
func (lp *LabelPosition) Bound() orb.Bound { return lp.bound }

// Center returns the center of the candidate rectangle.
func (lp *LabelPosition) Center() orb.Point {
	return orb.Point{(lp.ring[0][0] + lp.ring[2][0]) / 2, (lp.ring[0][1] + lp.ring[2][1]) / 2}
}

// ConflictsWithObstacle reports whether any obstacle penalized the candidate.
func (lp *LabelPosition) ConflictsWithObstacle() bool { return lp.conflictsWithObstacle }

// HasHardObstacleConflict reports whether the candidate overlaps an obstacle
// that outweighs its feature's priority.
func (lp *LabelPosition) HasHardObstacleConflict() bool { return lp.hardConflict }

// setProblemIds stores the candidate's feature index and global id.
func (lp *LabelPosition) setProblemIds(feat, id int) {
	lp.probFeat = feat
	lp.id = id
}

// validateCost clamps the cost into [0,1).
func (lp *LabelPosition) validateCost() {
	switch {
	case lp.cost >= 1:
		lp.cost = 0.999
	case lp.cost < 0 || math.IsNaN(lp.cost):
		lp.cost = 0
	}
}

// isInConflict reports whether lp and other label different features and
// their outlines meet.
func (lp *LabelPosition) isInConflict(other *LabelPosition) bool {
	if lp == other || lp.part.sameLabelFeature(other.part) {
		return false
	}
	if !lp.bound.Intersects(other.bound) {
		return false
	}
	return geom.RingsIntersect(lp.ring, other.ring)
}

// intersectsBoundary reports whether the candidate shares area with the map
// boundary.
func (lp *LabelPosition) intersectsBoundary(boundary orb.Polygon) bool {
	return geom.PolygonIntersectsRing(boundary, lp.ring)
}

// withinBoundary reports whether the candidate lies entirely inside the map
// boundary.
func (lp *LabelPosition) withinBoundary(boundary orb.Polygon) bool {
	return geom.PolygonContainsRing(boundary, lp.ring)
}

// containsPoint reports whether p lies inside the candidate.
func (lp *LabelPosition) containsPoint(p orb.Point) bool {
	return planar.RingContains(lp.ring, p)
}

// crossesLine reports whether the candidate's outline meets ls.
func (lp *LabelPosition) crossesLine(ls orb.LineString) bool {
	return geom.LineIntersectsRing(ls, lp.ring)
}

// crossesBoundary reports whether the candidate touches any ring of poly.
func (lp *LabelPosition) crossesBoundary(poly orb.Polygon) bool {
	for _, r := range poly {
		if geom.LineIntersectsRing(orb.LineString(r), lp.ring) {
			return true
		}
	}
	return false
}

// polygonIntersectionCost returns how many of twelve points sampled over the
// candidate fall inside poly, from 0 to 12.
func (lp *LabelPosition) polygonIntersectionCost(poly orb.Polygon) int {
	if !poly.Bound().Intersects(lp.bound) {
		return 0
	}
	n := 0
	for _, p := range lp.samplePoints() {
		if planar.PolygonContains(poly, p) {
			n++
		}
	}
	return n
}

// samplePoints returns the centers of a 4×3 grid over the candidate.
func (lp *LabelPosition) samplePoints() []orb.Point {
	sin, cos := math.Sincos(lp.alpha)
	pts := make([]orb.Point, 0, 12)
	for i := range 4 {
		u := (float64(i) + 0.5) / 4 * lp.w
		for j := range 3 {
			v := (float64(j) + 0.5) / 3 * lp.h
			pts = append(pts, orb.Point{lp.x + u*cos - v*sin, lp.y + u*sin + v*cos})
		}
	}
	return pts
}
