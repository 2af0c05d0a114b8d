package pal

import (
	"cmp"
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/geom"
)

// obstacle is an obstacle collected for one extraction, with the owning
// layer's obstacle type captured under that layer's lock.
type obstacle struct {
	part *FeaturePart
	kind ObstacleType
}

// ignores reports whether obs has no effect on lp. Features are never
// obstacles for their own labels, and holes are obstacles only for the
// labels of the polygon they belong to.
func (obs *obstacle) ignores(lp *LabelPosition) bool {
	if obs.part.holeOf == nil {
		return lp.part.sameLabelFeature(obs.part)
	}
	return !lp.part.sameLabelFeature(obs.part.holeOf)
}

// addObstacleCostPenalty raises lp's cost by the obstacle's factor times the
// number of conflicts found between them. Under PlacementV2 a conflict with
// an obstacle whose factor exceeds the label's scaled priority is marked as
// hard.
func addObstacleCostPenalty(lp *LabelPosition, obs *obstacle, version PlacementVersion) {
	n := 0
	part := obs.part
	switch part.kind {
	case PointGeometry:
		if lp.containsPoint(part.point()) {
			n = 2
		}
	case LineGeometry:
		if lp.crossesLine(part.line()) {
			n = 1
		}
	case PolygonGeometry:
		poly := part.polygon()
		switch {
		case part.holeOf != nil || obs.kind == PolygonInterior:
			n = lp.polygonIntersectionCost(poly)
		case obs.kind == PolygonBoundary:
			if lp.crossesBoundary(poly) {
				n = 1
			}
		case obs.kind == PolygonWhole:
			if lp.intersectsPolygon(poly) {
				n = 12
			}
		}
	}
	if n == 0 {
		return
	}

	factor := part.feature.obstacleFactor()
	lp.conflictsWithObstacle = true
	if version == PlacementV2 {
		// Label priority runs from 1 (least important) to 0; scale it onto the
		// obstacle factor range [0,2].
		priority := 2 * (1 - lp.priority)
		if priority < factor && math.Abs(priority-factor) > 0.001 {
			lp.hardConflict = true
		}
	}
	penalty := factor * float64(n)
	lp.cost += penalty
	lp.penalty += penalty
}

// intersectsPolygon reports whether the candidate shares area with poly.
func (lp *LabelPosition) intersectsPolygon(poly orb.Polygon) bool {
	return geom.PolygonIntersectsRing(poly, lp.ring)
}

// sortCandidates orders candidates by ascending cost, generation order
// breaking ties.
func sortCandidates(cands []*LabelPosition) {
	slices.SortStableFunc(cands, func(a, b *LabelPosition) int {
		if c := cmp.Compare(a.cost, b.cost); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
}

// finalizeCandidatesCosts computes the final costs of a feature's candidates,
// sorts them best first and returns how many of them to keep, at most maxP.
//
// Polygon candidates under free or horizontal placement are ranked by how
// far they sit from the polygon outline. Small lines and polygons receive a
// size penalty relative to the extent. When every candidate conflicts with
// obstacles, only the least conflicting band is kept.
func finalizeCandidatesCosts(f *feats, maxP int, extent orb.Bound) int {
	cands := f.candidates
	if maxP > len(cands) {
		maxP = len(cands)
	}

	if f.part.kind == PolygonGeometry && (f.arrangement == Free || f.arrangement == Horizontal) {
		setPolygonCandidatesCost(cands, f.part.polygon(), extent)
	}
	addSizePenalty(f.part, cands, extent)
	sortCandidates(cands)

	discrim := 0.0
	stop := 0
	last := cands[len(cands)-1].cost
	for {
		discrim++
		stop = 0
		for stop < len(cands) && cands[stop].cost < discrim {
			stop++
		}
		if stop != 0 || discrim >= last+2 {
			break
		}
	}
	if discrim > 1.5 {
		for _, lp := range cands[:stop] {
			lp.cost = 0.0021
		}
	}
	return min(maxP, stop)
}

// setPolygonCandidatesCost makes candidates far from the polygon outline and
// the extent edges cheaper. Obstacle penalties are preserved.
func setPolygonCandidatesCost(cands []*LabelPosition, poly orb.Polygon, extent orb.Bound) {
	dists := make([]float64, len(cands))
	maxDist := 0.0
	for i, lp := range cands {
		c := lp.Center()
		d := geom.PolygonDistance(c, poly)
		d = min(d, c[0]-extent.Left(), extent.Right()-c[0], c[1]-extent.Bottom(), extent.Top()-c[1])
		dists[i] = max(d, 0)
		maxDist = max(maxDist, dists[i])
	}
	for i, lp := range cands {
		base := 0.0021
		if maxDist > 0 {
			base -= 0.002 * dists[i] / maxDist
		}
		lp.cost = lp.penalty + base
	}
}

// addSizePenalty penalizes lines shorter than a quarter of the extent's
// larger side and polygons smaller than a sixteenth of its area.
func addSizePenalty(part *FeaturePart, cands []*LabelPosition, extent orb.Bound) {
	w, h := extent.Right()-extent.Left(), extent.Top()-extent.Bottom()
	var sizeCost float64
	switch part.kind {
	case LineGeometry:
		l := part.length()
		limit := max(w, h) / 4
		if l <= 0 || l >= limit {
			return
		}
		sizeCost = 1 - l/limit
	case PolygonGeometry:
		a := part.area()
		limit := w * h / 16
		if a <= 0 || a >= limit {
			return
		}
		sizeCost = 1 - a/limit
	default:
		return
	}
	for _, lp := range cands {
		lp.cost += sizeCost / 100
	}
}
