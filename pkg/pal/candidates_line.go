package pal

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/labelpal/pkg/geom"
)

// Extra costs of the line sides, above being preferred.
const (
	onLineCost    = 0.0002
	belowLineCost = 0.0005
)

// candidatesAlongLine places rotated labels parallel to ls. Up to n positions
// are sampled along the line, each yielding one candidate per allowed side.
// Positions near the middle of the line and over straight stretches are
// cheaper. Labels are kept upright by flipping those that would read
// right-to-left.
func (fp *FeaturePart) candidatesAlongLine(ls orb.LineString, n int, placement LinePlacement) []*LabelPosition {
	total := planar.Length(ls)
	if total == 0 {
		return fp.candidatesOverPoint(ls[0], 0)
	}
	w, h := fp.labelSize()
	dist := fp.feature.Distance
	if placement == 0 {
		placement = DefaultLinePlacement
	}
	n = max(n, 1)

	var starts []float64
	span := total - w
	switch {
	case span <= 0 || n == 1:
		starts = []float64{span / 2}
	default:
		step := span / float64(n-1)
		for i := range n {
			starts = append(starts, float64(i)*step)
		}
	}

	var out []*LabelPosition
	for _, s := range starts {
		a, _ := geom.Interpolate(ls, s)
		b, _ := geom.Interpolate(ls, s+w)
		chord := planar.Distance(a, b)
		if chord == 0 {
			continue
		}
		angle := geom.Angle(a, b)

		cost := pointCost
		if span > 0 {
			cost += 0.001 * max(0, 1-chord/w)
			cost += 0.001 * math.Abs(s+w/2-total/2) / total
		} else {
			// Label longer than the line: centered on the chord.
			mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
			sin, cos := math.Sincos(angle)
			a = orb.Point{mid[0] - w/2*cos, mid[1] - w/2*sin}
			b = orb.Point{mid[0] + w/2*cos, mid[1] + w/2*sin}
			cost += 0.001 * (1 - total/w)
		}

		anchor := a
		if angle > math.Pi/2 || angle <= -math.Pi/2 {
			anchor = b
			angle += math.Pi
			if angle > math.Pi {
				angle -= 2 * math.Pi
			}
		}
		sin, cos := math.Sincos(angle)
		normal := orb.Point{-sin, cos}

		side := func(offset, extra float64) {
			x := anchor[0] + normal[0]*offset
			y := anchor[1] + normal[1]*offset
			out = append(out, newLabelPosition(fp, len(out), x, y, w, h, angle, cost+extra))
		}
		if placement&AboveLine != 0 {
			side(dist, 0)
		}
		if placement&OnLine != 0 {
			side(-h/2, onLineCost)
		}
		if placement&BelowLine != 0 {
			side(-(dist + h), belowLineCost)
		}
	}
	return out
}

// candidatesHorizontalAlongLine centers up to n unrotated labels on points
// spread evenly along ls, cheapest at the middle.
func (fp *FeaturePart) candidatesHorizontalAlongLine(ls orb.LineString, n int) []*LabelPosition {
	total := planar.Length(ls)
	if total == 0 {
		return fp.candidatesOverPoint(ls[0], 0)
	}
	w, h := fp.labelSize()
	n = max(n, 1)

	out := make([]*LabelPosition, 0, n)
	step := total / float64(n+1)
	for i := 1; i <= n; i++ {
		d := float64(i) * step
		p, _ := geom.Interpolate(ls, d)
		cost := pointCost + 0.001*math.Abs(d-total/2)/total
		out = append(out, newCenteredPosition(fp, len(out), p, w, h, 0, cost))
	}
	return out
}
