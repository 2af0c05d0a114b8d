package pal

import (
	"math"

	"github.com/paulmach/orb"
)

// pointCost is the base cost of the single centered candidate and the lowest
// cost of the ring of candidates around a point.
const pointCost = 0.0001

// candidatesOverPoint returns one candidate centered on p.
func (fp *FeaturePart) candidatesOverPoint(p orb.Point, alpha float64) []*LabelPosition {
	w, h := fp.labelSize()
	return []*LabelPosition{newCenteredPosition(fp, 0, p, w, h, alpha, pointCost)}
}

// candidatesAroundPoint places n candidates on a ring around p at the
// feature's label distance, starting top-right and moving counter-clockwise.
// Candidates nearer the top-right position are cheaper.
func (fp *FeaturePart) candidatesAroundPoint(p orb.Point, n int) []*LabelPosition {
	if n < 3 {
		n = 3
	}
	w, h := fp.labelSize()
	dist := fp.feature.Distance

	const (
		a90  = math.Pi / 2
		a180 = math.Pi
		a270 = 3 * math.Pi / 2
		a360 = 2 * math.Pi
	)
	gamma1 := math.Atan2(h/2, dist+w/2)
	gamma2 := math.Atan2(w/2, dist+h/2)
	step := a360 / float64(n)

	out := make([]*LabelPosition, 0, n)
	rank, inc := 0, 2
	angle := math.Pi / 4
	for i := range n {
		if angle > a360 {
			angle -= a360
		}

		var dx, dy float64
		switch {
		case angle < gamma1 || angle > a360-gamma1: // right
			t := angle + gamma1
			if t > a360-gamma1 {
				t -= a360
			}
			dx = dist
			dy = -h + h*t/(2*gamma1)
		case angle < a90-gamma2: // above right
			dx = dist * math.Cos(angle)
			dy = dist * math.Sin(angle)
		case angle < a90+gamma2: // above
			dx = -w * (angle - a90 + gamma2) / (2 * gamma2)
			dy = dist
		case angle < a180-gamma1: // above left
			dx = dist*math.Cos(angle) - w
			dy = dist * math.Sin(angle)
		case angle < a180+gamma1: // left
			dx = -dist - w
			dy = -(angle - a180 + gamma1) * h / (2 * gamma1)
		case angle < a270-gamma2: // below left
			dx = dist*math.Cos(angle) - w
			dy = dist*math.Sin(angle) - h
		case angle < a270+gamma2: // below
			dx = -w + (angle-a270+gamma2)*w/(2*gamma2)
			dy = -dist - h
		default: // below right
			dx = dist * math.Cos(angle)
			dy = dist*math.Sin(angle) - h
		}

		cost := pointCost + 0.0020*float64(rank)/float64(n-1)
		out = append(out, newLabelPosition(fp, i, p[0]+dx, p[1]+dy, w, h, 0, cost))

		rank += inc
		if rank == n {
			rank, inc = n-1, -2
		} else if rank > n {
			rank, inc = n-2, -2
		}
		angle += step
	}
	return out
}
