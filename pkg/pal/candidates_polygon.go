package pal

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/labelpal/pkg/geom"
)

// polygonGridFactor is the number of grid probes per allowed candidate.
const polygonGridFactor = 4

// candidatesInPolygon probes a grid over the polygon's bounding box and keeps
// the labels that fit entirely inside the polygon. With free placement the
// grid is probed a second time at the angle of the polygon's longest edge.
// When nothing fits, a single label is centered on the polygon's pole of
// inaccessibility.
func (fp *FeaturePart) candidatesInPolygon(poly orb.Polygon, n int, free bool) []*LabelPosition {
	w, h := fp.labelSize()
	b := poly.Bound()
	bw, bh := b.Right()-b.Left(), b.Top()-b.Bottom()

	var out []*LabelPosition
	if bw > 0 && bh > 0 {
		angles := []float64{0}
		if free {
			if a := dominantAngle(poly[0]); math.Abs(a) > 1e-3 {
				angles = append(angles, a)
			}
		}

		probes := float64(max(n, 1) * polygonGridFactor)
		spacing := math.Sqrt(bw * bh / probes)
		nx := max(1, int(math.Round(bw/spacing)))
		ny := max(1, int(math.Round(bh/spacing)))

		for _, alpha := range angles {
			for j := range ny {
				cy := b.Bottom() + (float64(j)+0.5)*bh/float64(ny)
				for i := range nx {
					cx := b.Left() + (float64(i)+0.5)*bw/float64(nx)
					lp := newCenteredPosition(fp, len(out), orb.Point{cx, cy}, w, h, alpha, pointCost)
					if geom.PolygonContainsRing(poly, lp.ring) {
						out = append(out, lp)
					}
				}
			}
		}
	}

	if len(out) == 0 {
		out = append(out, newCenteredPosition(fp, 0, fp.pointOnSurface(), w, h, 0, pointCost))
	}
	return out
}

// dominantAngle returns the direction of the ring's longest edge, folded into
// (-π/2, π/2] so text stays upright.
func dominantAngle(r orb.Ring) float64 {
	best, angle := 0.0, 0.0
	for i := 1; i < len(r); i++ {
		if d := planar.Distance(r[i-1], r[i]); d > best {
			best = d
			angle = geom.Angle(r[i-1], r[i])
		}
	}
	for angle > math.Pi/2 {
		angle -= math.Pi
	}
	for angle <= -math.Pi/2 {
		angle += math.Pi
	}
	return angle
}
