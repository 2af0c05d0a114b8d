package pal

import "github.com/paulmach/orb"

// createCandidates generates the part's candidates for the layer's
// arrangement. Callers hold the layer mutex.
func (fp *FeaturePart) createCandidates(s Settings) []*LabelPosition {
	l := fp.feature.layer
	n := l.maxCandidates(fp.kind, s)

	switch fp.kind {
	case PointGeometry:
		if l.arrangement == OverPoint {
			return fp.candidatesOverPoint(fp.point(), 0)
		}
		return fp.candidatesAroundPoint(fp.point(), n)

	case LineGeometry:
		switch l.arrangement {
		case Horizontal:
			return fp.candidatesHorizontalAlongLine(fp.line(), n)
		case AroundPoint:
			return fp.candidatesAroundPoint(fp.pointOnSurface(), n)
		case OverPoint:
			return fp.candidatesOverPoint(fp.pointOnSurface(), 0)
		}
		return fp.candidatesAlongLine(fp.line(), n, l.linePlacement)

	default:
		poly := fp.polygon()
		switch l.arrangement {
		case AroundPoint:
			return fp.candidatesAroundPoint(fp.pointOnSurface(), n)
		case OverPoint:
			return fp.candidatesOverPoint(fp.pointOnSurface(), 0)
		case Line, Perimeter:
			return fp.candidatesAlongLine(orb.LineString(poly[0]), n, l.linePlacement)
		case Free:
			return fp.candidatesInPolygon(poly, n, true)
		}
		return fp.candidatesInPolygon(poly, n, false)
	}
}

// unplacedPosition returns a zero-sized position at the part's
// representative point, used to report features without candidates.
func (fp *FeaturePart) unplacedPosition() *LabelPosition {
	p := fp.pointOnSurface()
	return newLabelPosition(fp, 0, p[0], p[1], 0, 0, 0, 0)
}
