package pal

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/labelpal/pkg/geom"
)

// LayerPriority as a Feature priority selects the layer's default priority.
const LayerPriority = -1.0

// Feature describes one map feature to label or to avoid.
//
// The zero Priority is the highest priority, not the layer default. Set
// Priority to LayerPriority for features that follow their layer.
type Feature struct {
	// ID identifies the feature within its layer. Empty IDs are allowed but
	// are not checked for duplicates.
	ID string

	// Geometry is a point, line or polygon, or a multi-geometry of those.
	Geometry orb.Geometry

	// Text is the label text. Lines with equal text may be merged.
	Text string

	// Width and Height are the label size in map units.
	Width  float64
	Height float64

	// Priority in [0,1], 0 being the most important. Negative values, such
	// as LayerPriority, use the layer's default priority.
	Priority float64

	// Obstacle makes the feature's geometry an obstacle for other labels.
	Obstacle bool

	// ObstacleFactor in [0,2] scales obstacle penalties; zero means 1.
	ObstacleFactor float64

	// RepeatDistance splits long lines into pieces labeled independently.
	RepeatDistance float64

	// Distance is the gap between a point or line and its label.
	Distance float64
}

// labelFeature is a registered feature.
type labelFeature struct {
	Feature
	layer *Layer
}

// priority returns the feature's effective priority in [0,1].
func (f *labelFeature) priority() float64 {
	if f.Priority >= 0 {
		return clampPriority(f.Priority)
	}
	return f.layer.priority
}

func (f *labelFeature) obstacleFactor() float64 {
	if f.ObstacleFactor <= 0 {
		return 1
	}
	return min(f.ObstacleFactor, 2)
}

// GeometryType classifies a feature part.
type GeometryType int

const (
	PointGeometry GeometryType = iota
	LineGeometry
	PolygonGeometry
)

func (t GeometryType) String() string {
	switch t {
	case PointGeometry:
		return "point"
	case LineGeometry:
		return "line"
	}
	return "polygon"
}

// FeaturePart is one labelable geometry of a feature. Polygon parts own one
// self-obstacle part per hole.
type FeaturePart struct {
	feature *labelFeature
	geom    orb.Geometry
	kind    GeometryType
	bound   orb.Bound
	holeOf  *FeaturePart
	holes   []*FeaturePart
}

func newFeaturePart(f *labelFeature, g orb.Geometry) *FeaturePart {
	fp := &FeaturePart{feature: f, geom: g, bound: g.Bound()}
	switch g := g.(type) {
	case orb.Point:
		fp.kind = PointGeometry
	case orb.LineString:
		fp.kind = LineGeometry
	case orb.Polygon:
		fp.kind = PolygonGeometry
		for _, ring := range g[1:] {
			hole := orb.Polygon{ring}
			fp.holes = append(fp.holes, &FeaturePart{
				feature: f,
				geom:    hole,
				kind:    PolygonGeometry,
				bound:   hole.Bound(),
				holeOf:  fp,
			})
		}
	}
	return fp
}

// Feature returns the registered feature this part belongs to.
func (fp *FeaturePart) Feature() Feature { return fp.feature.Feature }

// Layer returns the owning layer.
func (fp *FeaturePart) Layer() *Layer { return fp.feature.layer }

// Geometry returns the part's point, line or polygon.
func (fp *FeaturePart) Geometry() orb.Geometry { return fp.geom }

// Type returns the part's geometry class.
func (fp *FeaturePart) Type() GeometryType { return fp.kind }

// Bound returns the part's bounding box.
func (fp *FeaturePart) Bound() orb.Bound { return fp.bound }

// HoleOf returns the polygon part this hole belongs to, or nil.
func (fp *FeaturePart) HoleOf() *FeaturePart { return fp.holeOf }

// Holes returns the part's self-obstacles.
func (fp *FeaturePart) Holes() []*FeaturePart { return fp.holes }

// sameLabelFeature reports whether fp and other label the same feature.
// Parts merged from several lines belong to the first of them.
func (fp *FeaturePart) sameLabelFeature(other *FeaturePart) bool {
	return other != nil && fp.feature == other.feature
}

func (fp *FeaturePart) point() orb.Point          { return fp.geom.(orb.Point) }
func (fp *FeaturePart) line() orb.LineString      { return fp.geom.(orb.LineString) }
func (fp *FeaturePart) polygon() orb.Polygon      { return fp.geom.(orb.Polygon) }
func (fp *FeaturePart) labelSize() (w, h float64) { return fp.feature.Width, fp.feature.Height }

// length returns the length of a line part or the perimeter of a polygon.
func (fp *FeaturePart) length() float64 {
	switch fp.kind {
	case LineGeometry:
		return planar.Length(fp.line())
	case PolygonGeometry:
		return planar.Length(fp.polygon()[0])
	}
	return 0
}

// area returns the area of a polygon part, holes excluded.
func (fp *FeaturePart) area() float64 {
	if fp.kind != PolygonGeometry {
		return 0
	}
	a := planar.Area(fp.polygon())
	if a < 0 {
		return -a
	}
	return a
}

// pointOnSurface returns a representative point of the part.
func (fp *FeaturePart) pointOnSurface() orb.Point {
	return geom.PointOnSurface(fp.geom)
}
