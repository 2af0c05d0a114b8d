package pal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/labelpal/pkg/geom"
	"github.com/matzehuels/labelpal/pkg/spatial"
)

// Feature registration errors.
var (
	ErrNoGeometry          = errors.New("feature has no geometry")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrInvalidLabelSize    = errors.New("label width and height must be positive")
	ErrDuplicateFeature    = errors.New("duplicate feature id")
)

// LayerID is a stable handle for a registered layer.
type LayerID uint64

// Layer is a named set of features sharing one provider and one placement
// configuration. Layers are created by Pal.AddLayer.
type Layer struct {
	pal      *Pal
	id       LayerID
	provider Provider
	name     string

	// mu guards every field below, including both indexes.
	mu            sync.Mutex
	arrangement   Arrangement
	priority      float64
	active        bool
	toLabel       bool
	displayAll    bool
	mergeLines    bool
	chopLines     bool
	linePlacement LinePlacement
	obstacleType  ObstacleType
	maxPoint      int
	maxLine       int
	maxPolygon    int
	ids           map[string]struct{}
	featureCount  int
	parts         *spatial.Index[*FeaturePart]
	obstacles     *spatial.Index[*FeaturePart]
}

func newLayer(p *Pal, id LayerID, provider Provider, name string, arrangement Arrangement, priority float64, active, toLabel, displayAll bool) *Layer {
	return &Layer{
		pal:           p,
		id:            id,
		provider:      provider,
		name:          name,
		arrangement:   arrangement,
		priority:      clampPriority(priority),
		active:        active,
		toLabel:       toLabel,
		displayAll:    displayAll,
		chopLines:     true,
		linePlacement: DefaultLinePlacement,
		obstacleType:  PolygonInterior,
		ids:           make(map[string]struct{}),
		parts:         spatial.New[*FeaturePart](),
		obstacles:     spatial.New[*FeaturePart](),
	}
}

func clampPriority(p float64) float64 {
	return min(max(p, 0), 1)
}

// ID returns the layer's stable handle.
func (l *Layer) ID() LayerID { return l.id }

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Provider returns the provider the layer was registered with.
func (l *Layer) Provider() Provider { return l.provider }

// Arrangement returns how candidates are generated for the layer's features.
func (l *Layer) Arrangement() Arrangement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.arrangement
}

// SetArrangement changes the candidate arrangement for later extractions.
func (l *Layer) SetArrangement(a Arrangement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.arrangement = a
}

// Priority returns the default priority of the layer's features, in [0,1]
// with 0 the most important.
func (l *Layer) Priority() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.priority
}

// SetPriority sets the default priority, clamped to [0,1].
func (l *Layer) SetPriority(p float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.priority = clampPriority(p)
}

// Active reports whether the layer takes part in extraction.
func (l *Layer) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// SetActive includes or excludes the layer from extraction.
func (l *Layer) SetActive(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = active
}

// ToLabel reports whether the layer's features are labeled. A layer that is
// not labeled only contributes obstacles.
func (l *Layer) ToLabel() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toLabel
}

// DisplayAll reports whether every feature of the layer is shown, even when
// its label conflicts with others.
func (l *Layer) DisplayAll() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.displayAll
}

// SetMergeConnectedLines enables joining lines with equal label text that
// share an endpoint before candidates are generated.
func (l *Layer) SetMergeConnectedLines(merge bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mergeLines = merge
}

// MergeConnectedLines reports whether connected lines are joined.
func (l *Layer) MergeConnectedLines() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mergeLines
}

// SetChopAtRepeatDistance enables splitting lines longer than their
// feature's repeat distance so each piece is labeled separately.
func (l *Layer) SetChopAtRepeatDistance(chop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chopLines = chop
}

// ChopAtRepeatDistance reports whether long lines are split.
func (l *Layer) ChopAtRepeatDistance() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chopLines
}

// SetLinePlacement selects the sides of a line labels may use.
func (l *Layer) SetLinePlacement(p LinePlacement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p != 0 {
		l.linePlacement = p
	}
}

// LinePlacement returns the sides of a line labels may use.
func (l *Layer) LinePlacement() LinePlacement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.linePlacement
}

// SetObstacleType selects how the layer's polygon obstacles penalize labels.
func (l *Layer) SetObstacleType(t ObstacleType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.obstacleType = t
}

// ObstacleType returns how the layer's polygon obstacles penalize labels.
func (l *Layer) ObstacleType() ObstacleType {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.obstacleType
}

// SetMaximumCandidates overrides the engine's per-geometry candidate caps for
// this layer. Non-positive values keep the engine setting.
func (l *Layer) SetMaximumCandidates(point, line, polygon int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxPoint, l.maxLine, l.maxPolygon = max(point, 0), max(line, 0), max(polygon, 0)
}

// FeatureCount returns the number of registered features.
func (l *Layer) FeatureCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.featureCount
}

// maxCandidates returns the cap for a geometry type. Callers hold l.mu.
func (l *Layer) maxCandidates(t GeometryType, s Settings) int {
	switch t {
	case PointGeometry:
		if l.maxPoint > 0 {
			return l.maxPoint
		}
		return s.MaxPointCandidates
	case LineGeometry:
		if l.maxLine > 0 {
			return l.maxLine
		}
		return s.MaxLineCandidates
	default:
		if l.maxPolygon > 0 {
			return l.maxPolygon
		}
		return s.MaxPolygonCandidates
	}
}

// RegisterFeature adds f to the layer. Multi-part geometries are split into
// one part per member. Labelable parts are indexed for candidate generation
// when the layer is labeled; obstacle features are also indexed as obstacles.
func (l *Layer) RegisterFeature(f Feature) error {
	if f.Geometry == nil {
		return ErrNoGeometry
	}
	geoms, err := splitGeometry(f.Geometry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	labelable := l.toLabel && f.Width > 0 && f.Height > 0
	if l.toLabel && !f.Obstacle && !labelable {
		return fmt.Errorf("feature %q: %w", f.ID, ErrInvalidLabelSize)
	}
	if f.ID != "" {
		if _, dup := l.ids[f.ID]; dup {
			return fmt.Errorf("feature %q: %w", f.ID, ErrDuplicateFeature)
		}
		l.ids[f.ID] = struct{}{}
	}

	lf := &labelFeature{Feature: f, layer: l}
	for _, g := range geoms {
		fp := newFeaturePart(lf, g)
		if labelable {
			l.parts.Insert(fp, fp.bound)
		}
		if f.Obstacle {
			l.obstacles.Insert(fp, fp.bound)
		}
	}
	l.featureCount++
	return nil
}

// splitGeometry flattens g into points, lines and polygons.
func splitGeometry(g orb.Geometry) ([]orb.Geometry, error) {
	switch g := g.(type) {
	case orb.Point:
		return []orb.Geometry{g}, nil
	case orb.LineString:
		if len(g) == 0 {
			return nil, ErrNoGeometry
		}
		return []orb.Geometry{g}, nil
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) < 3 {
			return nil, ErrNoGeometry
		}
		return []orb.Geometry{g}, nil
	case orb.Ring:
		return splitGeometry(orb.Polygon{g})
	case orb.MultiPoint:
		out := make([]orb.Geometry, 0, len(g))
		for _, p := range g {
			out = append(out, p)
		}
		return nonEmpty(out)
	case orb.MultiLineString:
		out := make([]orb.Geometry, 0, len(g))
		for _, ls := range g {
			if len(ls) > 1 {
				out = append(out, ls)
			}
		}
		return nonEmpty(out)
	case orb.MultiPolygon:
		out := make([]orb.Geometry, 0, len(g))
		for _, p := range g {
			if len(p) > 0 && len(p[0]) > 2 {
				out = append(out, p)
			}
		}
		return nonEmpty(out)
	case orb.Collection:
		var out []orb.Geometry
		for _, member := range g {
			parts, err := splitGeometry(member)
			if err != nil {
				return nil, err
			}
			out = append(out, parts...)
		}
		return nonEmpty(out)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

func nonEmpty(gs []orb.Geometry) ([]orb.Geometry, error) {
	if len(gs) == 0 {
		return nil, ErrNoGeometry
	}
	return gs, nil
}

// workingParts returns the parts one extraction labels. Merging and chopping
// operate on a copy of the registered parts, which are never modified, so
// every extraction starts from the same pieces. Callers hold l.mu.
func (l *Layer) workingParts() *spatial.Index[*FeaturePart] {
	if !l.mergeLines && !l.chopLines {
		return l.parts
	}
	work := spatial.New[*FeaturePart]()
	l.parts.All(func(fp *FeaturePart, b orb.Bound) bool {
		work.Insert(fp, b)
		return true
	})
	if l.mergeLines {
		joinConnectedFeatures(work)
	}
	if l.chopLines {
		chopFeaturesAtRepeatDistance(work)
	}
	return work
}

// joinConnectedFeatures merges line parts with equal label text that share an
// endpoint. A merged part belongs to the first feature of the pair.
func joinConnectedFeatures(parts *spatial.Index[*FeaturePart]) {
	groups := make(map[string][]*FeaturePart)
	var texts []string
	parts.All(func(fp *FeaturePart, _ orb.Bound) bool {
		if fp.Type() != LineGeometry || fp.feature.Text == "" {
			return true
		}
		if _, ok := groups[fp.feature.Text]; !ok {
			texts = append(texts, fp.feature.Text)
		}
		groups[fp.feature.Text] = append(groups[fp.feature.Text], fp)
		return true
	})

	for _, text := range texts {
		group := groups[text]
		for merged := true; merged; {
			merged = false
		search:
			for i := 0; i < len(group); i++ {
				for j := i + 1; j < len(group); j++ {
					joined, ok := geom.Merge(group[i].line(), group[j].line())
					if !ok {
						continue
					}
					parts.Remove(group[i])
					parts.Remove(group[j])
					np := newFeaturePart(group[i].feature, joined)
					parts.Insert(np, np.bound)
					group[i] = np
					group = append(group[:j], group[j+1:]...)
					merged = true
					break search
				}
			}
		}
	}
}

// chopFeaturesAtRepeatDistance replaces every line part longer than its
// feature's repeat distance with consecutive pieces of that length.
func chopFeaturesAtRepeatDistance(parts *spatial.Index[*FeaturePart]) {
	var long []*FeaturePart
	parts.All(func(fp *FeaturePart, _ orb.Bound) bool {
		d := fp.feature.RepeatDistance
		if fp.Type() == LineGeometry && d > 0 && planar.Length(fp.line()) > d {
			long = append(long, fp)
		}
		return true
	})
	for _, fp := range long {
		parts.Remove(fp)
		for _, piece := range geom.Chop(fp.line(), fp.feature.RepeatDistance) {
			np := newFeaturePart(fp.feature, piece)
			parts.Insert(np, np.bound)
		}
	}
}

// release drops every feature of a removed layer.
func (l *Layer) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parts = spatial.New[*FeaturePart]()
	l.obstacles = spatial.New[*FeaturePart]()
	l.ids = make(map[string]struct{})
	l.featureCount = 0
}
