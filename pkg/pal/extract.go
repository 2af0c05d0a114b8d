package pal

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/spatial"
)

// extraction holds the working state of one ExtractProblem call. Nothing in
// it is shared with other calls.
type extraction struct {
	pal      *Pal
	settings Settings
	extent   orb.Bound
	boundary orb.Polygon

	obstacles  *spatial.Index[*obstacle]
	candidates *spatial.Index[*LabelPosition]
	features   []*feats
	unplaced   []*LabelPosition
	layerNames []string
}

// ExtractProblem builds the optimization problem for the features inside
// extent. Candidates are filtered against boundary: with partial labels
// shown they must intersect it, otherwise they must lie within it. A nil
// boundary uses the extent rectangle.
//
// ExtractProblem returns nil when the cancellation predicate fires.
func (p *Pal) ExtractProblem(extent orb.Bound, boundary orb.Polygon) *Problem {
	if boundary == nil {
		boundary = extent.ToPolygon()
	}
	ex := &extraction{
		pal:        p,
		settings:   p.Settings(),
		extent:     extent,
		boundary:   boundary,
		obstacles:  spatial.New[*obstacle](),
		candidates: spatial.New[*LabelPosition](),
	}

	if !ex.collect() {
		p.logger.Debug("extraction canceled while collecting features")
		return nil
	}
	prob := ex.build()
	if prob == nil {
		p.logger.Debug("extraction canceled while building problem")
		return nil
	}

	p.logger.Debug("problem extracted",
		"layers", prob.nbLabelledLayers,
		"features", prob.FeatureCount(),
		"candidates", prob.CandidateCount(),
		"overlaps", prob.nbOverlap,
		"unplaced", len(prob.positionsWithNoCandidates))
	return prob
}

// collect walks the active layers in registration order, generating and
// filtering candidates and gathering obstacles. It reports false when
// canceled.
func (ex *extraction) collect() bool {
	p := ex.pal
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.order {
		contributed, ok := ex.collectLayer(p.layers[id])
		if !ok {
			return false
		}
		if contributed {
			ex.layerNames = append(ex.layerNames, p.layers[id].name)
		}
	}
	return true
}

func (ex *extraction) collectLayer(layer *Layer) (contributed, ok bool) {
	layer.mu.Lock()
	defer layer.mu.Unlock()

	if !layer.active {
		return false, true
	}
	before := len(ex.features)
	completed := layer.workingParts().Search(ex.extent, func(fp *FeaturePart, _ orb.Bound) bool {
		if ex.pal.isCanceled() {
			return false
		}
		ex.extractFeature(layer, fp)
		return true
	})
	if !completed {
		return false, false
	}

	obstacleCount := 0
	layer.obstacles.Search(ex.extent, func(fp *FeaturePart, b orb.Bound) bool {
		ex.obstacles.Insert(&obstacle{part: fp, kind: layer.obstacleType}, b)
		obstacleCount++
		return true
	})

	return len(ex.features) > before || obstacleCount > 0, true
}

// extractFeature generates fp's candidates and keeps those passing the
// boundary filter. A part left without candidates is recorded as unplaced.
func (ex *extraction) extractFeature(layer *Layer, fp *FeaturePart) {
	for _, hole := range fp.holes {
		ex.obstacles.Insert(&obstacle{part: hole, kind: PolygonInterior}, hole.bound)
	}

	var kept []*LabelPosition
	for _, lp := range fp.createCandidates(ex.settings) {
		if ex.settings.ShowPartialLabels {
			if !lp.intersectsBoundary(ex.boundary) {
				continue
			}
		} else if !lp.withinBoundary(ex.boundary) {
			continue
		}
		kept = append(kept, lp)
	}
	if len(kept) == 0 {
		ex.unplaced = append(ex.unplaced, fp.unplacedPosition())
		return
	}

	priority := fp.feature.priority()
	for _, lp := range kept {
		lp.priority = priority
		ex.candidates.Insert(lp, lp.bound)
	}
	sortCandidates(kept)
	ex.features = append(ex.features, &feats{
		part:        fp,
		priority:    priority,
		arrangement: layer.arrangement,
		maxP:        layer.maxCandidates(fp.kind, ex.settings),
		displayAll:  layer.displayAll,
		candidates:  kept,
	})
}

// build prunes candidates against obstacles, finalizes costs, assigns ids and
// counts overlaps. It returns nil when canceled.
func (ex *extraction) build() *Problem {
	p := ex.pal
	prob := &Problem{
		extent:           ex.extent,
		boundary:         ex.boundary,
		index:            ex.candidates,
		layerNames:       ex.layerNames,
		nbLabelledLayers: len(ex.layerNames),
	}
	if len(ex.features) == 0 {
		prob.positionsWithNoCandidates = ex.unplaced
		return prob
	}

	// Obstacle penalties, over every collected obstacle.
	completed := ex.obstacles.All(func(obs *obstacle, b orb.Bound) bool {
		if p.isCanceled() {
			return false
		}
		ex.candidates.Search(b, func(lp *LabelPosition, _ orb.Bound) bool {
			if !obs.ignores(lp) {
				addObstacleCostPenalty(lp, obs, ex.settings.PlacementVersion)
			}
			return true
		})
		return true
	})
	if !completed {
		return nil
	}

	// Final costs and truncation.
	kept := make([]*feats, 0, len(ex.features))
	for _, f := range ex.features {
		if p.isCanceled() {
			return nil
		}
		if ex.settings.PlacementVersion == PlacementV2 && !f.displayAll {
			f.candidates = ex.pruneHardConflicts(f.candidates)
			if len(f.candidates) == 0 {
				ex.unplaced = append(ex.unplaced, f.part.unplacedPosition())
				continue
			}
		}
		maxP := finalizeCandidatesCosts(f, f.maxP, ex.extent)
		for _, lp := range f.candidates[maxP:] {
			ex.candidates.Remove(lp)
		}
		f.candidates = f.candidates[:maxP]
		kept = append(kept, f)
	}

	// Problem ids.
	n := len(kept)
	prob.featNbLp = make([]int, n)
	prob.featStartID = make([]int, n)
	prob.inactiveCost = make([]float64, n)
	prob.displayAll = make([]bool, n)
	for i, f := range kept {
		prob.featStartID[i] = len(prob.candidates)
		prob.featNbLp[i] = len(f.candidates)
		prob.inactiveCost[i] = inactiveCost(f.priority)
		prob.displayAll[i] = f.displayAll
		for _, lp := range f.candidates {
			lp.setProblemIds(i, len(prob.candidates))
			prob.candidates = append(prob.candidates, lp)
		}
	}

	// Overlaps. Each conflicting pair is seen from both sides.
	sum := 0
	for _, lp := range prob.candidates {
		if p.isCanceled() {
			return nil
		}
		lp.overlaps = 0
		lp.validateCost()
		ex.candidates.Search(lp.bound, func(other *LabelPosition, _ orb.Bound) bool {
			if lp.isInConflict(other) {
				lp.overlaps++
			}
			return true
		})
		sum += lp.overlaps
	}
	prob.nbOverlap = sum / 2
	prob.positionsWithNoCandidates = ex.unplaced
	return prob
}

// pruneHardConflicts drops candidates in hard conflict with an obstacle,
// removing them from the candidate index.
func (ex *extraction) pruneHardConflicts(cands []*LabelPosition) []*LabelPosition {
	kept := cands[:0]
	for _, lp := range cands {
		if lp.hardConflict {
			ex.candidates.Remove(lp)
			continue
		}
		kept = append(kept, lp)
	}
	return kept
}
