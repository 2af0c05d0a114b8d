package pal

import (
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/spatial"
)

// feats binds a feature part to its candidates during extraction.
type feats struct {
	part        *FeaturePart
	priority    float64
	arrangement Arrangement
	maxP        int
	displayAll  bool
	candidates  []*LabelPosition
}

// Problem is the optimization input built by Pal.ExtractProblem. It owns
// every surviving candidate; candidate ids are contiguous per feature and
// unique within [0, CandidateCount()).
//
// A Problem is not modified by solving and may be solved more than once.
type Problem struct {
	extent   orb.Bound
	boundary orb.Polygon

	featNbLp     []int
	featStartID  []int
	inactiveCost []float64
	displayAll   []bool

	candidates []*LabelPosition
	index      *spatial.Index[*LabelPosition]

	layerNames       []string
	nbLabelledLayers int
	nbOverlap        int

	positionsWithNoCandidates []*LabelPosition
}

// inactiveCost returns the penalty for leaving a feature of the given
// priority unlabeled: 1 for priority 1, 1024 for priority 0.
func inactiveCost(priority float64) float64 {
	return math.Pow(2, 10-10*priority)
}

// Extent returns the extent the problem was extracted for.
func (p *Problem) Extent() orb.Bound { return p.extent }

// Boundary returns the map boundary candidates were filtered against.
func (p *Problem) Boundary() orb.Polygon { return p.boundary }

// FeatureCount returns the number of features with at least one candidate.
func (p *Problem) FeatureCount() int { return len(p.featNbLp) }

// CandidateCount returns the total number of candidates.
func (p *Problem) CandidateCount() int { return len(p.candidates) }

// OverlapCount returns the number of conflicting candidate pairs.
func (p *Problem) OverlapCount() int { return p.nbOverlap }

// FeatureCandidateCount returns how many candidates feature i has.
func (p *Problem) FeatureCandidateCount(i int) int { return p.featNbLp[i] }

// FeatureStartID returns the id of feature i's first candidate.
func (p *Problem) FeatureStartID(i int) int { return p.featStartID[i] }

// InactiveCost returns the cost of leaving feature i unlabeled.
func (p *Problem) InactiveCost(i int) float64 { return p.inactiveCost[i] }

// Candidate returns the candidate with the given global id.
func (p *Problem) Candidate(id int) *LabelPosition { return p.candidates[id] }

// FeatureCandidates returns feature i's candidates, best first.
func (p *Problem) FeatureCandidates(i int) []*LabelPosition {
	start := p.featStartID[i]
	return p.candidates[start : start+p.featNbLp[i]]
}

// Candidates returns every candidate ordered by id.
func (p *Problem) Candidates() []*LabelPosition { return p.candidates }

// LayerNames returns the names of the layers that contributed features or
// obstacles inside the extent.
func (p *Problem) LayerNames() []string { return slices.Clone(p.layerNames) }

// LabelledLayerCount returns len(LayerNames()).
func (p *Problem) LabelledLayerCount() int { return p.nbLabelledLayers }

// PositionsWithNoCandidates returns one zero-sized position per feature that
// produced no candidate, at the feature's representative point.
func (p *Problem) PositionsWithNoCandidates() []*LabelPosition {
	return slices.Clone(p.positionsWithNoCandidates)
}

// Conflicts calls visit for every candidate conflicting with lp, stopping
// early when visit returns false.
func (p *Problem) Conflicts(lp *LabelPosition, visit func(*LabelPosition) bool) {
	for other := range p.index.Items(lp.bound) {
		if lp.isInConflict(other) && !visit(other) {
			return
		}
	}
}
