package io

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/pal"
)

// Result is the serializable form of a placement run.
type Result struct {
	Status     string     `json:"status"`
	Extent     [4]float64 `json:"extent"`
	Labels     []Label    `json:"labels"`
	Unplaced   []Label    `json:"unplaced"`
	Cost       float64    `json:"cost"`
	Overlaps   int        `json:"overlaps"`
	Iterations int        `json:"iterations"`
	Stats      Stats      `json:"stats"`
}

// Stats summarizes the extracted problem.
type Stats struct {
	Layers     []string `json:"layers"`
	Features   int      `json:"features"`
	Candidates int      `json:"candidates"`
	Overlaps   int      `json:"overlaps"`
}

// Label is one placed or unplaced label rectangle.
type Label struct {
	Layer     string   `json:"layer"`
	FeatureID string   `json:"feature_id,omitempty"`
	Text      string   `json:"text"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Angle     float64  `json:"angle"`
	Cost      float64  `json:"cost"`
	Ring      orb.Ring `json:"ring"`
}

// Placed reports whether the label has a size. Features that produced no
// candidate are reported as zero-sized labels at a representative point.
func (l Label) Placed() bool { return l.Width > 0 && l.Height > 0 }

// FromOutcome converts a solver outcome. prob may be nil when extraction
// produced nothing; extent is then taken from the caller.
func FromOutcome(prob *pal.Problem, out pal.Outcome, extent orb.Bound) *Result {
	if prob != nil {
		extent = prob.Extent()
	}
	r := &Result{
		Status:     out.Status.String(),
		Extent:     [4]float64{extent.Min[0], extent.Min[1], extent.Max[0], extent.Max[1]},
		Labels:     labels(out.Solution.Labels),
		Unplaced:   labels(out.Solution.Unplaced),
		Cost:       out.Solution.Cost,
		Overlaps:   out.Solution.Overlaps,
		Iterations: out.Solution.Iterations,
		Stats:      Stats{Layers: []string{}},
	}
	if prob != nil {
		r.Stats = Stats{
			Layers:     prob.LayerNames(),
			Features:   prob.FeatureCount(),
			Candidates: prob.CandidateCount(),
			Overlaps:   prob.OverlapCount(),
		}
	}
	return r
}

// Bound returns the result extent.
func (r *Result) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Extent[0], r.Extent[1]},
		Max: orb.Point{r.Extent[2], r.Extent[3]},
	}
}

func labels(lps []*pal.LabelPosition) []Label {
	out := make([]Label, 0, len(lps))
	for _, lp := range lps {
		out = append(out, NewLabel(lp))
	}
	return out
}

// NewLabel describes a single candidate position.
func NewLabel(lp *pal.LabelPosition) Label {
	l := Label{
		X:      lp.X(),
		Y:      lp.Y(),
		Width:  lp.Width(),
		Height: lp.Height(),
		Angle:  lp.Angle(),
		Cost:   lp.Cost(),
		Ring:   lp.Ring(),
	}
	if part := lp.Part(); part != nil {
		f := part.Feature()
		l.FeatureID, l.Text = f.ID, f.Text
		if layer := part.Layer(); layer != nil {
			l.Layer = layer.Name()
		}
	}
	return l
}
