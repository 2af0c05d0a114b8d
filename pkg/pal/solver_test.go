package pal

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// row registers n over-point features spaced 3 units apart on y=50, so that
// each label of width 4 overlaps only its direct neighbours.
func row(t *testing.T, p *Pal, n int) {
	t.Helper()
	l := p.AddLayer(testProvider("row"), "row", OverPoint, 0.5, true, true, false)
	for i := range n {
		addPoints(t, l, 4, 2, orb.Point{20 + 3*float64(i), 50})
	}
}

func assertConflictFree(t *testing.T, labels []*LabelPosition) {
	t.Helper()
	seen := make(map[int]bool)
	for i, a := range labels {
		assert.False(t, seen[a.FeatureIndex()], "feature %d labeled twice", a.FeatureIndex())
		seen[a.FeatureIndex()] = true
		for _, b := range labels[i+1:] {
			assert.False(t, a.isInConflict(b), "labels %d and %d conflict", a.ID(), b.ID())
		}
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Solved, "solved"},
		{Canceled, "canceled"},
		{Empty, "empty"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestSolveNilProblem(t *testing.T) {
	out := New().SolveProblem(nil, false)
	assert.Equal(t, Empty, out.Status)
	assert.Empty(t, out.Solution.Labels)
}

func TestSolveFarApartPoints(t *testing.T) {
	p := New()
	p.SetMaximumPointCandidates(4)
	l := p.AddLayer(testProvider("a"), "a", AroundPoint, 0.5, true, true, false)
	addPoints(t, l, 4, 2, orb.Point{10, 10}, orb.Point{50, 50}, orb.Point{90, 90})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	assert.Equal(t, 3, prob.FeatureCount())
	assert.Equal(t, 12, prob.CandidateCount())
	assert.Zero(t, prob.OverlapCount())

	out := p.SolveProblem(prob, false)
	require.Equal(t, Solved, out.Status)
	require.Len(t, out.Solution.Labels, 3)
	assert.Empty(t, out.Solution.Unplaced)
	for i, lp := range out.Solution.Labels {
		// Every feature keeps its cheapest candidate.
		assert.Same(t, prob.FeatureCandidates(i)[0], lp)
	}
}

func TestSolveTwoOverlappingPoints(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
	addPoints(t, l, 4, 2, orb.Point{50, 50}, orb.Point{51, 50})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	require.Equal(t, 2, prob.FeatureCount())
	assert.Equal(t, 1, prob.OverlapCount())

	out := p.SolveProblem(prob, false)
	require.Equal(t, Solved, out.Status)
	assert.Len(t, out.Solution.Labels, 1)
	assert.Len(t, out.Solution.Unplaced, 1)
	assert.Zero(t, out.Solution.Overlaps)
	assert.InDelta(t, pointCost+inactiveCost(0.5), out.Solution.Cost, 1e-9)

	all := p.SolveProblem(prob, true)
	require.Equal(t, Solved, all.Status)
	assert.Len(t, all.Solution.Labels, 2)
	assert.Empty(t, all.Solution.Unplaced)
	assert.Equal(t, 1, all.Solution.Overlaps)
}

func TestSolveLayerDisplayAll(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, true)
	addPoints(t, l, 4, 2, orb.Point{50, 50}, orb.Point{51, 50})

	out := p.SolveProblem(p.ExtractProblem(extent100(), nil), false)
	require.Equal(t, Solved, out.Status)
	assert.Len(t, out.Solution.Labels, 2)
}

func TestSolveKeepsMoreImportantFeature(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
	// The less important feature comes first so the greedy start picks it.
	require.NoError(t, l.RegisterFeature(Feature{ID: "minor", Geometry: orb.Point{50, 50}, Width: 4, Height: 2, Priority: 0.8}))
	require.NoError(t, l.RegisterFeature(Feature{ID: "major", Geometry: orb.Point{51, 50}, Width: 4, Height: 2, Priority: 0.2}))

	out := p.SolveProblem(p.ExtractProblem(extent100(), nil), false)
	require.Equal(t, Solved, out.Status)
	require.Len(t, out.Solution.Labels, 1)
	assert.Equal(t, "major", out.Solution.Labels[0].Part().Feature().ID)
	require.Len(t, out.Solution.Unplaced, 1)
	assert.Equal(t, "minor", out.Solution.Unplaced[0].Part().Feature().ID)
}

func TestSolveFeatureOutsideBoundary(t *testing.T) {
	for _, partial := range []bool{true, false} {
		t.Run(fmt.Sprintf("partial=%v", partial), func(t *testing.T) {
			p := New()
			p.SetShowPartialLabels(partial)
			l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
			addPoints(t, l, 4, 2, orb.Point{80, 80})

			prob := p.ExtractProblem(extent100(), square(0, 0, 50, 50))
			require.NotNil(t, prob)
			assert.Zero(t, prob.FeatureCount())

			out := p.SolveProblem(prob, false)
			assert.Equal(t, Empty, out.Status)
			assert.Empty(t, out.Solution.Labels)
			assert.Len(t, out.Solution.Unplaced, 1)
		})
	}
}

func TestSolveLabelsSharingAnEdgeConflict(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
	// Boxes [28,32] and [32,36] meet along x=32.
	addPoints(t, l, 4, 2, orb.Point{30, 50}, orb.Point{34, 50})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	require.Equal(t, 2, prob.FeatureCount())
	a, b := prob.Candidate(0), prob.Candidate(1)
	require.True(t, a.isInConflict(b))
	assert.Equal(t, 1, prob.OverlapCount())
	assert.Equal(t, 1, a.Overlaps())

	var conflicts []*LabelPosition
	prob.Conflicts(a, func(other *LabelPosition) bool {
		conflicts = append(conflicts, other)
		return true
	})
	assert.Equal(t, []*LabelPosition{b}, conflicts)

	out := p.SolveProblem(prob, false)
	require.Equal(t, Solved, out.Status)
	assert.Len(t, out.Solution.Labels, 1)
	assert.Len(t, out.Solution.Unplaced, 1)
	assert.Zero(t, out.Solution.Overlaps)

	all := p.SolveProblem(prob, true)
	assert.Equal(t, 1, all.Solution.Overlaps)
}

func TestSolveRow(t *testing.T) {
	tests := []struct {
		name   string
		radius int
	}{
		{"whole", DefaultPopmusicRadius},
		{"decomposed", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.SetPopmusicRadius(tt.radius)
			row(t, p, 20)

			prob := p.ExtractProblem(extent100(), nil)
			require.NotNil(t, prob)
			assert.Equal(t, 19, prob.OverlapCount())

			out := p.SolveProblem(prob, false)
			require.Equal(t, Solved, out.Status)
			assertConflictFree(t, out.Solution.Labels)
			assert.Len(t, out.Solution.Labels, 10)
			assert.Len(t, out.Solution.Unplaced, 10)
		})
	}
}

func TestSolveAroundPointsConflictFree(t *testing.T) {
	p := New()
	p.SetMaximumPointCandidates(8)
	p.SetPopmusicRadius(4)
	l := p.AddLayer(testProvider("a"), "a", AroundPoint, 0.5, true, true, false)
	for i := range 6 {
		for j := range 6 {
			addPoints(t, l, 4, 2, orb.Point{30 + 4*float64(i), 30 + 3*float64(j)})
		}
	}

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	out := p.SolveProblem(prob, false)
	require.Equal(t, Solved, out.Status)
	assertConflictFree(t, out.Solution.Labels)
	assert.Equal(t, prob.FeatureCount(), len(out.Solution.Labels)+len(out.Solution.Unplaced))
	assert.Positive(t, out.Solution.Iterations)
}

func TestSolverTracksObjective(t *testing.T) {
	p := New()
	p.SetMaximumPointCandidates(8)
	p.SetPopmusicRadius(5)
	l := p.AddLayer(testProvider("a"), "a", AroundPoint, 0.5, true, true, false)
	for i := range 12 {
		addPoints(t, l, 4, 2, orb.Point{30 + 2.5*float64(i), 50 + float64(i%3)})
	}
	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)

	sv := newSolver(prob, p.Settings(), func() bool { return false })
	require.True(t, sv.buildConflictGraph())
	sv.reduce()
	sv.initialSolution()
	initial := sv.cost
	require.False(t, sv.optimize())

	assert.InDelta(t, sv.objective(), sv.cost, 1e-6)
	assert.LessOrEqual(t, sv.cost, initial+1e-9)
}

func TestReduceFixesIsolatedFeatures(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
	addPoints(t, l, 4, 2, orb.Point{10, 10}, orb.Point{50, 50}, orb.Point{51, 50})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)

	sv := newSolver(prob, p.Settings(), func() bool { return false })
	require.True(t, sv.buildConflictGraph())
	sv.reduce()
	assert.Equal(t, []bool{true, false, false}, sv.fixed)
}

func TestSolveCanceled(t *testing.T) {
	p := New()
	row(t, p, 5)
	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)

	p.RegisterCancellationCallback(func(any) bool { return true }, nil)
	out := p.SolveProblem(prob, false)
	assert.Equal(t, Canceled, out.Status)
	assert.Empty(t, out.Solution.Labels)
}

func TestSolveDoesNotModifyProblem(t *testing.T) {
	p := New()
	row(t, p, 8)
	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)

	overlaps := make([]int, prob.CandidateCount())
	for i, lp := range prob.Candidates() {
		overlaps[i] = lp.Overlaps()
	}
	first := p.SolveProblem(prob, false)
	second := p.SolveProblem(prob, false)

	for i, lp := range prob.Candidates() {
		assert.Equal(t, overlaps[i], lp.Overlaps())
	}
	assert.Equal(t, first.Solution.Labels, second.Solution.Labels)
	assert.InDelta(t, first.Solution.Cost, second.Solution.Cost, 1e-12)
}

func TestCandidateQueue(t *testing.T) {
	keys := []int{5, 3, 8, 1, 9}
	q := newCandidateQueue(len(keys), func(a, b int) bool { return keys[a] < keys[b] })
	for id := range keys {
		q.insert(id)
	}

	q.remove(2)
	keys[4] = 0
	q.update(4)

	var got []int
	for q.Len() > 0 {
		got = append(got, q.popMin())
	}
	assert.Equal(t, []int{4, 3, 1, 0}, got)
	assert.False(t, q.contains(0))
}
