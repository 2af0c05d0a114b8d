package pal

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addPoints(t *testing.T, l *Layer, w, h float64, pts ...orb.Point) {
	t.Helper()
	for _, pt := range pts {
		require.NoError(t, l.RegisterFeature(Feature{Geometry: pt, Width: w, Height: h, Priority: LayerPriority}))
	}
}

// mixedEngine registers a point, a line and a polygon layer.
func mixedEngine(t *testing.T) *Pal {
	t.Helper()
	p := New()

	points := p.AddLayer(testProvider("points"), "points", AroundPoint, 0.5, true, true, false)
	points.SetMaximumCandidates(4, 0, 0)
	addPoints(t, points, 4, 2, orb.Point{10, 10}, orb.Point{12, 11}, orb.Point{70, 20})

	lines := p.AddLayer(testProvider("lines"), "lines", Line, 0.5, true, true, false)
	lines.SetMaximumCandidates(0, 5, 0)
	require.NoError(t, lines.RegisterFeature(Feature{
		Geometry: orb.LineString{{10, 50}, {90, 50}},
		Width:    10,
		Height:   2,
	}))

	areas := p.AddLayer(testProvider("areas"), "areas", Horizontal, 0.5, true, true, false)
	areas.SetMaximumCandidates(0, 0, 6)
	require.NoError(t, areas.RegisterFeature(Feature{
		Geometry: square(20, 60, 80, 95),
		Width:    10,
		Height:   4,
	}))
	return p
}

func TestExtractCandidateCountsAndIDs(t *testing.T) {
	p := mixedEngine(t)
	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	require.Equal(t, 5, prob.FeatureCount())

	limits := []int{4, 4, 4, 5, 6}
	next := 0
	total := 0
	for i := range prob.FeatureCount() {
		n := prob.FeatureCandidateCount(i)
		assert.GreaterOrEqual(t, n, 1, "feature %d", i)
		assert.LessOrEqual(t, n, limits[i], "feature %d", i)
		assert.Equal(t, next, prob.FeatureStartID(i), "feature %d", i)

		for j, lp := range prob.FeatureCandidates(i) {
			assert.Equal(t, next+j, lp.ID())
			assert.Equal(t, i, lp.FeatureIndex())
			assert.GreaterOrEqual(t, lp.Cost(), 0.0)
			assert.Less(t, lp.Cost(), 1.0)
		}
		next += n
		total += n
	}
	assert.Equal(t, total, prob.CandidateCount())
	assert.Equal(t, []string{"points", "lines", "areas"}, prob.LayerNames())
	assert.Equal(t, 3, prob.LabelledLayerCount())
}

func TestExtractOverlapsAreSymmetric(t *testing.T) {
	p := mixedEngine(t)
	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)

	sum := 0
	for _, lp := range prob.Candidates() {
		sum += lp.Overlaps()

		n := 0
		prob.Conflicts(lp, func(*LabelPosition) bool {
			n++
			return true
		})
		assert.Equal(t, lp.Overlaps(), n)
	}
	assert.Zero(t, sum%2)
	assert.Equal(t, sum/2, prob.OverlapCount())
	// The two nearby points cannot avoid each other on every candidate.
	assert.Positive(t, prob.OverlapCount())
}

func TestExtractIsRepeatable(t *testing.T) {
	p := mixedEngine(t)
	first := p.ExtractProblem(extent100(), nil)
	second := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, first)
	require.NotNil(t, second)

	require.Equal(t, first.CandidateCount(), second.CandidateCount())
	assert.Equal(t, first.OverlapCount(), second.OverlapCount())
	for i, lp := range first.Candidates() {
		other := second.Candidate(i)
		assert.InDelta(t, lp.Cost(), other.Cost(), 1e-12)
		assert.Equal(t, lp.Ring(), other.Ring())
	}
}

func TestExtractSkipsInactiveLayers(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, false, true, false)
	addPoints(t, l, 4, 2, orb.Point{50, 50})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	assert.Zero(t, prob.FeatureCount())
	assert.Empty(t, prob.LayerNames())

	l.SetActive(true)
	prob = p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	assert.Equal(t, 1, prob.FeatureCount())
}

func TestExtractBoundary(t *testing.T) {
	half := square(0, 0, 50, 50)

	tests := []struct {
		name      string
		partial   bool
		point     orb.Point
		wantFeats int
	}{
		{"inside", true, orb.Point{25, 25}, 1},
		{"outside", true, orb.Point{80, 80}, 0},
		{"straddling shown", true, orb.Point{50, 25}, 1},
		{"straddling hidden", false, orb.Point{50, 25}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.SetShowPartialLabels(tt.partial)
			l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
			addPoints(t, l, 4, 2, tt.point)

			prob := p.ExtractProblem(extent100(), half)
			require.NotNil(t, prob)
			assert.Equal(t, tt.wantFeats, prob.FeatureCount())
			assert.Len(t, prob.PositionsWithNoCandidates(), 1-tt.wantFeats)
		})
	}
}

func TestExtractUnplacedPositionIsZeroSized(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
	addPoints(t, l, 4, 2, orb.Point{80, 80})

	prob := p.ExtractProblem(extent100(), square(0, 0, 50, 50))
	require.NotNil(t, prob)
	unplaced := prob.PositionsWithNoCandidates()
	require.Len(t, unplaced, 1)
	assert.Zero(t, unplaced[0].Width())
	assert.Zero(t, unplaced[0].Height())
	assert.Equal(t, orb.Point{80, 80}, orb.Point{unplaced[0].X(), unplaced[0].Y()})
}

func TestExtractCanceled(t *testing.T) {
	p := mixedEngine(t)
	p.RegisterCancellationCallback(func(any) bool { return true }, nil)
	assert.Nil(t, p.ExtractProblem(extent100(), nil))

	p.RegisterCancellationCallback(nil, nil)
	assert.NotNil(t, p.ExtractProblem(extent100(), nil))
}

func TestExtractObstacles(t *testing.T) {
	setup := func(t *testing.T, version PlacementVersion, priority float64) *Problem {
		t.Helper()
		p := New()
		p.SetPlacementVersion(version)
		labels := p.AddLayer(testProvider("labels"), "labels", OverPoint, 0.5, true, true, false)
		require.NoError(t, labels.RegisterFeature(Feature{
			Geometry: orb.Point{50, 50},
			Width:    4,
			Height:   2,
			Priority: priority,
		}))
		obstacles := p.AddLayer(testProvider("obstacles"), "obstacles", OverPoint, 0.5, true, false, false)
		require.NoError(t, obstacles.RegisterFeature(Feature{Geometry: orb.Point{51, 50}, Obstacle: true}))

		prob := p.ExtractProblem(extent100(), nil)
		require.NotNil(t, prob)
		return prob
	}

	t.Run("v1 keeps penalized candidate", func(t *testing.T) {
		prob := setup(t, PlacementV1, 0.9)
		require.Equal(t, 1, prob.FeatureCount())
		lp := prob.Candidate(0)
		assert.True(t, lp.ConflictsWithObstacle())
		assert.InDelta(t, 0.0021, lp.Cost(), 1e-9)
	})

	t.Run("v2 drops hard conflicts", func(t *testing.T) {
		prob := setup(t, PlacementV2, 0.9)
		assert.Zero(t, prob.FeatureCount())
		assert.Len(t, prob.PositionsWithNoCandidates(), 1)
	})

	t.Run("v2 keeps important labels", func(t *testing.T) {
		prob := setup(t, PlacementV2, 0)
		require.Equal(t, 1, prob.FeatureCount())
		assert.False(t, prob.Candidate(0).HasHardObstacleConflict())
		assert.True(t, prob.Candidate(0).ConflictsWithObstacle())
	})
}

func TestExtractFeatureIsNotItsOwnObstacle(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("a"), "a", OverPoint, 0.5, true, true, false)
	require.NoError(t, l.RegisterFeature(Feature{
		Geometry: orb.Point{50, 50},
		Width:    4,
		Height:   2,
		Obstacle: true,
	}))

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	require.Equal(t, 1, prob.FeatureCount())
	assert.False(t, prob.Candidate(0).ConflictsWithObstacle())
	assert.InDelta(t, pointCost, prob.Candidate(0).Cost(), 1e-12)
	assert.Equal(t, []string{"a"}, prob.LayerNames())
}
