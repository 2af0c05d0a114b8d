package pal

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addLine(t *testing.T, l *Layer, id, text string, repeat float64, ls orb.LineString) {
	t.Helper()
	require.NoError(t, l.RegisterFeature(Feature{
		ID:             id,
		Geometry:       ls,
		Text:           text,
		Width:          5,
		Height:         2,
		Priority:       LayerPriority,
		RepeatDistance: repeat,
	}))
}

// partIDs returns the feature ID of every extracted part, in problem order.
func partIDs(prob *Problem) []string {
	ids := make([]string, prob.FeatureCount())
	for i := range ids {
		ids[i] = prob.FeatureCandidates(i)[0].Part().Feature().ID
	}
	return ids
}

func rings(prob *Problem) []orb.Ring {
	out := make([]orb.Ring, 0, prob.CandidateCount())
	for _, lp := range prob.Candidates() {
		out = append(out, lp.Ring())
	}
	return out
}

func TestChopAtRepeatDistance(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("roads"), "roads", Line, 0.5, true, true, false)
	addLine(t, l, "main", "Main St", 20, orb.LineString{{10, 50}, {90, 50}})
	addLine(t, l, "lane", "Lane", 0, orb.LineString{{10, 20}, {90, 20}})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	// Chopped pieces are indexed after the unchopped line.
	assert.Equal(t, []string{"lane", "main", "main", "main", "main"}, partIDs(prob))
	for i := 1; i <= 4; i++ {
		length := planar.Length(prob.FeatureCandidates(i)[0].Part().Geometry().(orb.LineString))
		assert.InDelta(t, 20, length, 1e-9)
	}

	l.SetChopAtRepeatDistance(false)
	prob = p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	assert.Equal(t, []string{"main", "lane"}, partIDs(prob))
	assert.Equal(t, 2, l.FeatureCount())
}

func TestMergeConnectedLines(t *testing.T) {
	p := New()
	l := p.AddLayer(testProvider("rivers"), "rivers", Line, 0.5, true, true, false)
	addLine(t, l, "upper", "Elbe", 0, orb.LineString{{10, 50}, {50, 50}})
	addLine(t, l, "lower", "Elbe", 0, orb.LineString{{50, 50}, {90, 50}})
	addLine(t, l, "creek", "Creek", 0, orb.LineString{{90, 50}, {90, 90}})

	prob := p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	assert.Equal(t, []string{"upper", "lower", "creek"}, partIDs(prob))

	l.SetMergeConnectedLines(true)
	prob = p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	require.Equal(t, []string{"creek", "upper"}, partIDs(prob))
	merged := prob.FeatureCandidates(1)[0].Part().Geometry().(orb.LineString)
	assert.InDelta(t, 80, planar.Length(merged), 1e-9)

	// Registered features are untouched by merging.
	l.SetMergeConnectedLines(false)
	prob = p.ExtractProblem(extent100(), nil)
	require.NotNil(t, prob)
	assert.Equal(t, []string{"upper", "lower", "creek"}, partIDs(prob))
	assert.Equal(t, 3, l.FeatureCount())
}

func TestExtractWithLineProcessingIsRepeatable(t *testing.T) {
	for _, merge := range []bool{false, true} {
		name := "chop"
		if merge {
			name = "merge and chop"
		}
		t.Run(name, func(t *testing.T) {
			p := New()
			l := p.AddLayer(testProvider("lines"), "lines", Line, 0.5, true, true, false)
			l.SetMergeConnectedLines(merge)
			// 0.7 does not divide the line lengths evenly.
			for i, ls := range []orb.LineString{
				{{10, 50}, {30, 50.5}, {45, 48}},
				{{45, 48}, {60, 52}, {80, 50}},
			} {
				require.NoError(t, l.RegisterFeature(Feature{
					ID:             []string{"a", "b"}[i],
					Geometry:       ls,
					Text:           "X",
					Width:          0.4,
					Height:         0.2,
					Priority:       LayerPriority,
					RepeatDistance: 0.7,
				}))
			}

			first := p.ExtractProblem(extent100(), nil)
			require.NotNil(t, first)
			require.Greater(t, first.FeatureCount(), 2)
			for range 2 {
				again := p.ExtractProblem(extent100(), nil)
				require.NotNil(t, again)
				assert.Equal(t, first.FeatureCount(), again.FeatureCount())
				assert.Equal(t, partIDs(first), partIDs(again))
				assert.Equal(t, rings(first), rings(again))
			}
		})
	}
}
