package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/errors"
	"github.com/matzehuels/labelpal/pkg/observability"
	"github.com/matzehuels/labelpal/pkg/pal"
)

// Build creates an engine with the project settings and registers every
// source as a layer. It returns the number of registered features.
func Build(p *config.Project, sources []Source, logger *log.Logger) (*pal.Pal, int, error) {
	engine := pal.New(pal.WithLogger(logger), pal.WithSettings(p.Engine))

	total := 0
	for _, s := range sources {
		l := s.Layer
		layer := engine.AddLayer(s.Provider, l.Name, l.Arrangement, l.PriorityOrDefault(), l.IsActive(), l.IsLabeled(), l.DisplayAll)
		layer.SetMergeConnectedLines(l.MergeLines)
		layer.SetChopAtRepeatDistance(l.ChopsLines())
		if l.MaxPointCandidates > 0 || l.MaxLineCandidates > 0 || l.MaxPolygonCandidates > 0 {
			layer.SetMaximumCandidates(l.MaxPointCandidates, l.MaxLineCandidates, l.MaxPolygonCandidates)
		}

		n, skipped, err := s.Provider.Register(layer)
		if err != nil {
			return nil, 0, fmt.Errorf("layer %q: %w", l.Name, err)
		}
		if skipped > 0 {
			logger.Debug("skipped features", "layer", l.Name, "skipped", skipped)
		}
		total += n
	}
	return engine, total, nil
}

// Extent returns the configured project extent, or the union of all source
// bounds when the project sets none.
func Extent(p *config.Project, sources []Source) (orb.Bound, error) {
	if b, ok := p.ExtentBound(); ok {
		return b, nil
	}
	var (
		extent orb.Bound
		found  bool
	)
	for _, s := range sources {
		b, ok := s.Provider.Bound()
		if !ok {
			continue
		}
		if !found {
			extent, found = b, true
			continue
		}
		extent = extent.Union(b)
	}
	if !found {
		return orb.Bound{}, errors.New(errors.ErrCodeInvalidInput, "no extent configured and no layer has geometry")
	}
	return pad(extent), nil
}

// pad grows a degenerate extent to at least one unit per axis.
func pad(b orb.Bound) orb.Bound {
	const minSize = 1.0
	if b.Max[0]-b.Min[0] < minSize {
		b.Min[0] -= minSize / 2
		b.Max[0] += minSize / 2
	}
	if b.Max[1]-b.Min[1] < minSize {
		b.Min[1] -= minSize / 2
		b.Max[1] += minSize / 2
	}
	return b
}

// Place extracts the problem for extent and solves it. The engine stops
// extraction and search once ctx is done; that is reported as a CANCELED
// error.
func Place(ctx context.Context, engine *pal.Pal, extent orb.Bound, displayAll bool) (*pal.Problem, pal.Outcome, error) {
	engine.CancelWhenDone(ctx)
	hooks := observability.Pipeline()

	start := time.Now()
	prob := engine.ExtractProblem(extent, nil)
	if prob == nil && ctx.Err() != nil {
		err := errors.Wrap(errors.ErrCodeCanceled, ctx.Err(), "extraction canceled")
		hooks.OnExtractComplete(ctx, 0, 0, 0, time.Since(start), err)
		return nil, pal.Outcome{Status: pal.Canceled}, err
	}
	if prob != nil {
		hooks.OnExtractComplete(ctx, prob.FeatureCount(), prob.CandidateCount(), prob.OverlapCount(), time.Since(start), nil)
	} else {
		hooks.OnExtractComplete(ctx, 0, 0, 0, time.Since(start), nil)
	}

	start = time.Now()
	out := engine.SolveProblem(prob, displayAll)
	hooks.OnSolveComplete(ctx, out.Status.String(), len(out.Solution.Labels), len(out.Solution.Unplaced), time.Since(start))
	if out.Status == pal.Canceled {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return prob, out, errors.Wrap(errors.ErrCodeCanceled, cause, "solve canceled")
	}
	return prob, out, nil
}
