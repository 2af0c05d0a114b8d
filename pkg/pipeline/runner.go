package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labelpal/pkg/cache"
	labelio "github.com/matzehuels/labelpal/pkg/io"
	"github.com/matzehuels/labelpal/pkg/observability"
	"github.com/matzehuels/labelpal/pkg/pal"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching behaves the same everywhere.
//
// The Runner is stateless except for the cache and logger. Every run builds
// its own engine, so multiple goroutines can safely share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Placement is the outcome of the place stage.
type Placement struct {
	Result   *labelio.Result
	Problem  *pal.Problem
	Solution pal.Solution
}

// Execute runs the complete load → place → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	sources, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Sources = sources
	result.Stats.Layers = len(sources)
	for _, s := range sources {
		result.Stats.Features += s.Provider.Len()
	}
	result.InputHash, err = InputHash(opts.Project, sources)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	// Stage 2: Place
	placeStart := time.Now()
	placement, placeHit, err := r.PlaceWithCacheInfo(ctx, opts, sources, result.InputHash)
	if err != nil {
		return nil, fmt.Errorf("place: %w", err)
	}
	result.Placement = placement.Result
	result.Problem = placement.Problem
	result.Solution = placement.Solution
	result.Stats.PlaceTime = time.Since(placeStart)
	result.CacheInfo.PlaceHit = placeHit

	r.Logger.Info("placed labels",
		"status", placement.Result.Status,
		"labels", len(placement.Result.Labels),
		"unplaced", len(placement.Result.Unplaced),
		"cached", placeHit,
		"duration", result.Stats.PlaceTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"kind", opts.Kind,
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads every project layer and reports the load to the pipeline hooks.
func (r *Runner) Load(ctx context.Context, opts Options) ([]Source, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, len(opts.Project.Layers))

	start := time.Now()
	sources, err := Load(ctx, opts)
	features := 0
	for _, s := range sources {
		features += s.Provider.Len()
	}
	hooks.OnLoadComplete(ctx, len(sources), features, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("loaded layers",
		"layers", len(sources),
		"features", features,
		"duration", time.Since(start))
	return sources, nil
}

// PlaceWithCacheInfo builds the engine and solves the placement, serving it
// from the cache when possible. The conflicts kind always solves, since it
// needs the extracted problem.
func (r *Runner) PlaceWithCacheInfo(ctx context.Context, opts Options, sources []Source, inputHash string) (Placement, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Placement{}, false, err
	}

	cacheKey := r.Keyer.ResultKey(inputHash, opts.ResultKeyOpts())
	if !opts.Refresh && opts.Kind != KindConflicts {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if res, err := labelio.ReadJSON(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, "result")
				return Placement{Result: res}, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "result")
	}

	placement, err := r.Place(ctx, opts, sources)
	if err != nil {
		return Placement{}, false, err
	}

	var buf bytes.Buffer
	if err := labelio.WriteJSON(placement.Result, &buf); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, buf.Bytes(), cache.TTLResult); err == nil {
			observability.Cache().OnCacheSet(ctx, "result", buf.Len())
		} else {
			r.Logger.Warn("cache write failed", "error", err)
		}
	}
	return placement, false, nil
}

// Place builds the engine for sources and solves it without the cache.
func (r *Runner) Place(ctx context.Context, opts Options, sources []Source) (Placement, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Placement{}, err
	}

	engine, n, err := Build(opts.Project, sources, opts.Logger)
	if err != nil {
		return Placement{}, err
	}
	extent, err := Extent(opts.Project, sources)
	if err != nil {
		return Placement{}, err
	}
	r.Logger.Debug("built engine", "layers", len(sources), "features", n, "extent", extent)

	prob, out, err := Place(ctx, engine, extent, opts.Project.DisplayAll)
	if err != nil {
		return Placement{}, err
	}
	if prob != nil {
		r.Logger.Debug("extracted problem",
			"features", prob.FeatureCount(),
			"candidates", prob.CandidateCount(),
			"overlaps", prob.OverlapCount())
	}
	return Placement{
		Result:   labelio.FromOutcome(prob, out, extent),
		Problem:  prob,
		Solution: out.Solution,
	}, nil
}

// RenderWithCacheInfo renders the requested artifacts of result, serving
// them from the cache when every format is cached.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, result *Result, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := labelio.WriteJSON(result.Placement, &buf); err != nil {
		return nil, false, fmt.Errorf("serialize result for cache key: %w", err)
	}
	resultHash := cache.Hash(append([]byte(result.InputHash), buf.Bytes()...))

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(resultHash, opts.ArtifactKeyOpts(format)))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	start := time.Now()
	var rendered map[string][]byte
	var err error
	switch opts.Kind {
	case KindConflicts:
		rendered, err = RenderConflicts(ctx, result.Problem, result.Solution, opts)
	default:
		rendered, err = RenderPreview(result.Placement, result.Sources, opts)
	}
	observability.Pipeline().OnRenderComplete(ctx, opts.Kind, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(resultHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
