// Package pal implements an automatic label placement engine.
//
// Given layers of map features (points, lines, polygons) and an extent, the
// engine generates candidate label positions for every feature, scores them
// against obstacles and the map boundary, and searches for a near-optimal
// conflict-free subset: as many labels as possible, important features first,
// no two labels overlapping.
//
// # Usage
//
//	engine := pal.New(pal.WithLogger(logger))
//	layer := engine.AddLayer(provider, "cities", pal.AroundPoint, 0.5, true, true, false)
//	layer.RegisterFeature(pal.Feature{ID: "1", Geometry: orb.Point{10, 20}, Text: "Utrecht", Width: 40, Height: 10})
//
//	problem := engine.ExtractProblem(extent, nil)
//	outcome := engine.SolveProblem(problem, false)
//	if outcome.Status == pal.Solved {
//	    for _, lp := range outcome.Solution.Labels { ... }
//	}
//
// # Lifecycle
//
// A [Pal] is an explicit registry: create one per rendering job when extents
// must be labeled concurrently with independent state. Extraction and solving
// never share candidates or indexes between calls, so a single Pal may serve
// several extents in sequence or in parallel.
//
// # Cancellation
//
// A predicate registered with [Pal.RegisterCancellationCallback] is polled at
// fixed checkpoints. When it reports true, ExtractProblem returns nil and
// SolveProblem returns a [Canceled] outcome; partially built structures are
// never returned.
package pal

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// Provider is the source of a layer's features. Providers are identified by
// ProviderID; a registry accepts each provider at most once.
type Provider interface {
	ProviderID() string
}

// CancelFunc reports whether in-flight work should stop. It receives the
// opaque context passed at registration.
type CancelFunc func(ctx any) bool

// Pal is the engine registry. It owns the registered layers and the tunables
// used for extraction and solving. All methods are safe for concurrent use.
type Pal struct {
	logger *log.Logger

	mu         sync.Mutex
	layers     map[LayerID]*Layer
	order      []LayerID
	byProvider map[string]LayerID
	nextID     LayerID

	settingsMu sync.RWMutex
	settings   Settings

	cancelMu  sync.RWMutex
	cancelFn  CancelFunc
	cancelCtx any
}

// Option configures a Pal.
type Option func(*Pal)

// WithLogger sets the logger used for extraction and solving diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(p *Pal) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSettings applies s through the validated setters.
func WithSettings(s Settings) Option {
	return func(p *Pal) { p.ApplySettings(s) }
}

// New returns an empty registry with default settings.
func New(opts ...Option) *Pal {
	p := &Pal{
		logger:     log.New(io.Discard),
		layers:     make(map[LayerID]*Layer),
		byProvider: make(map[string]LayerID),
		settings:   DefaultSettings(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Logger returns the engine's logger.
func (p *Pal) Logger() *log.Logger {
	return p.logger
}

// AddLayer registers a new layer backed by provider and returns it.
//
// Registering a provider that is already registered is a programming error
// and panics.
func (p *Pal) AddLayer(provider Provider, name string, arrangement Arrangement, defaultPriority float64, active, toLabel, displayAll bool) *Layer {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := provider.ProviderID()
	if _, ok := p.byProvider[key]; ok {
		panic(fmt.Sprintf("pal: provider %q is already registered", key))
	}

	p.nextID++
	l := newLayer(p, p.nextID, provider, name, arrangement, defaultPriority, active, toLabel, displayAll)
	p.layers[l.id] = l
	p.order = append(p.order, l.id)
	p.byProvider[key] = l.id

	p.logger.Debug("layer added", "layer", name, "id", l.id, "arrangement", arrangement)
	return l
}

// RemoveLayer unregisters layer and releases its features. A nil layer, or a
// layer that is not registered here, is ignored.
func (p *Pal) RemoveLayer(layer *Layer) {
	if layer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.layers[layer.id] != layer {
		return
	}
	delete(p.layers, layer.id)
	delete(p.byProvider, layer.provider.ProviderID())
	p.order = slices.DeleteFunc(p.order, func(id LayerID) bool { return id == layer.id })
	layer.release()

	p.logger.Debug("layer removed", "layer", layer.name, "id", layer.id)
}

// Layer returns the layer with the given handle.
func (p *Pal) Layer(id LayerID) (*Layer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.layers[id]
	return l, ok
}

// Layers returns the registered layers in registration order.
func (p *Pal) Layers() []*Layer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Layer, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.layers[id])
	}
	return out
}

// =============================================================================
// Cancellation
// =============================================================================

// RegisterCancellationCallback installs fn as the cancellation predicate,
// replacing any previous one. A nil fn disables cancellation.
func (p *Pal) RegisterCancellationCallback(fn CancelFunc, ctx any) {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()
	p.cancelFn = fn
	p.cancelCtx = ctx
}

// CancelWhenDone installs a cancellation predicate that fires once ctx is
// done.
func (p *Pal) CancelWhenDone(ctx context.Context) {
	p.RegisterCancellationCallback(func(c any) bool {
		return c.(context.Context).Err() != nil
	}, ctx)
}

func (p *Pal) isCanceled() bool {
	p.cancelMu.RLock()
	fn, ctx := p.cancelFn, p.cancelCtx
	p.cancelMu.RUnlock()
	return fn != nil && fn(ctx)
}
