package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/labelpal/pkg/cache"
	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/httputil"
	"github.com/matzehuels/labelpal/pkg/provider/geojson"
)

// Source is a project layer together with its loaded features.
type Source struct {
	Layer    config.Layer
	Provider *geojson.Provider
}

// Load reads every project layer. Sources are read concurrently; the
// returned slice keeps project order.
func Load(ctx context.Context, opts Options) ([]Source, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	client := opts.Client
	if opts.Refresh && client != nil {
		client = client.Refreshing()
	}

	sources := make([]Source, len(opts.Project.Layers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentLoads)
	for i, l := range opts.Project.Layers {
		g.Go(func() error {
			prov, err := loadLayer(gctx, opts, client, l)
			if err != nil {
				return fmt.Errorf("layer %q: %w", l.Name, err)
			}
			sources[i] = Source{Layer: l, Provider: prov}
			opts.Logger.Debug("loaded layer", "layer", l.Name, "features", prov.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func loadLayer(ctx context.Context, opts Options, client *httputil.Client, l config.Layer) (*geojson.Provider, error) {
	if data, ok := opts.Inline[l.Name]; ok {
		return geojson.Parse(l.Name, l.Source, data, l.Properties)
	}
	return geojson.Load(ctx, l.Name, opts.Project.ResolveSource(l), client, l.Properties)
}

// InputHash identifies a set of loaded sources under a project. It covers
// layer data, layer configuration and the project extent; engine settings
// are part of the result key instead.
func InputHash(p *config.Project, sources []Source) (string, error) {
	type layerInput struct {
		Layer config.Layer    `json:"layer"`
		Data  json.RawMessage `json:"data"`
	}
	inputs := make([]layerInput, 0, len(sources))
	for _, s := range sources {
		data, err := s.Provider.Collection().MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("hash layer %q: %w", s.Layer.Name, err)
		}
		inputs = append(inputs, layerInput{Layer: s.Layer, Data: data})
	}
	data, err := json.Marshal(struct {
		Extent     []float64    `json:"extent"`
		DisplayAll bool         `json:"display_all"`
		Layers     []layerInput `json:"layers"`
	}{p.Extent, p.DisplayAll, inputs})
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
