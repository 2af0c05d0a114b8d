// Package geojson provides label features read from GeoJSON
// FeatureCollections.
//
// A [Provider] wraps one collection. It satisfies [pal.Provider], so it can be
// handed to [pal.Pal.AddLayer], and [Provider.Register] fills the returned
// layer with one [pal.Feature] per GeoJSON feature:
//
//	prov, err := geojson.Load(ctx, "cities", "data/cities.geojson", nil, geojson.Options{})
//	layer := engine.AddLayer(prov, "cities", pal.AroundPoint, 0.5, true, true, false)
//	n, skipped, err := prov.Register(layer)
//
// Label sizes are estimated from the text: width is the rune count times
// CharWidth times FontSize, height is FontSize.
package geojson

import (
	"context"
	stderrors "errors"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/labelpal/pkg/errors"
	"github.com/matzehuels/labelpal/pkg/httputil"
	"github.com/matzehuels/labelpal/pkg/pal"
)

// Default property names and text metrics.
const (
	DefaultTextProperty     = "name"
	DefaultPriorityProperty = "priority"
	DefaultObstacleProperty = "obstacle"
	DefaultFontSize         = 10.0
	DefaultCharWidth        = 0.6
)

// Options control how GeoJSON properties become label features.
type Options struct {
	// TextProperty holds the label text.
	TextProperty string `toml:"text_property" json:"text_property,omitempty"`
	// PriorityProperty holds a number in [0,1]; missing means layer default.
	PriorityProperty string `toml:"priority_property" json:"priority_property,omitempty"`
	// ObstacleProperty holds a boolean overriding Obstacle per feature.
	ObstacleProperty string `toml:"obstacle_property" json:"obstacle_property,omitempty"`

	// FontSize is the label height in map units.
	FontSize float64 `toml:"font_size" json:"font_size,omitempty"`
	// CharWidth is the average glyph width as a fraction of FontSize.
	CharWidth float64 `toml:"char_width" json:"char_width,omitempty"`

	// Obstacle marks every feature as an obstacle unless overridden.
	Obstacle       bool    `toml:"obstacle" json:"obstacle,omitempty"`
	ObstacleFactor float64 `toml:"obstacle_factor" json:"obstacle_factor,omitempty"`
	Distance       float64 `toml:"distance" json:"distance,omitempty"`
	RepeatDistance float64 `toml:"repeat_distance" json:"repeat_distance,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.TextProperty == "" {
		o.TextProperty = DefaultTextProperty
	}
	if o.PriorityProperty == "" {
		o.PriorityProperty = DefaultPriorityProperty
	}
	if o.ObstacleProperty == "" {
		o.ObstacleProperty = DefaultObstacleProperty
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	if o.CharWidth <= 0 {
		o.CharWidth = DefaultCharWidth
	}
	return o
}

// Provider is a GeoJSON FeatureCollection exposed as a label provider.
type Provider struct {
	name       string
	source     string
	collection *geojson.FeatureCollection
	opts       Options
}

// Parse decodes data as a FeatureCollection. source identifies the document
// and, with name, makes up the provider identity.
func Parse(name, source string, data []byte, opts Options) (*Provider, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "layer %q: invalid GeoJSON", name)
	}
	return New(name, source, fc, opts), nil
}

// New wraps an already decoded collection.
func New(name, source string, fc *geojson.FeatureCollection, opts Options) *Provider {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	return &Provider{name: name, source: source, collection: fc, opts: opts.withDefaults()}
}

// Load reads a collection from a local path or an http(s) URL. Remote
// documents are fetched through client; a nil client uses httputil defaults.
func Load(ctx context.Context, name, src string, client *httputil.Client, opts Options) (*Provider, error) {
	if err := errors.ValidateSource(src); err != nil {
		return nil, err
	}
	data, err := read(ctx, src, client)
	if err != nil {
		return nil, err
	}
	return Parse(name, src, data, opts)
}

func read(ctx context.Context, src string, client *httputil.Client) ([]byte, error) {
	if errors.IsRemote(src) {
		if client == nil {
			client = httputil.NewClient()
		}
		data, err := client.Fetch(ctx, src, false)
		switch {
		case err == nil:
			return data, nil
		case stderrors.Is(err, httputil.ErrNotFound):
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "layer source %s not found", src)
		case stderrors.Is(err, context.Canceled):
			return nil, errors.Wrap(errors.ErrCodeCanceled, err, "fetch %s canceled", src)
		case stderrors.Is(err, context.DeadlineExceeded):
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s timed out", src)
		default:
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", src)
		}
	}

	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "layer file %s not found", src)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", src)
	}
	return data, nil
}

// ProviderID implements pal.Provider.
func (p *Provider) ProviderID() string { return "geojson:" + p.name + ":" + p.source }

// Name returns the layer name the provider was created with.
func (p *Provider) Name() string { return p.name }

// Source returns the path or URL the collection came from.
func (p *Provider) Source() string { return p.source }

// Len returns the number of GeoJSON features.
func (p *Provider) Len() int { return len(p.collection.Features) }

// Collection returns the wrapped FeatureCollection.
func (p *Provider) Collection() *geojson.FeatureCollection { return p.collection }

// Bound returns the union of all feature bounds and false when no feature
// has a geometry.
func (p *Provider) Bound() (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, f := range p.collection.Features {
		if f.Geometry == nil {
			continue
		}
		if !found {
			b, found = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b, found
}

// Features converts the collection. Features without geometry are dropped.
func (p *Provider) Features() []pal.Feature {
	out := make([]pal.Feature, 0, len(p.collection.Features))
	for i, f := range p.collection.Features {
		if f.Geometry == nil {
			continue
		}
		out = append(out, p.feature(i, f))
	}
	return out
}

func (p *Provider) feature(i int, f *geojson.Feature) pal.Feature {
	text := labelText(f.Properties[p.opts.TextProperty])
	w, h := p.LabelSize(text)

	priority := pal.LayerPriority
	if v, ok := f.Properties[p.opts.PriorityProperty]; ok {
		if n, ok := number(v); ok {
			priority = n
		}
	}

	obstacle := p.opts.Obstacle
	if v, ok := f.Properties[p.opts.ObstacleProperty].(bool); ok {
		obstacle = v
	}

	return pal.Feature{
		ID:             featureID(i, f),
		Geometry:       f.Geometry,
		Text:           text,
		Width:          w,
		Height:         h,
		Priority:       priority,
		Obstacle:       obstacle,
		ObstacleFactor: p.opts.ObstacleFactor,
		RepeatDistance: p.opts.RepeatDistance,
		Distance:       p.opts.Distance,
	}
}

// LabelSize estimates the label box for text. Empty text has no size.
func (p *Provider) LabelSize(text string) (w, h float64) {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0, 0
	}
	return float64(n) * p.opts.CharWidth * p.opts.FontSize, p.opts.FontSize
}

// Register adds every feature to layer. Features the layer rejects for
// having no label text or an unusable geometry are skipped and counted;
// other registration errors stop the walk.
func (p *Provider) Register(layer *pal.Layer) (registered, skipped int, err error) {
	feats := p.Features()
	skipped = len(p.collection.Features) - len(feats)
	for _, f := range feats {
		err := layer.RegisterFeature(f)
		switch {
		case err == nil:
			registered++
		case stderrors.Is(err, pal.ErrInvalidLabelSize),
			stderrors.Is(err, pal.ErrNoGeometry),
			stderrors.Is(err, pal.ErrUnsupportedGeometry):
			skipped++
		default:
			return registered, skipped, errors.Wrap(errors.ErrCodeInvalidLayer, err, "layer %q", p.name)
		}
	}
	return registered, skipped, nil
}

func featureID(i int, f *geojson.Feature) string {
	switch id := f.ID.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	}
	return "#" + strconv.Itoa(i)
}

// labelText renders scalar property values; numbers label e.g. spot heights.
func labelText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

var _ pal.Provider = (*Provider)(nil)
