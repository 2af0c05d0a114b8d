package pipeline

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/labelpal/pkg/cache"
	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/errors"
	labelio "github.com/matzehuels/labelpal/pkg/io"
	"github.com/matzehuels/labelpal/pkg/provider/geojson"
)

const towns = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "id": "a", "geometry": {"type": "Point", "coordinates": [20, 20]}, "properties": {"name": "Alpha"}},
  {"type": "Feature", "id": "b", "geometry": {"type": "Point", "coordinates": [70, 60]}, "properties": {"name": "Beta"}}
]}`

const project = `
extent = [0.0, 0.0, 100.0, 100.0]

[[layers]]
name = "towns"
source = "towns.geojson"
arrangement = "around-point"

[layers.properties]
font_size = 4.0
`

func testOptions(t *testing.T) Options {
	t.Helper()
	p, err := config.Parse([]byte(project))
	require.NoError(t, err)
	return Options{
		Project: p,
		Inline:  map[string][]byte{"towns": []byte(towns)},
		Logger:  log.New(&bytes.Buffer{}),
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		kind    string
		format  string
		wantErr bool
	}{
		{KindPreview, "json", false},
		{KindPreview, "geojson", false},
		{KindPreview, "svg", false},
		{KindPreview, "png", false},
		{KindPreview, "pdf", false},
		{KindPreview, "dot", true},
		{KindConflicts, "dot", false},
		{KindConflicts, "svg", false},
		{KindConflicts, "json", true},
		{"heatmap", "svg", true},
		{KindPreview, "SVG", true}, // case-sensitive
		{KindPreview, "", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.kind, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q, %q) error = %v, wantErr %v", tt.kind, tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := testOptions(t)
	require.NoError(t, opts.ValidateAndSetDefaults())
	assert.Equal(t, KindPreview, opts.Kind)
	assert.Equal(t, []string{FormatJSON}, opts.Formats)
	assert.Equal(t, DefaultWidth, opts.Width)

	opts = testOptions(t)
	opts.Kind = KindConflicts
	require.NoError(t, opts.ValidateAndSetDefaults())
	assert.Equal(t, []string{FormatDOT}, opts.Formats)
}

func TestOptionsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"no project", func(o *Options) { o.Project = nil }},
		{"no layers", func(o *Options) { o.Project.Layers = nil }},
		{"bad format", func(o *Options) { o.Formats = []string{"gif"} }},
		{"bad kind", func(o *Options) { o.Kind = "heatmap" }},
		{"bad extent", func(o *Options) { o.Project.Extent = []float64{1, 2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.modify(&opts)
			assert.Error(t, opts.ValidateAndSetDefaults())
		})
	}
}

func TestExecute(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	runner := NewRunner(fc, nil, log.New(&bytes.Buffer{}))
	ctx := context.Background()

	opts := testOptions(t)
	opts.Formats = []string{FormatJSON, FormatGeoJSON, FormatSVG}
	first, err := runner.Execute(ctx, opts)
	require.NoError(t, err)
	assert.False(t, first.CacheInfo.PlaceHit)
	assert.False(t, first.CacheInfo.RenderHit)
	assert.NotNil(t, first.Problem)
	assert.Equal(t, 1, first.Stats.Layers)
	assert.Equal(t, 2, first.Stats.Features)
	assert.Len(t, first.InputHash, 64)

	assert.Equal(t, "solved", first.Placement.Status)
	assert.Len(t, first.Placement.Labels, 2)
	assert.Empty(t, first.Placement.Unplaced)

	res, err := labelio.ReadJSON(bytes.NewReader(first.Artifacts[FormatJSON]))
	require.NoError(t, err)
	assert.Equal(t, first.Placement, res)
	assert.Contains(t, string(first.Artifacts[FormatGeoJSON]), "FeatureCollection")
	assert.Contains(t, string(first.Artifacts[FormatSVG]), "Alpha")

	second, err := runner.Execute(ctx, testOptionsWithFormats(t, opts.Formats))
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.PlaceHit)
	assert.True(t, second.CacheInfo.RenderHit)
	assert.Nil(t, second.Problem)
	assert.Equal(t, first.Placement, second.Placement)
	assert.Equal(t, first.Artifacts, second.Artifacts)

	refresh := testOptionsWithFormats(t, opts.Formats)
	refresh.Refresh = true
	third, err := runner.Execute(ctx, refresh)
	require.NoError(t, err)
	assert.False(t, third.CacheInfo.PlaceHit)
	assert.False(t, third.CacheInfo.RenderHit)
}

func testOptionsWithFormats(t *testing.T, formats []string) Options {
	opts := testOptions(t)
	opts.Formats = formats
	return opts
}

func TestExecuteSettingsChangeKey(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	runner := NewRunner(fc, nil, nil)
	ctx := context.Background()

	_, err = runner.Execute(ctx, testOptions(t))
	require.NoError(t, err)

	opts := testOptions(t)
	opts.Project.Engine.MaxPointCandidates = 4
	res, err := runner.Execute(ctx, opts)
	require.NoError(t, err)
	assert.False(t, res.CacheInfo.PlaceHit)
}

func TestExecuteConflicts(t *testing.T) {
	runner := NewRunner(nil, nil, log.New(&bytes.Buffer{}))
	opts := testOptions(t)
	opts.Kind = KindConflicts
	opts.Detailed = true

	res, err := runner.Execute(context.Background(), opts)
	require.NoError(t, err)
	dot := string(res.Artifacts[FormatDOT])
	assert.True(t, strings.HasPrefix(dot, "graph G {"))
	assert.Contains(t, dot, "layer: towns")
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(nil, nil, log.New(&bytes.Buffer{}))
	_, err := runner.Execute(ctx, testOptions(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCanceled), "got %v", err)
}

func TestExecuteMissingFile(t *testing.T) {
	runner := NewRunner(nil, nil, log.New(&bytes.Buffer{}))
	opts := testOptions(t)
	opts.Inline = nil
	opts.Project.Layers[0].Source = t.TempDir() + "/missing.geojson"

	_, err := runner.Execute(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)
}

func TestExtent(t *testing.T) {
	prov, err := geojson.Parse("towns", "x", []byte(towns), geojson.Options{})
	require.NoError(t, err)
	sources := []Source{{Layer: config.Layer{Name: "towns"}, Provider: prov}}

	p := config.Default()
	b, err := Extent(p, sources)
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{20, 20}, Max: orb.Point{70, 60}}, b)

	p.Extent = []float64{0, 0, 10, 10}
	b, err = Extent(p, sources)
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Max: orb.Point{10, 10}}, b)

	_, err = Extent(config.Default(), []Source{{Provider: geojson.New("empty", "x", nil, geojson.Options{})}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestPad(t *testing.T) {
	b := pad(orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{5, 5}})
	assert.Equal(t, orb.Bound{Min: orb.Point{4.5, 4.5}, Max: orb.Point{5.5, 5.5}}, b)
}

func TestInputHash(t *testing.T) {
	opts := testOptions(t)
	sources, err := Load(context.Background(), opts)
	require.NoError(t, err)

	h1, err := InputHash(opts.Project, sources)
	require.NoError(t, err)
	h2, err := InputHash(opts.Project, sources)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	opts.Project.Extent = []float64{0, 0, 50, 50}
	h3, err := InputHash(opts.Project, sources)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
