package geojson

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/labelpal/pkg/errors"
	"github.com/matzehuels/labelpal/pkg/httputil"
	"github.com/matzehuels/labelpal/pkg/pal"
)

const cities = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "ber", "geometry": {"type": "Point", "coordinates": [10, 10]},
     "properties": {"name": "Berlin", "priority": 0.1}},
    {"type": "Feature", "id": 7, "geometry": {"type": "Point", "coordinates": [50, 50]},
     "properties": {"name": "Köln", "obstacle": true}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [90, 90]},
     "properties": {"elevation": 312}}
  ]
}`

func TestParseFeatures(t *testing.T) {
	prov, err := Parse("cities", "cities.geojson", []byte(cities), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, prov.Len())

	feats := prov.Features()
	require.Len(t, feats, 3)

	assert.Equal(t, "ber", feats[0].ID)
	assert.Equal(t, "Berlin", feats[0].Text)
	assert.InDelta(t, 6*DefaultCharWidth*DefaultFontSize, feats[0].Width, 1e-9)
	assert.InDelta(t, DefaultFontSize, feats[0].Height, 1e-9)
	assert.InDelta(t, 0.1, feats[0].Priority, 1e-9)
	assert.False(t, feats[0].Obstacle)

	assert.Equal(t, "7", feats[1].ID)
	assert.InDelta(t, 4*DefaultCharWidth*DefaultFontSize, feats[1].Width, 1e-9, "width counts runes, not bytes")
	assert.Equal(t, pal.LayerPriority, feats[1].Priority, "missing priority uses the layer default")
	assert.True(t, feats[1].Obstacle)

	assert.Equal(t, "#2", feats[2].ID)
	assert.Empty(t, feats[2].Text)
	assert.Zero(t, feats[2].Width)
}

func TestOptions(t *testing.T) {
	prov, err := Parse("cities", "x", []byte(cities), Options{
		TextProperty: "elevation",
		FontSize:     20,
		CharWidth:    0.5,
		Obstacle:     true,
		Distance:     3,
	})
	require.NoError(t, err)

	feats := prov.Features()
	assert.Equal(t, "312", feats[2].Text)
	assert.InDelta(t, 3*0.5*20, feats[2].Width, 1e-9)
	assert.True(t, feats[0].Obstacle, "layer-wide obstacle flag")
	assert.Equal(t, 3.0, feats[0].Distance)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("bad", "bad.geojson", []byte(`{"type": "Feature"`), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestNewDropsEmptyGeometry(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 1}))
	fc.Append(&geojson.Feature{Type: "Feature", Properties: geojson.Properties{}})

	prov := New("x", "mem", fc, Options{})
	assert.Len(t, prov.Features(), 1)
	assert.Equal(t, 2, prov.Len())
}

func TestProviderID(t *testing.T) {
	a := New("roads", "a.geojson", nil, Options{})
	b := New("roads", "b.geojson", nil, Options{})
	assert.NotEqual(t, a.ProviderID(), b.ProviderID())
	assert.Equal(t, "roads", a.Name())
	assert.Equal(t, "a.geojson", a.Source())
}

func TestRegister(t *testing.T) {
	prov, err := Parse("cities", "cities.geojson", []byte(cities), Options{})
	require.NoError(t, err)

	engine := pal.New()
	layer := engine.AddLayer(prov, "cities", pal.AroundPoint, 0.5, true, true, false)

	n, skipped, err := prov.Register(layer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, skipped, "unnamed feature has no label")
	assert.Equal(t, 2, layer.FeatureCount())
}

func TestRegisterDuplicateIDs(t *testing.T) {
	doc := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "id": "a", "geometry": {"type": "Point", "coordinates": [0, 0]}, "properties": {"name": "A"}},
	  {"type": "Feature", "id": "a", "geometry": {"type": "Point", "coordinates": [1, 1]}, "properties": {"name": "B"}}
	]}`
	prov, err := Parse("dups", "dups.geojson", []byte(doc), Options{})
	require.NoError(t, err)

	layer := pal.New().AddLayer(prov, "dups", pal.OverPoint, 0.5, true, true, false)
	n, _, err := prov.Register(layer)
	assert.Equal(t, 1, n)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidLayer))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cities.geojson")
	require.NoError(t, os.WriteFile(path, []byte(cities), 0o644))

	prov, err := Load(context.Background(), "cities", path, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, prov.Len())

	_, err = Load(context.Background(), "cities", filepath.Join(dir, "missing.geojson"), nil, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	_, err = Load(context.Background(), "cities", "", nil, Options{})
	assert.Error(t, err)
}

func TestLoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(cities))
	}))
	defer server.Close()

	client := httputil.NewClient(httputil.WithHTTPClient(server.Client()), httputil.WithRetry(1, time.Millisecond))

	prov, err := Load(context.Background(), "cities", server.URL+"/cities.geojson", client, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, prov.Len())

	_, err = Load(context.Background(), "cities", server.URL+"/missing", client, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestBound(t *testing.T) {
	prov, err := Parse("cities", "x", []byte(cities), Options{})
	require.NoError(t, err)
	b, ok := prov.Bound()
	require.True(t, ok)
	assert.Equal(t, orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{90, 90}}, b)

	_, ok = New("empty", "x", nil, Options{}).Bound()
	assert.False(t, ok)
}
