package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, 2)
	p.OnLoadComplete(ctx, 2, 100, time.Second, nil)
	p.OnExtractComplete(ctx, 100, 1600, 40, time.Second, nil)
	p.OnSolveComplete(ctx, "solved", 90, 10, time.Second)
	p.OnRenderComplete(ctx, "preview", time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "artifact", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "example.com", "/cities.geojson")
	h.OnResponse(ctx, "GET", "example.com", "/cities.geojson", 200, time.Second)
	h.OnError(ctx, "GET", "example.com", "/cities.geojson", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus()

	p.OnLoadComplete(ctx, 2, 120, time.Millisecond, nil)
	p.OnLoadComplete(ctx, 1, 0, time.Millisecond, errors.New("boom"))
	p.OnExtractComplete(ctx, 120, 900, 30, 4*time.Millisecond, nil)
	p.OnSolveComplete(ctx, "solved", 100, 20, 8*time.Millisecond)
	p.OnSolveComplete(ctx, "canceled", 0, 0, time.Millisecond)
	p.OnCacheHit(ctx, "result")
	p.OnCacheMiss(ctx, "result")
	p.OnCacheMiss(ctx, "result")
	p.OnCacheSet(ctx, "artifact", 512)
	p.OnResponse(ctx, "GET", "example.com", "/a", 200, time.Millisecond)
	p.OnError(ctx, "GET", "example.com", "/a", errors.New("reset"))
	p.ObserveRequest("/v1/place", 200, 3*time.Millisecond)
	p.ObserveRequest("/v1/place", 400, time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"loads ok", testutil.ToFloat64(p.LoadsTotal.WithLabelValues("ok")), 1},
		{"loads error", testutil.ToFloat64(p.LoadsTotal.WithLabelValues("error")), 1},
		{"features", testutil.ToFloat64(p.FeaturesLoaded), 120},
		{"candidates", testutil.ToFloat64(p.CandidatesTotal), 900},
		{"solved", testutil.ToFloat64(p.SolvesTotal.WithLabelValues("solved")), 1},
		{"canceled", testutil.ToFloat64(p.SolvesTotal.WithLabelValues("canceled")), 1},
		{"placed", testutil.ToFloat64(p.LabelsPlaced), 100},
		{"unplaced", testutil.ToFloat64(p.LabelsUnplaced), 20},
		{"cache hits", testutil.ToFloat64(p.CacheHitsTotal.WithLabelValues("result")), 1},
		{"cache misses", testutil.ToFloat64(p.CacheMissesTotal.WithLabelValues("result")), 2},
		{"cache bytes", testutil.ToFloat64(p.CacheBytesTotal.WithLabelValues("artifact")), 512},
		{"fetch ok", testutil.ToFloat64(p.FetchesTotal.WithLabelValues("example.com", "200")), 1},
		{"fetch error", testutil.ToFloat64(p.FetchesTotal.WithLabelValues("example.com", "error")), 1},
		{"api ok", testutil.ToFloat64(p.RequestsTotal.WithLabelValues("/v1/place", "200")), 1},
		{"api bad request", testutil.ToFloat64(p.RequestsTotal.WithLabelValues("/v1/place", "400")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestPrometheusHandler(t *testing.T) {
	p := NewPrometheus()
	p.OnSolveComplete(context.Background(), "solved", 1, 0, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `labelpal_solves_total{status="solved"} 1`) {
		t.Error("metrics output missing labelpal_solves_total")
	}
}

// Test implementations
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
