package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

// Prometheus implements every hook interface with Prometheus collectors
// registered on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	LoadsTotal       *prometheus.CounterVec
	FeaturesLoaded   prometheus.Counter
	ExtractDuration  prometheus.Histogram
	CandidatesTotal  prometheus.Counter
	SolvesTotal      *prometheus.CounterVec
	SolveDurationMs  prometheus.Histogram
	LabelsPlaced     prometheus.Counter
	LabelsUnplaced   prometheus.Counter
	RenderDurationMs *prometheus.HistogramVec
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheBytesTotal  *prometheus.CounterVec
	FetchesTotal     *prometheus.CounterVec
	FetchDurationMs  prometheus.Histogram

	RequestsTotal     *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
}

// NewPrometheus creates and registers the labelpal collectors, plus the Go
// runtime and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		LoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_loads_total",
			Help: "Layer loads by result",
		}, []string{"result"}),
		FeaturesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelpal_features_loaded_total",
			Help: "Features registered into layers",
		}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelpal_extract_duration_ms",
			Help:    "Problem extraction duration in milliseconds",
			Buckets: durationBuckets,
		}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelpal_candidates_total",
			Help: "Candidate positions kept after extraction",
		}),
		SolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_solves_total",
			Help: "Solver runs by outcome status",
		}, []string{"status"}),
		SolveDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelpal_solve_duration_ms",
			Help:    "Solver duration in milliseconds",
			Buckets: durationBuckets,
		}),
		LabelsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelpal_labels_placed_total",
			Help: "Labels in solutions",
		}),
		LabelsUnplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelpal_labels_unplaced_total",
			Help: "Unplaced positions in solutions",
		}),
		RenderDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labelpal_render_duration_ms",
			Help:    "Artifact rendering duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"kind"}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_cache_hits_total",
			Help: "Cache hits by key type",
		}, []string{"type"}),
		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_cache_misses_total",
			Help: "Cache misses by key type",
		}, []string{"type"}),
		CacheBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"type"}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_fetches_total",
			Help: "Remote layer fetches by host and status",
		}, []string{"host", "status"}),
		FetchDurationMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelpal_fetch_duration_ms",
			Help:    "Remote layer fetch duration in milliseconds",
			Buckets: durationBuckets,
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelpal_api_requests_total",
			Help: "API requests by route and status code",
		}, []string{"route", "code"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labelpal_api_request_duration_ms",
			Help:    "API request duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"route"}),
	}
	p.registry.MustRegister(
		p.LoadsTotal, p.FeaturesLoaded, p.ExtractDuration, p.CandidatesTotal,
		p.SolvesTotal, p.SolveDurationMs, p.LabelsPlaced, p.LabelsUnplaced,
		p.RenderDurationMs, p.CacheHitsTotal, p.CacheMissesTotal, p.CacheBytesTotal,
		p.FetchesTotal, p.FetchDurationMs, p.RequestsTotal, p.RequestDurationMs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry returns the registry holding the collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler exposes the registry for scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served API request.
func (p *Prometheus) ObserveRequest(route string, code int, d time.Duration) {
	p.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	p.RequestDurationMs.WithLabelValues(route).Observe(ms(d))
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnLoadStart(context.Context, int) {}

func (p *Prometheus) OnLoadComplete(_ context.Context, _, features int, _ time.Duration, err error) {
	p.LoadsTotal.WithLabelValues(result(err)).Inc()
	p.FeaturesLoaded.Add(float64(features))
}

func (p *Prometheus) OnExtractComplete(_ context.Context, _, candidates, _ int, d time.Duration, _ error) {
	p.ExtractDuration.Observe(ms(d))
	p.CandidatesTotal.Add(float64(candidates))
}

func (p *Prometheus) OnSolveComplete(_ context.Context, status string, labels, unplaced int, d time.Duration) {
	p.SolvesTotal.WithLabelValues(status).Inc()
	p.SolveDurationMs.Observe(ms(d))
	p.LabelsPlaced.Add(float64(labels))
	p.LabelsUnplaced.Add(float64(unplaced))
}

func (p *Prometheus) OnRenderComplete(_ context.Context, kind string, d time.Duration, _ error) {
	p.RenderDurationMs.WithLabelValues(kind).Observe(ms(d))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheHitsTotal.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheMissesTotal.WithLabelValues(keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheBytesTotal.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	p.FetchesTotal.WithLabelValues(host, strconv.Itoa(status)).Inc()
	p.FetchDurationMs.Observe(ms(d))
}

func (p *Prometheus) OnError(_ context.Context, _, host, _ string, _ error) {
	p.FetchesTotal.WithLabelValues(host, "error").Inc()
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
	_ HTTPHooks     = (*Prometheus)(nil)
)
