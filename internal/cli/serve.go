package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/labelpal/pkg/buildinfo"
	"github.com/matzehuels/labelpal/pkg/cache"
	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/errors"
	"github.com/matzehuels/labelpal/pkg/httputil"
	labelio "github.com/matzehuels/labelpal/pkg/io"
	"github.com/matzehuels/labelpal/pkg/observability"
	"github.com/matzehuels/labelpal/pkg/pal"
	"github.com/matzehuels/labelpal/pkg/pipeline"
)

const (
	defaultAddr    = ":8080"
	defaultTimeout = 60 * time.Second

	// maxRequestBytes bounds a placement request including inline layers.
	maxRequestBytes = 32 << 20

	requestIDHeader = "X-Request-ID"

	// apiKeyScope keeps API entries apart from CLI entries in a shared cache.
	apiKeyScope = "api:"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		envFile string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the placement HTTP API",
		Long: `Serve exposes the placement pipeline over HTTP:

  POST /v1/place               place a project (layers inline or remote)
  GET  /v1/settings/defaults   engine defaults
  GET  /healthz                liveness
  GET  /metrics                Prometheus metrics

The cache backend is configured from the environment (LABELPAL_CACHE,
REDIS_HOST, MONGO_URI, ...), optionally loaded from an env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := config.LoadEnv(envFile); err != nil {
				return fmt.Errorf("load env: %w", err)
			}
			store, err := cache.Open(ctx, cache.ConfigFromEnv())
			if err != nil {
				return err
			}

			metrics := observability.NewPrometheus()
			observability.SetPipelineHooks(metrics)
			observability.SetCacheHooks(metrics)
			observability.SetHTTPHooks(metrics)
			defer observability.Reset()

			logger := loggerFromContext(ctx)
			srv := newServer(pipeline.NewRunner(store, cache.NewScopedKeyer(nil, apiKeyScope), logger), metrics, logger, timeout)
			defer srv.runner.Close()
			return srv.listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&envFile, "env", ".env", "environment file")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "per-request placement timeout")

	return cmd
}

// =============================================================================
// Server
// =============================================================================

// server serves the placement API. Every request builds its own engine, so
// handlers share only the runner's cache.
type server struct {
	runner  *pipeline.Runner
	metrics *observability.Prometheus
	client  *httputil.Client
	logger  *log.Logger
	timeout time.Duration
}

func newServer(runner *pipeline.Runner, metrics *observability.Prometheus, logger *log.Logger, timeout time.Duration) *server {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &server{
		runner:  runner,
		metrics: metrics,
		client:  httputil.NewClient(httputil.WithHeaders(userAgent())),
		logger:  logger,
		timeout: timeout,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/place", s.handlePlace)
		r.Get("/settings/defaults", s.handleDefaults)
	})
	return r
}

// listen serves until ctx is done, then shuts down gracefully.
func (s *server) listen(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr, "version", buildinfo.Version)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

// requestID propagates or assigns the X-Request-ID header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// observe records status and latency per route pattern.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"id", w.Header().Get(requestIDHeader), "duration", time.Since(start))
	})
}

// =============================================================================
// Handlers
// =============================================================================

// placeRequest is the body of POST /v1/place. Layers holds GeoJSON
// FeatureCollections keyed by layer name.
type placeRequest struct {
	pipeline.Options
	Layers map[string]json.RawMessage `json:"layers,omitempty"`
}

// placeResponse is the body returned by POST /v1/place. Artifacts are
// base64 encoded.
type placeResponse struct {
	RequestID string            `json:"request_id"`
	Result    *labelio.Result   `json:"result"`
	Artifacts map[string][]byte `json:"artifacts"`
	Cached    bool              `json:"cached"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pal.DefaultSettings())
}

func (s *server) handlePlace(w http.ResponseWriter, r *http.Request) {
	req := placeRequest{Options: pipeline.Options{Project: config.Default()}}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid request body"))
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Logger = s.logger
	opts.Client = s.client

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := s.runner.Execute(ctx, opts)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Wrap(errors.ErrCodeTimeout, err, "placement timed out after %s", s.timeout)
		}
		s.logger.Warn("place failed", "id", w.Header().Get(requestIDHeader), "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, placeResponse{
		RequestID: w.Header().Get(requestIDHeader),
		Result:    result.Placement,
		Artifacts: result.Artifacts,
		Cached:    result.CacheInfo.PlaceHit,
	})
}

// options validates the request. Local layer sources are only accepted when
// the layer data is sent inline.
func (req placeRequest) options() (pipeline.Options, error) {
	opts := req.Options
	if opts.Project == nil {
		return opts, errors.New(errors.ErrCodeInvalidInput, "project is required")
	}
	if len(opts.Project.Layers) == 0 {
		return opts, errors.New(errors.ErrCodeInvalidInput, "project has no layers")
	}
	if len(opts.Formats) > 0 {
		kind := opts.Kind
		if kind == "" {
			kind = pipeline.KindPreview
		}
		if err := pipeline.ValidateFormats(kind, opts.Formats); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid formats")
		}
	}
	opts.Inline = make(map[string][]byte, len(req.Layers))
	for name, data := range req.Layers {
		opts.Inline[name] = data
	}
	for i, l := range opts.Project.Layers {
		if _, ok := opts.Inline[l.Name]; ok {
			if l.Source == "" {
				opts.Project.Layers[i].Source = "inline:" + l.Name
			}
			continue
		}
		if !errors.IsRemote(l.Source) {
			return opts, errors.New(errors.ErrCodeInvalidLayer, "layer %q: local source %q needs inline data", l.Name, l.Source)
		}
	}
	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), errorResponse{Code: string(code), Message: errors.UserMessage(err)})
}
