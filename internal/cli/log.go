package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labelpal/pkg/pipeline"
)

// newLogger returns the CLI logger. Timestamps carry centiseconds so the
// per-stage lines of one run can be told apart.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logRun writes one summary line for a finished pipeline run.
func logRun(l *log.Logger, res *pipeline.Result, elapsed time.Duration) {
	p := res.Placement
	l.Info("run finished",
		"status", p.Status,
		"labels", len(p.Labels),
		"unplaced", len(p.Unplaced),
		"overlaps", p.Overlaps,
		"place_cached", res.CacheInfo.PlaceHit,
		"render_cached", res.CacheInfo.RenderHit,
		"duration", elapsed.Round(time.Millisecond))
}

type ctxKey struct{}

// withLogger attaches l to ctx for subcommands.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the logger set by withLogger, or log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
