// Package pipeline runs label placement end to end for the CLI and the
// HTTP server.
//
// # Architecture
//
// A run has four stages:
//
//  1. Load: read every project layer as a GeoJSON provider
//  2. Build: register the layers and their features with a fresh engine
//  3. Place: extract the problem for the extent and solve it
//  4. Render: produce artifacts (JSON, GeoJSON, SVG, PNG, PDF, DOT)
//
// Placement results and artifacts are cached by a hash of the loaded layer
// data, the layer configuration and the engine settings, so repeated runs
// over unchanged input skip extraction and solving.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Project: project,
//	    Formats: []string{"svg", "geojson"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labelpal/pkg/cache"
	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/httputil"
	labelio "github.com/matzehuels/labelpal/pkg/io"
	"github.com/matzehuels/labelpal/pkg/pal"
)

const (
	// DefaultWidth is the default preview width in pixels.
	DefaultWidth = 800.0

	// DefaultPNGScale is the zoom factor for PNG output.
	DefaultPNGScale = 2.0

	// MaxConcurrentLoads bounds how many layer sources are read at once.
	MaxConcurrentLoads = 4
)

// Format constants for output formats.
const (
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
	FormatSVG     = "svg"
	FormatPNG     = "png"
	FormatPDF     = "pdf"
	FormatDOT     = "dot"
)

// Kinds of rendering.
const (
	KindPreview   = "preview"
	KindConflicts = "conflicts"
)

// ValidFormats lists the output formats per rendering kind.
var ValidFormats = map[string][]string{
	KindPreview:   {FormatJSON, FormatGeoJSON, FormatSVG, FormatPNG, FormatPDF},
	KindConflicts: {FormatDOT, FormatSVG, FormatPNG, FormatPDF},
}

// Options configures one pipeline run. It supports JSON for API requests.
type Options struct {
	Project *config.Project `json:"project"`

	// Kind selects the rendering: KindPreview (default) or KindConflicts.
	Kind    string   `json:"kind,omitempty"`
	Formats []string `json:"formats,omitempty"`

	Width    float64 `json:"width,omitempty"`
	Boxes    bool    `json:"boxes,omitempty"`
	Unplaced bool    `json:"unplaced,omitempty"`
	Features bool    `json:"features,omitempty"`
	Detailed bool    `json:"detailed,omitempty"`

	// Refresh bypasses cached results and remote documents.
	Refresh bool `json:"refresh,omitempty"`

	// Inline holds GeoJSON documents keyed by layer name. A layer found
	// here is parsed from memory instead of being read from its source.
	Inline map[string][]byte `json:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger      `json:"-"`
	Client *httputil.Client `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Placement is the serializable placement.
	Placement *labelio.Result

	// InputHash identifies the loaded layers and their configuration.
	InputHash string

	// Problem is the extracted problem. It is nil when the placement came
	// from the cache.
	Problem *pal.Problem

	// Solution is the raw solver output for Problem.
	Solution pal.Solution

	// Sources are the loaded layer providers.
	Sources []Source

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Layers     int
	Features   int
	LoadTime   time.Duration
	PlaceTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	PlaceHit  bool // Whether the placement came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that format is valid for kind.
func ValidateFormat(kind, format string) error {
	formats, ok := ValidFormats[kind]
	if !ok {
		return fmt.Errorf("invalid kind: %q (must be one of: preview, conflicts)", kind)
	}
	if !slices.Contains(formats, format) {
		return fmt.Errorf("invalid format %q for %s (must be one of: %v)", format, kind, formats)
	}
	return nil
}

// ValidateFormats checks that all formats are valid for kind.
func ValidateFormats(kind string, formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(kind, f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the project and applies defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Project == nil {
		return fmt.Errorf("project is required")
	}
	if err := o.Project.Validate(); err != nil {
		return err
	}
	if len(o.Project.Layers) == 0 {
		return fmt.Errorf("project has no layers")
	}
	if o.Kind == "" {
		o.Kind = KindPreview
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
		if o.Kind == KindConflicts {
			o.Formats = []string{FormatDOT}
		}
	}
	if err := ValidateFormats(o.Kind, o.Formats); err != nil {
		return err
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ResultKeyOpts returns cache key options for the placement.
func (o *Options) ResultKeyOpts() cache.ResultKeyOpts {
	opts := cache.ResultKeyOpts{
		Settings:   settingsKey(o.Project.Engine),
		DisplayAll: o.Project.DisplayAll,
	}
	if b, ok := o.Project.ExtentBound(); ok {
		opts.Extent = [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}
	return opts
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Kind:     o.Kind,
		Format:   format,
		Width:    int(o.Width),
		Boxes:    o.Boxes,
		Unplaced: o.Unplaced,
		Features: o.Features,
		Detailed: o.Detailed,
	}
}

func settingsKey(s pal.Settings) string {
	data, _ := json.Marshal(s)
	return string(data)
}
