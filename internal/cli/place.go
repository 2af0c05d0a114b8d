package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labelpal/pkg/config"
	"github.com/matzehuels/labelpal/pkg/pipeline"
)

// placeOpts holds the flags shared by place and conflicts.
type placeOpts struct {
	output   string
	formats  string
	width    float64
	boxes    bool
	unplaced bool
	features bool
	detailed bool
	noCache  bool
	refresh  bool
}

// placeCommand creates the place command for solving a project.
func (c *CLI) placeCommand() *cobra.Command {
	var opts placeOpts

	cmd := &cobra.Command{
		Use:   "place [project.toml]",
		Short: "Place the labels of a project",
		Long: `Place reads every layer of a project, solves the label placement and writes
the result as JSON, GeoJSON or a rendered preview (SVG, PNG, PDF).

Placements are cached by layer contents and engine settings, so re-running
an unchanged project is instant.`,
		Example: `  # Solve and write project.json
  labelpal place project.toml

  # Preview with label boxes and unplaced labels
  labelpal place project.toml -f svg,json --boxes --unplaced -o out/map`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlace(cmd.Context(), args[0], pipeline.KindPreview, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base path")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: json, geojson, svg, png, pdf (comma-separated)")
	cmd.Flags().Float64Var(&opts.width, "width", pipeline.DefaultWidth, "preview width in pixels")
	cmd.Flags().BoolVar(&opts.boxes, "boxes", false, "draw label boxes in previews")
	cmd.Flags().BoolVar(&opts.unplaced, "unplaced", false, "mark unplaced labels in previews")
	cmd.Flags().BoolVar(&opts.features, "features", false, "draw layer geometries in previews")
	addCacheFlags(cmd, &opts)

	return cmd
}

// conflictsCommand creates the conflicts command for drawing the candidate
// conflict graph.
func (c *CLI) conflictsCommand() *cobra.Command {
	var opts placeOpts

	cmd := &cobra.Command{
		Use:   "conflicts [project.toml]",
		Short: "Draw the label conflict graph of a project",
		Long: `Conflicts extracts the placement problem of a project and draws one node per
feature, joined by an edge weighted with the number of overlapping candidate
pairs. Placed features are filled.`,
		Example: `  # Write the graph as DOT
  labelpal conflicts project.toml

  # Render it with Graphviz
  labelpal conflicts project.toml -f svg --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlace(cmd.Context(), args[0], pipeline.KindConflicts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file or base path")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: dot, svg, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show layer and candidate counts on nodes")
	addCacheFlags(cmd, &opts)

	return cmd
}

func addCacheFlags(cmd *cobra.Command, opts *placeOpts) {
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results and remote layers")
}

// runPlace loads the project, runs the pipeline and writes every artifact.
func (c *CLI) runPlace(ctx context.Context, path, kind string, opts placeOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}
	project, err := config.Load(path)
	if err != nil {
		return err
	}

	def := pipeline.FormatJSON
	suffix := ""
	if kind == pipeline.KindConflicts {
		def = pipeline.FormatDOT
		suffix = "_conflicts"
	}
	formats := parseFormats(opts.formats, def)
	if err := pipeline.ValidateFormats(kind, formats); err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := c.execute(ctx, runner, pipeline.Options{
		Project:  project,
		Kind:     kind,
		Formats:  formats,
		Width:    opts.width,
		Boxes:    opts.boxes,
		Unplaced: opts.unplaced,
		Features: opts.features,
		Detailed: opts.detailed,
		Refresh:  opts.refresh,
		Logger:   c.Logger,
		Client:   newSourceClient(opts.noCache),
	})
	if err != nil {
		return err
	}

	paths := outputPaths(opts.output, path, suffix, formats)
	written, err := writeArtifacts(result.Artifacts, paths)
	if err != nil {
		return err
	}

	p := result.Placement
	printSuccess("Placed %d of %d labels", len(p.Labels), len(p.Labels)+len(p.Unplaced))
	printStats(statsLine{
		layers:     result.Stats.Layers,
		features:   result.Stats.Features,
		candidates: p.Stats.Candidates,
		overlaps:   p.Overlaps,
		cached:     result.CacheInfo.PlaceHit,
	})
	if p.Overlaps > 0 {
		printWarning("%d placed labels still overlap", p.Overlaps)
	}
	for _, f := range written {
		printFile(f)
	}
	if len(p.Unplaced) > 0 && kind == pipeline.KindPreview {
		printNewline()
		printNextStep("Browse unplaced labels", fmt.Sprintf("%s inspect %s", appName, path))
	}
	return nil
}

// writeArtifacts writes artifacts to their paths and returns the written
// files in a stable order.
func writeArtifacts(artifacts map[string][]byte, paths map[string]string) ([]string, error) {
	var written []string
	for format, path := range paths {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return written, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	sort.Strings(written)
	return written, nil
}

// execute runs the pipeline behind a spinner that follows its stages, then
// logs a summary of the run.
func (c *CLI) execute(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	spin := newSpinner(ctx, os.Stderr, "Placing labels...")
	detach := spin.attach()
	spin.Start()

	start := time.Now()
	result, err := runner.Execute(ctx, opts)
	spin.Stop()
	detach()
	if err != nil {
		return nil, err
	}
	logRun(c.Logger, result, time.Since(start))
	return result, nil
}
