// Package cli implements the labelpal command-line interface.
//
// # Commands
//
//   - place: solve label placement for a project and write the results
//   - conflicts: draw the candidate conflict graph of a project
//   - settings: print engine defaults or write a starter project
//   - inspect: browse placed and unplaced labels interactively
//   - serve: run the HTTP placement API
//   - cache: manage the result and source caches
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/labelpal/pkg/buildinfo"
	"github.com/matzehuels/labelpal/pkg/cache"
	"github.com/matzehuels/labelpal/pkg/httputil"
	"github.com/matzehuels/labelpal/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "labelpal"

	// sourceTTL is how long fetched remote layers stay fresh.
	sourceTTL = 24 * time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "labelpal places map labels without overlaps",
		Long:         `labelpal reads GeoJSON layers, generates candidate positions for every label and searches for a placement with as few overlaps and as many labels as possible.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(withLogger(ctx, c.Logger))
		return nil
	}

	root.AddCommand(c.placeCommand())
	root.AddCommand(c.conflictsCommand())
	root.AddCommand(c.settingsCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newSourceClient returns the HTTP client for remote layers. Fetched
// documents are kept on disk unless noCache is set.
func newSourceClient(noCache bool) *httputil.Client {
	headers := httputil.WithHeaders(userAgent())
	if noCache {
		return httputil.NewClient(headers)
	}
	body, err := httputil.NewCache("", sourceTTL)
	if err != nil {
		return httputil.NewClient(headers)
	}
	return httputil.NewClient(headers, httputil.WithCache(body))
}

func userAgent() map[string]string {
	return map[string]string{"User-Agent": appName + "/" + buildinfo.Version}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache root using XDG standard (~/.cache/labelpal/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s, def string) []string {
	if s == "" {
		return []string{def}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// basePath derives the base output path. Without output the project file
// name minus its extension is used; a known format extension on output is
// stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	for _, formats := range pipeline.ValidFormats {
		for _, f := range formats {
			if f == ext {
				return strings.TrimSuffix(output, "."+ext)
			}
		}
	}
	return output
}

// outputPaths maps each format to the file it is written to. A single format
// with an explicit output goes exactly there.
func outputPaths(output, input, suffix string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input) + suffix
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}
