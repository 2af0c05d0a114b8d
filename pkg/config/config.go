// Package config reads labelpal project files.
//
// A project is a TOML document with an [engine] table holding the placement
// tunables and one [[layers]] table per GeoJSON layer:
//
//	extent = [0.0, 0.0, 1000.0, 800.0]
//
//	[engine]
//	max_point_candidates = 16
//	popmusic_radius = 30
//
//	[[layers]]
//	name = "cities"
//	source = "data/cities.geojson"
//	arrangement = "around-point"
//	priority = 0.2
//
//	[layers.properties]
//	text_property = "name"
//	font_size = 12.0
//
// Engine keys missing from the file keep their defaults. Relative layer
// sources are resolved against the directory of the project file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/errors"
	"github.com/matzehuels/labelpal/pkg/pal"
	"github.com/matzehuels/labelpal/pkg/provider/geojson"
)

// DefaultPriority is used for layers that do not set one.
const DefaultPriority = 0.5

// Project is a decoded project file.
type Project struct {
	// Extent is [minX, minY, maxX, maxY]. Empty means the union of all
	// layer bounds.
	Extent     []float64    `toml:"extent,omitempty" json:"extent,omitempty"`
	DisplayAll bool         `toml:"display_all" json:"display_all"`
	Engine     pal.Settings `toml:"engine" json:"engine"`
	Layers     []Layer      `toml:"layers" json:"layers"`

	dir string
}

// Layer configures one labeled (or obstacle-only) layer.
type Layer struct {
	Name        string          `toml:"name" json:"name"`
	Source      string          `toml:"source" json:"source"`
	Arrangement pal.Arrangement `toml:"arrangement" json:"arrangement"`

	Priority   *float64 `toml:"priority,omitempty" json:"priority,omitempty"`
	Active     *bool    `toml:"active,omitempty" json:"active,omitempty"`
	Label      *bool    `toml:"label,omitempty" json:"label,omitempty"`
	DisplayAll bool     `toml:"display_all,omitempty" json:"display_all,omitempty"`

	MergeLines bool  `toml:"merge_lines,omitempty" json:"merge_lines,omitempty"`
	ChopLines  *bool `toml:"chop_lines,omitempty" json:"chop_lines,omitempty"`

	MaxPointCandidates   int `toml:"max_point_candidates,omitempty" json:"max_point_candidates,omitempty"`
	MaxLineCandidates    int `toml:"max_line_candidates,omitempty" json:"max_line_candidates,omitempty"`
	MaxPolygonCandidates int `toml:"max_polygon_candidates,omitempty" json:"max_polygon_candidates,omitempty"`

	Properties geojson.Options `toml:"properties" json:"properties"`
}

// PriorityOrDefault returns the layer priority, DefaultPriority if unset.
func (l Layer) PriorityOrDefault() float64 {
	if l.Priority == nil {
		return DefaultPriority
	}
	return *l.Priority
}

// IsActive reports whether the layer takes part in extraction (default true).
func (l Layer) IsActive() bool { return l.Active == nil || *l.Active }

// IsLabeled reports whether the layer's features get labels (default true).
// Unlabeled layers only contribute obstacles.
func (l Layer) IsLabeled() bool { return l.Label == nil || *l.Label }

// ChopsLines reports whether long lines are split at their repeat distance
// (default true).
func (l Layer) ChopsLines() bool { return l.ChopLines == nil || *l.ChopLines }

// Default returns a project with engine defaults and no layers.
func Default() *Project {
	return &Project{Engine: pal.DefaultSettings()}
}

// Load reads and validates a project file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "project file %s not found", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	p.dir = abs
	return p, nil
}

// Parse decodes and validates a project document.
func Parse(data []byte) (*Project, error) {
	p := Default()
	md, err := toml.Decode(string(data), p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid project file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown key %q in project file", undecoded[0].String())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the extent and every layer. Engine tunables are not
// checked here: the engine ignores invalid values.
func (p *Project) Validate() error {
	switch len(p.Extent) {
	case 0:
	case 4:
		if err := errors.ValidateExtent(p.Extent[0], p.Extent[1], p.Extent[2], p.Extent[3]); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "extent needs 4 numbers, got %d", len(p.Extent))
	}

	seen := make(map[string]bool, len(p.Layers))
	for i, l := range p.Layers {
		if err := errors.ValidateLayerName(l.Name); err != nil {
			return fmt.Errorf("layers[%d]: %w", i, err)
		}
		if seen[l.Name] {
			return errors.New(errors.ErrCodeInvalidLayer, "duplicate layer name %q", l.Name)
		}
		seen[l.Name] = true
		if err := errors.ValidateSource(l.Source); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
		if l.Priority != nil {
			if err := errors.ValidatePriority(*l.Priority); err != nil {
				return fmt.Errorf("layer %q: %w", l.Name, err)
			}
		}
	}
	return nil
}

// ExtentBound returns the configured extent and whether one is set.
func (p *Project) ExtentBound() (orb.Bound, bool) {
	if len(p.Extent) != 4 {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{p.Extent[0], p.Extent[1]},
		Max: orb.Point{p.Extent[2], p.Extent[3]},
	}, true
}

// ResolveSource returns the layer source, joined with the project directory
// when it is a relative local path.
func (p *Project) ResolveSource(l Layer) string {
	if errors.IsRemote(l.Source) || filepath.IsAbs(l.Source) || p.dir == "" {
		return l.Source
	}
	return filepath.Join(p.dir, l.Source)
}

// Encode writes the project as TOML.
func (p *Project) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

// String returns the TOML form of the project.
func (p *Project) String() string {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return ""
	}
	return buf.String()
}
