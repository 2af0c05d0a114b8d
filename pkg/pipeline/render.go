package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/paulmach/orb"

	labelio "github.com/matzehuels/labelpal/pkg/io"
	"github.com/matzehuels/labelpal/pkg/pal"
	"github.com/matzehuels/labelpal/pkg/render"
	"github.com/matzehuels/labelpal/pkg/render/conflicts"
	"github.com/matzehuels/labelpal/pkg/render/preview"
)

// RenderPreview renders a placement in the requested preview formats.
// sources supply backdrop geometries when opts.Features is set.
func RenderPreview(r *labelio.Result, sources []Source, opts Options) (map[string][]byte, error) {
	var svg []byte
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			var buf bytes.Buffer
			err = labelio.WriteJSON(r, &buf)
			data = buf.Bytes()
		case FormatGeoJSON:
			var buf bytes.Buffer
			err = labelio.WriteGeoJSON(r, &buf)
			data = buf.Bytes()
		case FormatSVG, FormatPNG, FormatPDF:
			if svg == nil {
				svg = preview.RenderSVG(r, previewOptions(sources, opts)...)
			}
			data, err = render.Convert(svg, format, DefaultPNGScale)
		default:
			return nil, fmt.Errorf("unsupported preview format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func previewOptions(sources []Source, opts Options) []preview.SVGOption {
	svgOpts := []preview.SVGOption{preview.WithWidth(opts.Width)}
	if opts.Boxes {
		svgOpts = append(svgOpts, preview.WithBoxes())
	}
	if opts.Unplaced {
		svgOpts = append(svgOpts, preview.WithUnplaced())
	}
	if opts.Features {
		var geoms []orb.Geometry
		for _, s := range sources {
			for _, f := range s.Provider.Collection().Features {
				if f.Geometry != nil {
					geoms = append(geoms, f.Geometry)
				}
			}
		}
		svgOpts = append(svgOpts, preview.WithFeatures(geoms...))
	}
	return svgOpts
}

// RenderConflicts renders the conflict graph of prob in the requested
// formats.
func RenderConflicts(ctx context.Context, prob *pal.Problem, sol pal.Solution, opts Options) (map[string][]byte, error) {
	if prob == nil {
		return nil, fmt.Errorf("conflict graph needs an extracted problem")
	}
	dot := conflicts.ToDOT(prob, sol, conflicts.Options{Detailed: opts.Detailed})

	var svg []byte
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG, FormatPNG, FormatPDF:
			if svg == nil {
				if svg, err = conflicts.RenderSVG(ctx, dot); err != nil {
					return nil, fmt.Errorf("render svg: %w", err)
				}
			}
			data, err = render.Convert(svg, format, DefaultPNGScale)
		default:
			return nil, fmt.Errorf("unsupported conflicts format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
