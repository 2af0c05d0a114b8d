// Package render turns placement results into pictures.
//
// Subpackages:
//
//   - [preview]: SVG map preview of placed and unplaced labels
//   - [conflicts]: candidate conflict graph as Graphviz DOT or SVG
//
// [Convert] turns any SVG into PNG or PDF through the external rsvg-convert
// tool (from librsvg):
//
//	svg := preview.RenderSVG(result)
//	png, err := render.Convert(svg, "png", 2.0)
//
// [preview]: github.com/matzehuels/labelpal/pkg/render/preview
// [conflicts]: github.com/matzehuels/labelpal/pkg/render/conflicts
package render
