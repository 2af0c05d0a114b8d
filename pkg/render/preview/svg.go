package preview

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/labelpal/pkg/io"
)

// DefaultWidth is the pixel width of a preview when none is given.
const DefaultWidth = 800.0

var palette = []string{
	"#1f77b4", "#d62728", "#2ca02c", "#9467bd",
	"#ff7f0e", "#8c564b", "#e377c2", "#17becf",
}

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width    float64
	unplaced bool
	boxes    bool
	features []orb.Geometry
}

func WithWidth(px float64) SVGOption { return func(r *svgRenderer) { r.width = px } }
func WithUnplaced() SVGOption        { return func(r *svgRenderer) { r.unplaced = true } }

// WithBoxes outlines each label rectangle.
func WithBoxes() SVGOption { return func(r *svgRenderer) { r.boxes = true } }

// WithFeatures draws the labelled geometries underneath the labels.
func WithFeatures(gs ...orb.Geometry) SVGOption {
	return func(r *svgRenderer) { r.features = append(r.features, gs...) }
}

// frame maps map coordinates to SVG pixels, flipping the y axis.
type frame struct {
	bound orb.Bound
	scale float64
	w, h  float64
}

func newFrame(b orb.Bound, width float64) frame {
	dx, dy := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	s := width / dx
	return frame{bound: b, scale: s, w: width, h: dy * s}
}

func (f frame) point(p orb.Point) (float64, float64) {
	return (p[0] - f.bound.Min[0]) * f.scale, (f.bound.Max[1] - p[1]) * f.scale
}

// RenderSVG draws the labels of a result into its extent.
func RenderSVG(r *io.Result, opts ...SVGOption) []byte {
	rr := svgRenderer{width: DefaultWidth}
	for _, opt := range opts {
		opt(&rr)
	}
	if rr.width <= 0 {
		rr.width = DefaultWidth
	}
	f := newFrame(r.Bound(), rr.width)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		f.w, f.h, f.w, f.h)
	buf.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")

	if len(rr.features) > 0 {
		buf.WriteString(`  <g class="features" fill="none" stroke="#bbbbbb" stroke-width="1">` + "\n")
		for _, g := range rr.features {
			renderGeometry(&buf, f, g)
		}
		buf.WriteString("  </g>\n")
	}

	colors := layerColors(r)
	buf.WriteString(`  <g class="labels">` + "\n")
	for _, l := range r.Labels {
		renderLabel(&buf, f, l, colors[l.Layer], rr.boxes)
	}
	buf.WriteString("  </g>\n")

	if rr.unplaced && len(r.Unplaced) > 0 {
		buf.WriteString(`  <g class="unplaced">` + "\n")
		for _, l := range r.Unplaced {
			renderUnplaced(&buf, f, l)
		}
		buf.WriteString("  </g>\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func layerColors(r *io.Result) map[string]string {
	colors := make(map[string]string)
	next := func(name string) {
		if _, ok := colors[name]; !ok {
			colors[name] = palette[len(colors)%len(palette)]
		}
	}
	for _, name := range r.Stats.Layers {
		next(name)
	}
	for _, l := range r.Labels {
		next(l.Layer)
	}
	return colors
}

func renderLabel(buf *bytes.Buffer, f frame, l io.Label, color string, box bool) {
	if box && len(l.Ring) > 0 {
		fmt.Fprintf(buf, `    <path d="%s" fill="%s" fill-opacity="0.08" stroke="%s" stroke-width="0.5"/>`+"\n",
			ringPath(f, l.Ring), color, color)
	}

	cx, cy := f.point(labelCenter(l))
	size := l.Height * f.scale * 0.8
	deg := -l.Angle * 180 / math.Pi
	fmt.Fprintf(buf, `    <text x="%.2f" y="%.2f" font-family="Helvetica, Arial, sans-serif" font-size="%.2f" fill="%s" text-anchor="middle" dominant-baseline="central"`,
		cx, cy, size, color)
	if math.Abs(deg) > 1e-9 {
		fmt.Fprintf(buf, ` transform="rotate(%.2f %.2f %.2f)"`, deg, cx, cy)
	}
	buf.WriteString(">")
	escapeText(buf, l.Text)
	buf.WriteString("</text>\n")
}

func renderUnplaced(buf *bytes.Buffer, f frame, l io.Label) {
	x, y := f.point(orb.Point{l.X, l.Y})
	fmt.Fprintf(buf, `    <circle cx="%.2f" cy="%.2f" r="3" fill="none" stroke="#d62728"/>`+"\n", x, y)
	fmt.Fprintf(buf, `    <text x="%.2f" y="%.2f" font-family="Helvetica, Arial, sans-serif" font-size="9" fill="#999999">`, x+5, y-5)
	escapeText(buf, l.Text)
	buf.WriteString("</text>\n")
}

func labelCenter(l io.Label) orb.Point {
	sin, cos := math.Sincos(l.Angle)
	return orb.Point{
		l.X + (l.Width*cos-l.Height*sin)/2,
		l.Y + (l.Width*sin+l.Height*cos)/2,
	}
}

func renderGeometry(buf *bytes.Buffer, f frame, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		x, y := f.point(g)
		fmt.Fprintf(buf, `    <circle cx="%.2f" cy="%.2f" r="2" fill="#888888" stroke="none"/>`+"\n", x, y)
	case orb.MultiPoint:
		for _, p := range g {
			renderGeometry(buf, f, p)
		}
	case orb.LineString:
		fmt.Fprintf(buf, `    <path d="%s"/>`+"\n", linePath(f, g, false))
	case orb.MultiLineString:
		for _, ls := range g {
			renderGeometry(buf, f, ls)
		}
	case orb.Ring:
		fmt.Fprintf(buf, `    <path d="%s"/>`+"\n", ringPath(f, g))
	case orb.Polygon:
		parts := make([]string, 0, len(g))
		for _, ring := range g {
			parts = append(parts, ringPath(f, ring))
		}
		fmt.Fprintf(buf, `    <path d="%s" fill="#f2f2f2" fill-rule="evenodd"/>`+"\n", strings.Join(parts, " "))
	case orb.MultiPolygon:
		for _, p := range g {
			renderGeometry(buf, f, p)
		}
	case orb.Collection:
		for _, c := range g {
			renderGeometry(buf, f, c)
		}
	}
}

func ringPath(f frame, r orb.Ring) string {
	return linePath(f, orb.LineString(r), true)
}

func linePath(f frame, ls orb.LineString, closed bool) string {
	var sb strings.Builder
	for i, p := range ls {
		x, y := f.point(p)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&sb, "%s%.2f %.2f ", cmd, x, y)
	}
	if closed && len(ls) > 0 {
		sb.WriteString("Z")
	}
	return strings.TrimSpace(sb.String())
}

func escapeText(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
