package conflicts

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/labelpal/pkg/pal"
	"github.com/matzehuels/labelpal/pkg/render"
)

// Options configures conflict graph rendering.
type Options struct {
	// Detailed adds layer name and candidate count to node labels.
	Detailed bool
}

// Edge joins two problem features whose candidates overlap. Weight counts
// the overlapping candidate pairs.
type Edge struct {
	From, To int
	Weight   int
}

// Edges lists the conflicting feature pairs of a problem, ordered by
// feature index.
func Edges(prob *pal.Problem) []Edge {
	weights := make(map[[2]int]int)
	for _, lp := range prob.Candidates() {
		from := lp.FeatureIndex()
		prob.Conflicts(lp, func(other *pal.LabelPosition) bool {
			if to := other.FeatureIndex(); to > from {
				weights[[2]int{from, to}]++
			}
			return true
		})
	}

	edges := make([]Edge, 0, len(weights))
	for k, w := range weights {
		edges = append(edges, Edge{From: k[0], To: k[1], Weight: w})
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return edges
}

// ToDOT converts the conflict structure of a problem to Graphviz DOT. Nodes
// are features; features labelled by sol are filled. Pass a zero Solution to
// draw the graph without a placement.
func ToDOT(prob *pal.Problem, sol pal.Solution, opts Options) string {
	placed := make(map[int]bool, len(sol.Labels))
	for _, lp := range sol.Labels {
		placed[lp.FeatureIndex()] = true
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("\n")

	for i := range prob.FeatureCount() {
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(prob, i, opts.Detailed))}
		if placed[i] {
			attrs = append(attrs, "fillcolor=\"#cfe8cf\"")
		}
		fmt.Fprintf(&buf, "  f%d [%s];\n", i, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range Edges(prob) {
		fmt.Fprintf(&buf, "  f%d -- f%d [penwidth=%.1f, label=\"%d\"];\n", e.From, e.To, penWidth(e.Weight), e.Weight)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func penWidth(w int) float64 {
	return min(6, 1+float64(w)/4)
}

func nodeLabel(prob *pal.Problem, i int, detailed bool) string {
	text, layer := fmt.Sprintf("#%d", i), ""
	if cands := prob.FeatureCandidates(i); len(cands) > 0 {
		if part := cands[0].Part(); part != nil {
			if t := part.Feature().Text; t != "" {
				text = t
			}
			if l := part.Layer(); l != nil {
				layer = l.Name()
			}
		}
	}
	if !detailed {
		return text
	}
	return fmt.Sprintf("%s\nlayer: %s\ncandidates: %d", text, layer, prob.FeatureCandidateCount(i))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// Render renders a DOT graph in the given format ("svg", "png" or "pdf").
func Render(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.Convert(svg, format, scale)
}
