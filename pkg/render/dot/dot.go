// Package dot exports transform graphs as Graphviz diagrams.
//
// Frames become nodes and edges point from source to target, the direction in
// which poses are pushed. Static edges are drawn solid, dynamic edges dashed
// and labeled with their buffer size and latest sample time. Dynamic edges
// without samples are drawn dotted and grey. The reference frame, when set,
// is highlighted.
//
//	dotSrc := dot.ToDOT(g.Edges(), dot.Options{Reference: "world"})
//	svg, err := dot.RenderSVG(dotSrc)
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/vizframe/pkg/render"
	"github.com/matzehuels/vizframe/pkg/transform"
)

// TimeFormat formats latest sample times in edge labels.
const TimeFormat = "15:04:05.000"

// Options configures diagram generation.
type Options struct {
	// Reference is highlighted when non-empty.
	Reference string
	// Frames adds nodes for frames without edges.
	Frames []string
	// Detailed adds sample counts and times to dynamic edge labels.
	Detailed bool
}

// ToDOT converts transform graph edges to Graphviz DOT source.
func ToDOT(edges []transform.EdgeInfo, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph frames {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	for _, f := range frames(edges, opts) {
		attrs := []string{fmt.Sprintf("label=%q", f)}
		if f == opts.Reference {
			attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", f, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(edgeAttrs(e, opts.Detailed), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func frames(edges []transform.EdgeInfo, opts Options) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, e := range edges {
		add(e.Source)
		add(e.Target)
	}
	for _, f := range opts.Frames {
		add(f)
	}
	add(opts.Reference)
	slices.Sort(out)
	return out
}

func edgeAttrs(e transform.EdgeInfo, detailed bool) []string {
	if e.Kind == transform.KindStatic {
		return []string{"style=solid"}
	}
	if e.Samples == 0 {
		return []string{"style=dotted", "color=grey", `label="no samples"`}
	}
	label := e.Latest.Format(TimeFormat)
	if detailed {
		label = fmt.Sprintf("%d samples\n%s", e.Samples, label)
	}
	return []string{"style=dashed", fmt.Sprintf("label=%q", label)}
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
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

// normalizeViewBox rewrites the root element so the diagram scales with its
// container.
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

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPNG renders DOT source to PNG through SVG.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}

// RenderPDF renders DOT source to PDF through SVG.
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}
