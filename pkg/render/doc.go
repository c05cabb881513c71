// Package render converts rendered SVG documents to other formats.
//
// The [ToPDF] and [ToPNG] functions shell out to rsvg-convert (from
// librsvg). Graph exports are produced by the [dot] subpackage:
//
//	dotSrc := dot.ToDOT(edges, dot.Options{Reference: "world"})
//	svg, err := dot.RenderSVG(dotSrc)
//	png, err := render.ToPNG(svg, 2.0)
//
// [dot]: github.com/matzehuels/vizframe/pkg/render/dot
package render
