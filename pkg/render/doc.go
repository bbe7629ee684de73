// Package render draws resolved package sets as Graphviz node-link diagrams.
//
// [Build] turns an index and a [pipeline.Resolution] into a [Graph] whose
// nodes are the requested packages, their dependencies and their
// recommendations, and whose edges are the Depends (solid) and Recommends
// (dashed) relations between them. [ToDOT] serializes the graph as DOT and
// [RenderSVG] lays it out with Graphviz:
//
//	res := pipeline.Plan(idx, []string{"vim"}, true, true)
//	dot := render.ToDOT(render.Build(idx, res), render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Requested packages are drawn filled, names without a file in the index
// with a dashed grey outline.
//
// RenderSVG uses github.com/goccy/go-graphviz, which runs Graphviz compiled to
// WebAssembly; no system Graphviz installation is needed.
package render
