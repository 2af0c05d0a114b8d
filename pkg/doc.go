// Package pkg provides the libraries behind labelpal, a map label placement
// engine.
//
// # Overview
//
// labelpal takes features of several layers (points, lines, polygons), each
// with a label box, generates candidate positions for every label and picks
// one candidate per feature so that labels overlap neither each other nor
// obstacles, while preferring well-placed candidates and high-priority
// layers. The pkg directory is organized into these areas:
//
//  1. [pal] - The engine: layers, candidate generation, problem extraction
//     and the search (tabu, chain, POPMUSIC variants)
//  2. [geom] and [spatial] - Geometry helpers and the R-tree index
//  3. [provider] - Label sources (GeoJSON)
//  4. [config], [cache], [httputil], [observability], [errors] - Hosting
//     infrastructure
//  5. [pipeline] - Orchestration (load → place → render)
//  6. [io] and [render] - Result serialization and previews
//
// # Architecture
//
//	GeoJSON layers (files or URLs)
//	         ↓
//	    [provider/geojson] (features with label sizes)
//	         ↓
//	    [pal] (extract problem, solve)
//	         ↓
//	    [io] / [render] (JSON, GeoJSON, SVG, PNG, PDF, DOT)
//
// # Quick Start
//
//	engine := pal.New()
//	layer := engine.AddLayer(provider, "cities", pal.AroundPoint, 0.5, true, true, false)
//	_ = layer.RegisterFeature(pal.Feature{Geometry: orb.Point{10, 10}, Text: "Alpha", Width: 8, Height: 2, Priority: pal.LayerPriority})
//
//	prob := engine.ExtractProblem(extent, nil)
//	out := engine.SolveProblem(prob, false)
//	for _, lp := range out.Solution.Labels {
//	    fmt.Println(lp.Part().Feature().Text, lp.X(), lp.Y())
//	}
//
// Most callers go through [pipeline.Runner], which adds loading, caching and
// rendering on top.
package pkg
