// Package conflicts draws the overlap graph of a placement problem.
//
// Every feature with at least one candidate becomes a node. Two features are
// joined when any of their candidates overlap; the edge label counts the
// overlapping candidate pairs. Dense clusters show where the solver has to
// give up labels.
//
//	prob := engine.ExtractProblem(extent, boundary)
//	out := engine.SolveProblem(prob, false)
//	dot := conflicts.ToDOT(prob, out.Solution, conflicts.Options{Detailed: true})
//	svg, err := conflicts.RenderSVG(ctx, dot)
package conflicts
