package pal

import (
	"cmp"
	"slices"
)

// Status is the result kind of SolveProblem.
type Status int

const (
	// Solved means a solution was computed.
	Solved Status = iota
	// Canceled means the cancellation predicate fired during solving.
	Canceled
	// Empty means there was nothing to solve.
	Empty
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case Canceled:
		return "canceled"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// Solution is the set of placed labels chosen by the solver.
type Solution struct {
	// Labels holds at most one position per feature, in feature order. With
	// displayAll, features left inactive contribute their best candidate.
	Labels []*LabelPosition
	// Unplaced holds the best candidate of inactive features (when not
	// displayed) followed by the positions of features without candidates.
	Unplaced []*LabelPosition
	// Cost is the objective value of the solver's assignment.
	Cost float64
	// Overlaps counts conflicting pairs among Labels. It is zero unless
	// inactive features were surfaced.
	Overlaps int
	// Iterations is the number of search iterations performed.
	Iterations int
}

// Outcome is returned by SolveProblem.
type Outcome struct {
	Status   Status
	Solution Solution
}

// epsilon is the smallest objective change treated as an improvement.
const epsilon = 1e-9

// solver holds the mutable state of one SolveProblem call. The problem and
// its candidates are only read.
type solver struct {
	prob     *Problem
	settings Settings
	canceled func() bool

	adj      [][]int
	alive    []bool
	overlaps []int

	fixed     []bool
	movable   []bool
	floor     []float64
	sol       []int
	tabuUntil []int
	cost      float64

	iterations int

	stamp   int
	visited []int
}

// SolveProblem chooses at most one candidate per feature, trading candidate
// costs against the cost of leaving features unlabeled. When displayAll is
// set, or the feature's layer asks for it, features left unlabeled are
// surfaced with their best candidate.
func (p *Pal) SolveProblem(prob *Problem, displayAll bool) Outcome {
	if prob == nil {
		return Outcome{Status: Empty}
	}
	if prob.FeatureCount() == 0 {
		return Outcome{Status: Empty, Solution: Solution{Unplaced: prob.PositionsWithNoCandidates()}}
	}

	sv := newSolver(prob, p.Settings(), p.isCanceled)
	if !sv.buildConflictGraph() {
		p.logger.Debug("solve canceled while building conflict graph")
		return Outcome{Status: Canceled}
	}
	sv.reduce()
	sv.initialSolution()
	initial := sv.cost
	if sv.optimize() {
		p.logger.Debug("solve canceled during search", "iterations", sv.iterations)
		return Outcome{Status: Canceled}
	}

	sol := sv.solution(displayAll)
	p.logger.Debug("problem solved",
		"features", prob.FeatureCount(),
		"labels", len(sol.Labels),
		"unplaced", len(sol.Unplaced),
		"initial", initial,
		"cost", sol.Cost,
		"iterations", sol.Iterations)
	return Outcome{Status: Solved, Solution: sol}
}

func newSolver(prob *Problem, s Settings, canceled func() bool) *solver {
	n, m := prob.FeatureCount(), prob.CandidateCount()
	sv := &solver{
		prob:      prob,
		settings:  s,
		canceled:  canceled,
		adj:       make([][]int, m),
		alive:     make([]bool, m),
		overlaps:  make([]int, m),
		fixed:     make([]bool, n),
		movable:   make([]bool, n),
		floor:     make([]float64, n),
		sol:       make([]int, n),
		tabuUntil: make([]int, n),
		visited:   make([]int, n),
	}
	for i := range sv.alive {
		sv.alive[i] = true
	}
	for f := range sv.sol {
		sv.sol[f] = -1
	}
	return sv
}

func (sv *solver) featOf(id int) int          { return sv.prob.candidates[id].probFeat }
func (sv *solver) candCost(id int) float64    { return sv.prob.candidates[id].cost }
func (sv *solver) inactive(f int) float64     { return sv.prob.inactiveCost[f] }
func (sv *solver) featRange(f int) (int, int) { return sv.prob.featStartID[f], sv.prob.featStartID[f] + sv.prob.featNbLp[f] }

// labelCost is the objective contribution of feature f alone.
func (sv *solver) labelCost(f int) float64 {
	if c := sv.sol[f]; c >= 0 {
		return sv.candCost(c)
	}
	return sv.inactive(f)
}

// buildConflictGraph records, for every candidate, the ids of the candidates
// of other features it conflicts with. It reports false when canceled.
func (sv *solver) buildConflictGraph() bool {
	for id, lp := range sv.prob.candidates {
		if sv.canceled() {
			return false
		}
		sv.prob.Conflicts(lp, func(other *LabelPosition) bool {
			sv.adj[id] = append(sv.adj[id], other.id)
			return true
		})
		slices.Sort(sv.adj[id])
		sv.overlaps[id] = len(sv.adj[id])
	}
	return true
}

// reduce drops candidates that can never beat a cheaper, overlap-free
// candidate of the same feature, until nothing changes. Features left with a
// single overlap-free candidate are fixed.
func (sv *solver) reduce() {
	for changed := true; changed; {
		changed = false
		for f := range sv.sol {
			start, end := sv.featRange(f)
			c := start
			for c < end && !(sv.alive[c] && sv.overlaps[c] == 0) {
				c++
			}
			for d := c + 1; d < end; d++ {
				if sv.alive[d] {
					sv.kill(d)
					changed = true
				}
			}
		}
	}

	for f := range sv.sol {
		first := sv.firstAlive(f)
		sv.floor[f] = sv.candCost(first)
		sv.fixed[f] = sv.overlaps[first] == 0
	}
}

func (sv *solver) kill(id int) {
	sv.alive[id] = false
	for _, o := range sv.adj[id] {
		if sv.alive[o] {
			sv.overlaps[o]--
		}
	}
}

// firstAlive returns feature f's cheapest remaining candidate. Reduction
// always leaves at least one.
func (sv *solver) firstAlive(f int) int {
	start, end := sv.featRange(f)
	for c := start; c < end; c++ {
		if sv.alive[c] {
			return c
		}
	}
	return start
}

// initialSolution labels features greedily, always taking the remaining
// candidate with the fewest remaining conflicts. Once a candidate is taken,
// the other candidates of its feature and every candidate conflicting with it
// are withdrawn.
func (sv *solver) initialSolution() {
	ov := slices.Clone(sv.overlaps)
	q := newCandidateQueue(len(ov), func(a, b int) bool {
		if ov[a] != ov[b] {
			return ov[a] < ov[b]
		}
		if c := cmp.Compare(sv.candCost(a), sv.candCost(b)); c != 0 {
			return c < 0
		}
		return a < b
	})
	for id, ok := range sv.alive {
		if ok {
			q.insert(id)
		}
	}

	withdraw := func(id int) {
		q.remove(id)
		for _, o := range sv.adj[id] {
			if q.contains(o) {
				ov[o]--
				q.update(o)
			}
		}
	}

	for q.Len() > 0 {
		id := q.popMin()
		f := sv.featOf(id)
		sv.sol[f] = id
		start, end := sv.featRange(f)
		for c := start; c < end; c++ {
			if q.contains(c) {
				withdraw(c)
			}
		}
		for _, o := range sv.adj[id] {
			if q.contains(o) {
				withdraw(o)
			}
		}
	}
	sv.cost = sv.objective()
}

// objective sums active candidate costs, the inactive cost of unlabeled
// features, and both inactive costs for every pair of conflicting labels.
func (sv *solver) objective() float64 {
	total := 0.0
	for f := range sv.sol {
		total += sv.labelCost(f)
	}
	for f, c := range sv.sol {
		if c < 0 {
			continue
		}
		for _, o := range sv.adj[c] {
			if g := sv.featOf(o); o > c && sv.sol[g] == o {
				total += sv.inactive(f) + sv.inactive(g)
			}
		}
	}
	return total
}

// solution converts the assignment into placed and unplaced positions.
func (sv *solver) solution(displayAll bool) Solution {
	prob := sv.prob
	out := Solution{Cost: sv.objective(), Iterations: sv.iterations}

	placed := make([]bool, prob.CandidateCount())
	for f, c := range sv.sol {
		if c < 0 {
			c = prob.featStartID[f]
			if !displayAll && !prob.displayAll[f] {
				out.Unplaced = append(out.Unplaced, prob.candidates[c])
				continue
			}
		}
		placed[c] = true
		out.Labels = append(out.Labels, prob.candidates[c])
	}
	out.Unplaced = append(out.Unplaced, prob.positionsWithNoCandidates...)

	for _, lp := range out.Labels {
		for _, o := range sv.adj[lp.id] {
			if o > lp.id && placed[o] {
				out.Overlaps++
			}
		}
	}
	return out
}
