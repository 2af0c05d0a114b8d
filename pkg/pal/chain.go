package pal

import (
	"cmp"
	"math"
	"slices"
)

// change records one feature's label switching from one candidate to another
// (-1 for none).
type change struct {
	feat, from, to int
}

// search runs a tabu search over members, which must be marked movable. The
// best assignment found is kept. It reports true when canceled.
func (sv *solver) search(members []int) bool {
	n := len(members)
	if n == 0 {
		return false
	}
	s := sv.settings
	maxIt := max(s.TabuMaxIterations*n, 1)
	minIt := min(max(s.TabuMinIterations*n, 0), maxIt)
	patience := max(minIt, 1)
	listSize := min(n, max(1, int(math.Ceil(s.CandidateListSize*float64(n)))))
	tenure := max(s.Tenure, 0)

	for _, f := range members {
		sv.tabuUntil[f] = 0
	}
	best := make([]int, n)
	sv.snapshot(members, best)
	bestCost := sv.cost

	order := slices.Clone(members)
	stall := 0
	for it := 0; it < maxIt; it++ {
		if sv.canceled() {
			return true
		}
		sv.iterations++
		sv.rankByGain(order)

		var move []change
		moveDelta := math.Inf(1)
		for _, f := range order[:listSize] {
			ch, d := sv.chain(f)
			if len(ch) == 0 {
				continue
			}
			if sv.tabuUntil[f] > it && sv.cost+d >= bestCost-epsilon {
				continue
			}
			if d < moveDelta {
				move, moveDelta = ch, d
			}
		}
		if move == nil {
			break
		}

		for _, c := range move {
			sv.sol[c.feat] = c.to
			sv.tabuUntil[c.feat] = it + 1 + tenure
		}
		sv.cost += moveDelta
		if sv.cost < bestCost-epsilon {
			bestCost = sv.cost
			sv.snapshot(members, best)
			stall = 0
		} else {
			stall++
		}
		if it+1 >= minIt && stall >= patience {
			break
		}
	}

	for i, f := range members {
		sv.sol[f] = best[i]
	}
	sv.cost = bestCost
	return false
}

func (sv *solver) snapshot(members, dst []int) {
	for i, f := range members {
		dst[i] = sv.sol[f]
	}
}

// rankByGain orders features by how much they could gain by switching to
// their cheapest candidate, largest first.
func (sv *solver) rankByGain(order []int) {
	slices.SortFunc(order, func(a, b int) int {
		ga, gb := sv.labelCost(a)-sv.floor[a], sv.labelCost(b)-sv.floor[b]
		if c := cmp.Compare(gb, ga); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

// chain builds an ejection chain starting at seed and returns the best
// prefix of it with its objective delta. The seed's label is removed and the
// seed is re-placed on its best other candidate. Labels in the way are
// ejected; when exactly one is ejected the chain continues by re-placing it,
// for at most EjectionChainDegree placements. Every prefix leaves a
// conflict-free assignment. The solver state is unchanged on return.
func (sv *solver) chain(seed int) ([]change, float64) {
	sv.stamp++
	var trail []change
	apply := func(f, to int) {
		trail = append(trail, change{feat: f, from: sv.sol[f], to: to})
		sv.sol[f] = to
	}
	defer func() {
		for i := len(trail) - 1; i >= 0; i-- {
			sv.sol[trail[i].feat] = trail[i].from
		}
	}()

	delta := 0.0
	best, bestLen := math.Inf(1), 0
	exclude := sv.sol[seed]
	if exclude >= 0 {
		delta += sv.inactive(seed) - sv.candCost(exclude)
		apply(seed, -1)
		best, bestLen = delta, len(trail)
	}
	sv.visited[seed] = sv.stamp

	var conflicts, ejected []int
	cur := seed
	for range max(sv.settings.EjectionChainDegree, 1) {
		choice, choiceDelta := -1, math.Inf(1)
		start, end := sv.featRange(cur)
		for c := start; c < end; c++ {
			if !sv.alive[c] || (cur == seed && c == exclude) {
				continue
			}
			d, ok := sv.placementDelta(cur, c, &conflicts)
			if !ok {
				continue
			}
			if d < choiceDelta || (d == choiceDelta && len(conflicts) < len(ejected)) {
				choice, choiceDelta = c, d
				ejected = append(ejected[:0], conflicts...)
			}
		}
		if choice < 0 {
			break
		}

		apply(cur, choice)
		for _, g := range ejected {
			apply(g, -1)
		}
		delta += choiceDelta
		if delta < best {
			best, bestLen = delta, len(trail)
		}
		if len(ejected) != 1 {
			break
		}
		cur = ejected[0]
		sv.visited[cur] = sv.stamp
	}
	return slices.Clone(trail[:bestLen]), best
}

// placementDelta returns the objective change of labeling the unlabeled
// feature f with candidate c, ejecting the active labels that conflict with
// it. Those features are stored in conflicts. It reports false when a
// conflicting label cannot be ejected because it is fixed or already part of
// the chain.
func (sv *solver) placementDelta(f, c int, conflicts *[]int) (float64, bool) {
	*conflicts = (*conflicts)[:0]
	d := sv.candCost(c) - sv.inactive(f)
	for _, o := range sv.adj[c] {
		g := sv.featOf(o)
		if sv.sol[g] != o {
			continue
		}
		if !sv.movable[g] || sv.visited[g] == sv.stamp {
			return 0, false
		}
		*conflicts = append(*conflicts, g)
		d += sv.inactive(g) - sv.candCost(o)
	}
	return d, true
}
