package pal

// optimize improves the initial solution. Problems with at most
// PopmusicRadius free features are searched as a whole; larger ones are
// decomposed into parts of PopmusicRadius features grown around a seed over
// the feature conflict graph, each searched with the rest of the map frozen.
// A part whose search improves the objective re-opens its members as seeds.
// It reports true when canceled.
func (sv *solver) optimize() bool {
	var free []int
	for f, fixed := range sv.fixed {
		if !fixed {
			free = append(free, f)
		}
	}
	if len(free) == 0 {
		return false
	}

	radius := max(sv.settings.PopmusicRadius, 1)
	if len(free) <= radius {
		sv.setMovable(free, true)
		defer sv.setMovable(free, false)
		return sv.search(free)
	}

	graph := sv.featureGraph()
	open := make([]bool, len(sv.fixed))
	queue := make([]int, 0, len(free))
	for _, f := range free {
		open[f] = true
		queue = append(queue, f)
	}

	for len(queue) > 0 {
		seed := queue[0]
		queue = queue[1:]
		open[seed] = false

		part := sv.grow(seed, graph, radius)
		before := sv.cost
		sv.setMovable(part, true)
		canceled := sv.search(part)
		sv.setMovable(part, false)
		if canceled {
			return true
		}
		if sv.cost >= before-epsilon {
			continue
		}
		for _, f := range part {
			if f != seed && !open[f] {
				open[f] = true
				queue = append(queue, f)
			}
		}
	}
	return false
}

func (sv *solver) setMovable(feats []int, movable bool) {
	for _, f := range feats {
		sv.movable[f] = movable
	}
}

// featureGraph links features having at least one pair of conflicting
// remaining candidates. Neighbours are listed in candidate id order.
func (sv *solver) featureGraph() [][]int {
	n := len(sv.fixed)
	graph := make([][]int, n)
	seen := make([]int, n)
	for f := range seen {
		seen[f] = -1
	}
	for f := range n {
		start, end := sv.featRange(f)
		for c := start; c < end; c++ {
			if !sv.alive[c] {
				continue
			}
			for _, o := range sv.adj[c] {
				g := sv.featOf(o)
				if sv.alive[o] && seen[g] != f {
					seen[g] = f
					graph[f] = append(graph[f], g)
				}
			}
		}
	}
	return graph
}

// grow collects up to size free features reachable from seed, breadth first.
func (sv *solver) grow(seed int, graph [][]int, size int) []int {
	sv.stamp++
	part := []int{seed}
	sv.visited[seed] = sv.stamp
	for i := 0; i < len(part) && len(part) < size; i++ {
		for _, g := range graph[part[i]] {
			if len(part) == size {
				break
			}
			if sv.fixed[g] || sv.visited[g] == sv.stamp {
				continue
			}
			sv.visited[g] = sv.stamp
			part = append(part, g)
		}
	}
	return part
}
