package pal

import "container/heap"

// candidateQueue is an indexed min-heap of candidate ids. Positions are
// tracked so entries can be removed or re-keyed in place.
type candidateQueue struct {
	items []int
	pos   []int
	less  func(a, b int) bool
}

func newCandidateQueue(size int, less func(a, b int) bool) *candidateQueue {
	pos := make([]int, size)
	for i := range pos {
		pos[i] = -1
	}
	return &candidateQueue{pos: pos, less: less}
}

func (q *candidateQueue) Len() int           { return len(q.items) }
func (q *candidateQueue) Less(i, j int) bool { return q.less(q.items[i], q.items[j]) }

func (q *candidateQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.pos[q.items[i]] = i
	q.pos[q.items[j]] = j
}

func (q *candidateQueue) Push(x any) {
	id := x.(int)
	q.pos[id] = len(q.items)
	q.items = append(q.items, id)
}

func (q *candidateQueue) Pop() any {
	n := len(q.items)
	id := q.items[n-1]
	q.items = q.items[:n-1]
	q.pos[id] = -1
	return id
}

func (q *candidateQueue) insert(id int)        { heap.Push(q, id) }
func (q *candidateQueue) popMin() int          { return heap.Pop(q).(int) }
func (q *candidateQueue) remove(id int)        { heap.Remove(q, q.pos[id]) }
func (q *candidateQueue) update(id int)        { heap.Fix(q, q.pos[id]) }
func (q *candidateQueue) contains(id int) bool { return q.pos[id] >= 0 }
