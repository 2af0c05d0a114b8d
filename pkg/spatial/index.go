// Package spatial provides a generic bounding-box index backed by an R-tree.
//
// An [Index] stores comparable items (usually pointers) together with their
// axis-aligned bounding boxes and answers range queries. Queries visit the
// matching items through a callback that may stop the walk early; the same
// walk is also available as a lazy [iter.Seq] via [Index.Items].
//
// Results are returned in insertion order, so a query over an unchanged index
// always yields the same sequence regardless of the tree's internal shape.
//
// Index is not safe for concurrent use. Callers that share an index between
// goroutines must guard it themselves.
package spatial

import (
	"iter"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	// minChildren and maxChildren bound the fan-out of R-tree nodes.
	minChildren = 25
	maxChildren = 50

	// minExtent is the side length given to degenerate boxes. The underlying
	// tree rejects zero-length sides, so points and axis-parallel segments
	// are padded to this width.
	minExtent = 1e-9

	// queryGrowth widens query boxes, relative to their coordinates, so the
	// tree reports boxes that touch the query. The tree itself treats
	// touching boxes as disjoint.
	queryGrowth = 1e-12
)

// entry is the value stored in the tree. It is always stored by pointer
// because rtreego deletes by interface equality.
type entry[T comparable] struct {
	item  T
	bound orb.Bound
	rect  rtreego.Rect
	seq   uint64
}

// Bounds implements rtreego.Spatial.
func (e *entry[T]) Bounds() rtreego.Rect {
	return e.rect
}

// Index is an R-tree of items keyed by their bounding box.
type Index[T comparable] struct {
	tree    *rtreego.Rtree
	entries map[T]*entry[T]
	seq     uint64
}

// New returns an empty index.
func New[T comparable]() *Index[T] {
	return &Index[T]{
		tree:    rtreego.NewTree(2, minChildren, maxChildren),
		entries: make(map[T]*entry[T]),
	}
}

// Len returns the number of items in the index.
func (ix *Index[T]) Len() int {
	return len(ix.entries)
}

// Insert adds item with bounding box b. Inserting an item that is already
// present replaces its box.
func (ix *Index[T]) Insert(item T, b orb.Bound) {
	if old, ok := ix.entries[item]; ok {
		ix.tree.Delete(old)
	}
	ix.seq++
	e := &entry[T]{item: item, bound: b, rect: toRect(b), seq: ix.seq}
	ix.entries[item] = e
	ix.tree.Insert(e)
}

// Remove deletes item from the index and reports whether it was present.
func (ix *Index[T]) Remove(item T) bool {
	e, ok := ix.entries[item]
	if !ok {
		return false
	}
	delete(ix.entries, item)
	return ix.tree.Delete(e)
}

// Contains reports whether item is in the index.
func (ix *Index[T]) Contains(item T) bool {
	_, ok := ix.entries[item]
	return ok
}

// Bound returns the bounding box item was inserted with.
func (ix *Index[T]) Bound(item T) (orb.Bound, bool) {
	e, ok := ix.entries[item]
	if !ok {
		return orb.Bound{}, false
	}
	return e.bound, true
}

// Search calls visit for every item whose box intersects b, in insertion
// order. Boundaries are inclusive: boxes that only touch b along an edge or
// at a corner match. When visit returns false the walk stops and Search
// returns false; otherwise Search returns true after every match has been
// visited.
//
// Matches are gathered before the first call to visit, so visit may modify
// the index; such changes are not seen by the walk in progress.
func (ix *Index[T]) Search(b orb.Bound, visit func(item T, bound orb.Bound) bool) bool {
	if len(ix.entries) == 0 {
		return true
	}
	for _, e := range ix.collect(queryRect(b)) {
		if !e.bound.Intersects(b) {
			continue
		}
		if !visit(e.item, e.bound) {
			return false
		}
	}
	return true
}

// All calls visit for every item in the index, in insertion order, with the
// same stop semantics as Search.
func (ix *Index[T]) All(visit func(item T, bound orb.Bound) bool) bool {
	entries := make([]*entry[T], 0, len(ix.entries))
	for _, e := range ix.entries {
		entries = append(entries, e)
	}
	sortBySeq(entries)
	for _, e := range entries {
		if !visit(e.item, e.bound) {
			return false
		}
	}
	return true
}

// Items returns a lazy sequence of the items intersecting b. The sequence is
// restartable; each iteration performs a fresh query.
func (ix *Index[T]) Items(b orb.Bound) iter.Seq[T] {
	return func(yield func(T) bool) {
		ix.Search(b, func(item T, _ orb.Bound) bool {
			return yield(item)
		})
	}
}

// Everything returns an unbounded box usable as a query that matches every
// item in an index.
func Everything() orb.Bound {
	const big = math.MaxFloat64 / 4
	return orb.Bound{Min: orb.Point{-big, -big}, Max: orb.Point{big, big}}
}

func (ix *Index[T]) collect(r rtreego.Rect) []*entry[T] {
	var matches []*entry[T]
	ix.tree.SearchIntersect(r, func(_ []rtreego.Spatial, obj rtreego.Spatial) (bool, bool) {
		matches = append(matches, obj.(*entry[T]))
		return true, false
	})
	sortBySeq(matches)
	return matches
}

func sortBySeq[T comparable](entries []*entry[T]) {
	slices.SortFunc(entries, func(a, b *entry[T]) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
}

// toRect converts an orb bound into an rtreego rectangle, padding degenerate
// sides so the tree accepts them.
func toRect(b orb.Bound) rtreego.Rect {
	x, w := pad(b.Min[0], b.Max[0])
	y, h := pad(b.Min[1], b.Max[1])
	r, err := rtreego.NewRect(rtreego.Point{x, y}, []float64{w, h})
	if err != nil {
		// Unreachable: pad guarantees strictly positive lengths.
		panic(err)
	}
	return r
}

// queryRect converts b like toRect, grown on every side so that boxes
// sharing an edge or corner with b overlap it inside the tree.
func queryRect(b orb.Bound) rtreego.Rect {
	d := minExtent
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		d = max(d, math.Abs(v)*queryGrowth)
	}
	return toRect(b.Pad(d))
}

func pad(lo, hi float64) (origin, length float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	length = hi - lo
	if length < minExtent {
		return lo - minExtent/2, length + minExtent
	}
	return lo, length
}
