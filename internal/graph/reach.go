package graph

import (
	"fmt"
	"maps"
	"slices"
)

// Closure returns every index reachable from i by following zero or more
// successor edges, i included, in ascending order.
func (g *Graph) Closure(i int) ([]int, error) {
	if !g.Has(i) {
		return nil, fmt.Errorf("closure of %d: %w", i, ErrIndexOutOfRange)
	}
	return sortedKeys(g.closure(i)), nil
}

// closure walks with an explicit stack; long linear cutscenes would
// otherwise recurse once per node.
func (g *Graph) closure(i int) map[int]struct{} {
	seen := map[int]struct{}{i: {}}
	stack := []int{i}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := g.live(cur)
		if !ok {
			continue
		}
		for _, s := range n.successors {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			stack = append(stack, s)
		}
	}
	return seen
}

// UniqueSubtree returns the nodes that are reachable only through i: the
// cascade scope shown to the user before deleting i. i itself is always
// part of the result.
//
// A node j of the closure of i stays in the result when every edge into j
// starts inside the closure. Otherwise j has an entry point from outside,
// so j and everything reachable from j are excluded. The root counts as
// having an outside entry (the start of the cutscene), so it is only ever
// part of its own unique subtree.
func (g *Graph) UniqueSubtree(i int) ([]int, error) {
	if !g.Has(i) {
		return nil, fmt.Errorf("unique subtree of %d: %w", i, ErrIndexOutOfRange)
	}
	full := g.closure(i)
	preds := g.predecessorIndex()

	excluded := make(map[int]struct{})
	for _, j := range sortedKeys(full) {
		if j == i {
			continue
		}
		if _, gone := excluded[j]; gone {
			continue
		}
		inside := 0
		for _, p := range preds[j] {
			if _, ok := full[p]; ok {
				inside++
			}
		}
		if j != Root && inside == len(preds[j]) {
			continue
		}
		for k := range g.closure(j) {
			excluded[k] = struct{}{}
		}
	}

	out := make([]int, 0, len(full))
	for k := range full {
		if _, gone := excluded[k]; gone && k != i {
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

// DeleteUnique deletes the unique subtree of i. The orphan cleanup of
// DelItem may remove a few more nodes; every deleted index is returned.
func (g *Graph) DeleteUnique(i int) ([]int, error) {
	scope, err := g.UniqueSubtree(i)
	if err != nil {
		return nil, err
	}
	deleted := make(map[int]struct{}, len(scope))
	for _, k := range scope {
		for _, d := range g.DelItem(k) {
			deleted[d] = struct{}{}
		}
	}
	return sortedKeys(deleted), nil
}

// predecessorIndex maps each index to the nodes that point at it.
func (g *Graph) predecessorIndex() map[int][]int {
	preds := make(map[int][]int)
	for idx, n := range g.slots {
		if n == nil {
			continue
		}
		for _, s := range n.successors {
			preds[s] = append(preds[s], idx)
		}
	}
	return preds
}

func sortedKeys(set map[int]struct{}) []int {
	return slices.Sorted(maps.Keys(set))
}
