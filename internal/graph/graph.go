package graph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
)

// Root is the index of the entry node of every cutscene.
const Root = 0

var (
	// ErrIndexOutOfRange is returned when reading a node that was never
	// materialized or has been deleted.
	ErrIndexOutOfRange = errors.New("node index out of range")
	// ErrNoRelation is returned when removing a relation that does not exist.
	ErrNoRelation = errors.New("relation does not exist")
)

type node struct {
	payload    action.Payload // nil = cached but unsaved placeholder
	successors []int
}

// Graph is a unidirectional, multi-input, cycle-tolerant directed graph of
// cutscene actions. Nodes are addressed by index; index 0 is the root.
//
// Storage is dense: writing to index i materializes every index below it as
// an empty placeholder. Deleted nodes leave a tombstone so the indices of
// surviving nodes never shift within a session; tombstones are compacted
// away when the graph is serialized.
type Graph struct {
	id    string
	slots []*node // nil = tombstone
}

// New allocates an empty Graph.
func New(id string) *Graph {
	return &Graph{id: id}
}

func (g *Graph) ID() string { return g.id }

// Size returns the number of materialized nodes, placeholders included.
func (g *Graph) Size() int {
	n := 0
	for _, s := range g.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// NextIndex returns the first index that has never been used. New elements
// are allocated here so they never collide with a tombstone.
func (g *Graph) NextIndex() int { return len(g.slots) }

// Has reports whether index i holds a node (placeholder or saved).
func (g *Graph) Has(i int) bool {
	_, ok := g.live(i)
	return ok
}

// Saved reports whether the node at i carries a payload.
func (g *Graph) Saved(i int) bool {
	n, ok := g.live(i)
	return ok && n.payload != nil
}

// Item returns the payload at i; nil for a placeholder.
func (g *Graph) Item(i int) (action.Payload, error) {
	n, ok := g.live(i)
	if !ok {
		return nil, fmt.Errorf("item %d: %w", i, ErrIndexOutOfRange)
	}
	return n.payload, nil
}

// SetItem overwrites the payload at i, materializing storage up to i.
// Existing relations of the node are kept.
func (g *Graph) SetItem(p action.Payload, i int) error {
	if i < 0 {
		return fmt.Errorf("set item %d: %w", i, ErrIndexOutOfRange)
	}
	g.ensure(i).payload = p
	return nil
}

// Relations returns a copy of the successor list of i. An empty graph has no
// relations anywhere.
func (g *Graph) Relations(i int) ([]int, error) {
	if len(g.slots) == 0 {
		return nil, nil
	}
	n, ok := g.live(i)
	if !ok {
		return nil, fmt.Errorf("relations of %d: %w", i, ErrIndexOutOfRange)
	}
	return slices.Clone(n.successors), nil
}

// AddRelation appends j to the successors of i unless it is already there.
// Both ends are materialized if needed. Self-loops and cycles are allowed.
func (g *Graph) AddRelation(i, j int) error {
	if i < 0 || j < 0 {
		return fmt.Errorf("add relation %d→%d: %w", i, j, ErrIndexOutOfRange)
	}
	from := g.ensure(i)
	g.ensure(j)
	if !slices.Contains(from.successors, j) {
		from.successors = append(from.successors, j)
	}
	return nil
}

// DelRelation removes j from the successors of i. If no node points to j
// afterwards, j is deleted with DelItem, which may cascade further. The root
// is never collected this way. The indices of every deleted node are returned.
func (g *Graph) DelRelation(i, j int) ([]int, error) {
	from, ok := g.live(i)
	if !ok {
		return nil, fmt.Errorf("del relation %d→%d: %w", i, j, ErrIndexOutOfRange)
	}
	at := slices.Index(from.successors, j)
	if at < 0 {
		return nil, fmt.Errorf("del relation %d→%d: %w", i, j, ErrNoRelation)
	}
	from.successors = slices.Delete(from.successors, at, at+1)

	if j == Root || !g.Has(j) || len(g.Predecessors(j)) > 0 {
		return nil, nil
	}
	return g.DelItem(j), nil
}

// DelItem detaches i from the graph and deletes it. Any successor left with
// no incoming edge is deleted too, transitively. This only collects nodes
// with zero remaining in-edges; see UniqueSubtree for the full cascade scope.
// It returns the sorted indices of every deleted node.
func (g *Graph) DelItem(i int) []int {
	if !g.Has(i) {
		return nil
	}
	var deleted []int
	work := []int{i}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		n, ok := g.live(cur)
		if !ok {
			continue
		}
		successors := n.successors
		n.successors = nil
		for _, other := range g.slots {
			if other == nil {
				continue
			}
			if at := slices.Index(other.successors, cur); at >= 0 {
				other.successors = slices.Delete(other.successors, at, at+1)
			}
		}
		g.slots[cur] = nil
		deleted = append(deleted, cur)

		for _, s := range successors {
			if s == Root || s == cur || !g.Has(s) {
				continue
			}
			if len(g.Predecessors(s)) == 0 {
				work = append(work, s)
			}
		}
	}
	slices.Sort(deleted)
	return deleted
}

// Predecessors returns the sorted indices of nodes that have j as a successor.
func (g *Graph) Predecessors(j int) []int {
	var out []int
	for idx, n := range g.slots {
		if n != nil && slices.Contains(n.successors, j) {
			out = append(out, idx)
		}
	}
	return out
}

// Indices returns the indices of every materialized node in ascending order.
func (g *Graph) Indices() []int {
	out := make([]int, 0, len(g.slots))
	for idx, n := range g.slots {
		if n != nil {
			out = append(out, idx)
		}
	}
	return out
}

// IDs lists the labels of the saved nodes in index order. Enumeration stops
// at the first node without a payload, so a placeholder in the middle hides
// everything after it. A label already listed gets its position appended.
func (g *Graph) IDs() []string {
	var out []string
	for _, n := range g.slots {
		if n == nil || n.payload == nil {
			break
		}
		label := n.payload.Label()
		if slices.Contains(out, label) {
			label += strconv.Itoa(len(out))
		}
		out = append(out, label)
	}
	return out
}

// Node is a read-only view of one materialized node.
type Node struct {
	Index      int
	Payload    action.Payload
	Successors []int
}

// Nodes returns a view of every materialized node in index order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.slots))
	for idx, n := range g.slots {
		if n == nil {
			continue
		}
		out = append(out, Node{Index: idx, Payload: n.payload, Successors: slices.Clone(n.successors)})
	}
	return out
}

func (g *Graph) live(i int) (*node, bool) {
	if i < 0 || i >= len(g.slots) || g.slots[i] == nil {
		return nil, false
	}
	return g.slots[i], true
}

// ensure materializes index i (and every index below it) and returns its node.
// A tombstone at i is replaced by a fresh placeholder.
func (g *Graph) ensure(i int) *node {
	for len(g.slots) <= i {
		g.slots = append(g.slots, &node{})
	}
	if g.slots[i] == nil {
		g.slots[i] = &node{}
	}
	return g.slots[i]
}
