package graph_test

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
)

// buildGraph creates nodes 0..n-1 labelled "n<i>" and the given edges.
func buildGraph(t *testing.T, n int, edges ...[2]int) *graph.Graph {
	t.Helper()
	g := graph.New("test")
	for i := 0; i < n; i++ {
		if err := g.SetItem(action.NewInfo(fmt.Sprintf("n%d", i)), i); err != nil {
			t.Fatalf("SetItem(%d) error: %v", i, err)
		}
	}
	for _, e := range edges {
		if err := g.AddRelation(e[0], e[1]); err != nil {
			t.Fatalf("AddRelation(%d, %d) error: %v", e[0], e[1], err)
		}
	}
	return g
}

func relations(t *testing.T, g *graph.Graph, i int) []int {
	t.Helper()
	rel, err := g.Relations(i)
	if err != nil {
		t.Fatalf("Relations(%d) error: %v", i, err)
	}
	return rel
}

func TestSetItem_MaterializesPlaceholders(t *testing.T) {
	g := graph.New("test")
	if err := g.SetItem(action.NewInfo("late"), 3); err != nil {
		t.Fatalf("SetItem error: %v", err)
	}
	if g.Size() != 4 {
		t.Errorf("Size() = %d, want 4", g.Size())
	}
	for i := 0; i < 3; i++ {
		p, err := g.Item(i)
		if err != nil {
			t.Fatalf("Item(%d) error: %v", i, err)
		}
		if p != nil || g.Saved(i) {
			t.Errorf("index %d should be an unsaved placeholder, got %v", i, p)
		}
	}
	if !g.Saved(3) {
		t.Error("index 3 should be saved")
	}
}

func TestItem_OutOfRange(t *testing.T) {
	g := buildGraph(t, 2)
	if _, err := g.Item(5); !errors.Is(err, graph.ErrIndexOutOfRange) {
		t.Errorf("Item(5) error = %v, want ErrIndexOutOfRange", err)
	}
	if g.Size() != 2 {
		t.Errorf("reads must not materialize nodes, Size() = %d", g.Size())
	}
}

func TestRelations_EmptyGraph(t *testing.T) {
	g := graph.New("empty")
	rel, err := g.Relations(0)
	if err != nil || len(rel) != 0 {
		t.Errorf("Relations on empty graph = (%v, %v), want empty", rel, err)
	}
}

func TestAddRelation(t *testing.T) {
	g := buildGraph(t, 2)
	if err := g.AddRelation(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.AddRelation(0, 1); err != nil {
		t.Fatal(err)
	}
	if got := relations(t, g, 0); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("AddRelation must be idempotent, got %v", got)
	}

	// Target beyond current storage is materialized as a placeholder.
	if err := g.AddRelation(1, 4); err != nil {
		t.Fatal(err)
	}
	if g.Size() != 5 || g.Saved(4) || !g.Has(4) {
		t.Errorf("expected placeholder at 4, Size()=%d", g.Size())
	}

	// Self loops are allowed.
	if err := g.AddRelation(1, 1); err != nil {
		t.Fatal(err)
	}
	if got := relations(t, g, 1); !reflect.DeepEqual(got, []int{4, 1}) {
		t.Errorf("Relations(1) = %v, want [4 1]", got)
	}
}

func TestDelRelation_KeepsSharedTarget(t *testing.T) {
	// 0→1, 0→2, 1→3, 2→3
	g := buildGraph(t, 4, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3})
	deleted, err := g.DelRelation(1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 0 || !g.Has(3) {
		t.Errorf("node 3 still has an in-edge from 2 and must survive, deleted=%v", deleted)
	}
	if got := relations(t, g, 1); len(got) != 0 {
		t.Errorf("Relations(1) = %v, want empty", got)
	}
}

func TestDelRelation_CascadesOrphans(t *testing.T) {
	// 0→1→2→3, 2→4
	g := buildGraph(t, 5, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3}, [2]int{2, 4})
	deleted, err := g.DelRelation(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 3, 4}; !reflect.DeepEqual(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
	if g.Size() != 1 || !g.Has(0) {
		t.Errorf("only the root should remain, Size()=%d", g.Size())
	}
}

func TestDelRelation_Errors(t *testing.T) {
	g := buildGraph(t, 2, [2]int{0, 1})
	if _, err := g.DelRelation(1, 0); !errors.Is(err, graph.ErrNoRelation) {
		t.Errorf("expected ErrNoRelation, got %v", err)
	}
	if _, err := g.DelRelation(7, 0); !errors.Is(err, graph.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestDelRelation_NeverCollectsRoot(t *testing.T) {
	// 0→1→0
	g := buildGraph(t, 2, [2]int{0, 1}, [2]int{1, 0})
	deleted, err := g.DelRelation(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 0 || !g.Has(graph.Root) {
		t.Errorf("root must not be collected, deleted=%v", deleted)
	}
}

func TestDelItem_NoDanglingReferences(t *testing.T) {
	// 0→1, 0→2, 1→3, 2→3, 3→1
	g := buildGraph(t, 4, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3}, [2]int{3, 1})
	g.DelItem(3)
	for _, idx := range g.Indices() {
		if slices.Contains(relations(t, g, idx), 3) {
			t.Errorf("node %d still points to deleted node 3", idx)
		}
	}
	if g.Has(3) {
		t.Error("node 3 should be gone")
	}
}

func TestDelItem_StableIndices(t *testing.T) {
	g := buildGraph(t, 4, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3})
	deleted := g.DelItem(1)
	if !reflect.DeepEqual(deleted, []int{1}) {
		t.Errorf("deleted = %v, want [1]", deleted)
	}
	p, err := g.Item(3)
	if err != nil || p.Label() != "n3" {
		t.Errorf("node 3 must keep its index after deleting 1, got %v, %v", p, err)
	}
	if g.NextIndex() != 4 {
		t.Errorf("NextIndex() = %d, want 4 (tombstones are not reused)", g.NextIndex())
	}
	if got := relations(t, g, 0); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("Relations(0) = %v, want [2 3]", got)
	}
}

func TestDelItem_OrphanCleanupIsShallow(t *testing.T) {
	// 0→1→2, 3→2: deleting 1 leaves 2 reachable from 3 only.
	g := buildGraph(t, 4, [2]int{0, 1}, [2]int{1, 2}, [2]int{3, 2})
	deleted := g.DelItem(1)
	if !reflect.DeepEqual(deleted, []int{1}) {
		t.Errorf("deleted = %v, want [1]", deleted)
	}
}

func TestIDs(t *testing.T) {
	g := graph.New("ids")
	_ = g.SetItem(action.NewInfo("hello"), 0)
	_ = g.SetItem(action.NewSpeak("Ken", "hello"), 1)
	_ = g.SetItem(action.NewCamera("Shrine", [3]int{}, [3]int{}), 2)
	_ = g.SetItem(action.NewMovement("Shinjiro", [2]int{}, "lean"), 3)
	// 4 stays a placeholder, 5 is saved but hidden behind it.
	_ = g.SetItem(action.NewInfo("hidden"), 5)

	want := []string{"hello", "hello1", "Shrine", "Shinjiro"}
	if got := g.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}
