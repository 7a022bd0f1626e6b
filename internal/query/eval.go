package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
)

// KindUnsaved is the kind reported for placeholder nodes.
const KindUnsaved = "unsaved"

// Fields is the searchable view of one node: "index", "kind", "label" and
// every key of the payload record.
type Fields map[string]any

// NodeFields builds the Fields of a graph node.
func NodeFields(n graph.Node) Fields {
	f := Fields{"index": n.Index, "kind": KindUnsaved, "label": ""}
	if n.Payload == nil {
		return f
	}
	for k, v := range n.Payload.Record() {
		f[k] = v
	}
	f["kind"] = string(n.Payload.Kind())
	f["label"] = n.Payload.Label()
	return f
}

// resolve walks a dotted path. Maps are indexed by key, lists by position.
func (f Fields) resolve(path []string) (any, bool) {
	var cur any = map[string]any(f)
	for _, part := range path {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]int:
			v, ok := c[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []int:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Match reports whether f satisfies the query. A comparison on a field f
// does not have is false.
func (q *Query) Match(f Fields) (bool, error) {
	return q.root.eval(f)
}

func (n *andNode) eval(f Fields) (bool, error) {
	l, err := n.left.eval(f)
	if err != nil || !l {
		return false, err
	}
	return n.right.eval(f)
}

func (n *orNode) eval(f Fields) (bool, error) {
	l, err := n.left.eval(f)
	if err != nil || l {
		return l, err
	}
	return n.right.eval(f)
}

func (n *notNode) eval(f Fields) (bool, error) {
	v, err := n.inner.eval(f)
	return !v, err
}

func (n *cmpNode) eval(f Fields) (bool, error) {
	got, ok := f.resolve(n.path)
	if !ok {
		return false, nil
	}
	switch n.op {
	case OpEq:
		return equal(got, n.value), nil
	case OpNeq:
		return !equal(got, n.value), nil
	case OpGt, OpGte, OpLt, OpLte:
		g, ok := number(got)
		if !ok {
			return false, nil
		}
		want := n.value.(float64)
		switch n.op {
		case OpGt:
			return g > want, nil
		case OpGte:
			return g >= want, nil
		case OpLt:
			return g < want, nil
		default:
			return g <= want, nil
		}
	case OpContains:
		return contains(got, n.value), nil
	case OpMatches:
		s, ok := got.(string)
		return ok && n.re.MatchString(s), nil
	default:
		return false, fmt.Errorf("unknown operator %s", n.op)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equal(got, want any) bool {
	if g, ok := number(got); ok {
		w, ok := want.(float64)
		return ok && g == w
	}
	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && g == w
	case bool:
		w, ok := want.(bool)
		return ok && g == w
	}
	return false
}

// contains is substring match on strings, membership on lists and key
// presence on maps.
func contains(got, want any) bool {
	switch g := got.(type) {
	case string:
		w, ok := want.(string)
		return ok && strings.Contains(g, w)
	case []int:
		w, ok := want.(float64)
		return ok && slices.Contains(g, int(w)) && float64(int(w)) == w
	case map[string]int:
		w, ok := want.(string)
		_, present := g[w]
		return ok && present
	}
	return false
}

// Find returns the indices of the nodes of g matching q, in index order.
func Find(g *graph.Graph, q *Query) ([]int, error) {
	var out []int
	for _, n := range g.Nodes() {
		ok, err := q.Match(NodeFields(n))
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.Index, err)
		}
		if ok {
			out = append(out, n.Index)
		}
	}
	return out, nil
}

// Kinds lists the values "kind" can take, for help texts.
func Kinds() []string {
	out := []string{KindUnsaved}
	for _, k := range action.DefaultRegistry().Kinds() {
		out = append(out, string(k))
	}
	return out
}
