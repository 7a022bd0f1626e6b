package graph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
)

// Row is the serialized form of one node: the payload record followed by
// the successor indices. Successors may be JSON numbers or numeric strings.
type Row []json.RawMessage

// CorruptGraphError is returned when a serialized row cannot be loaded.
type CorruptGraphError struct {
	Row int
	Err error
}

func (e *CorruptGraphError) Error() string {
	return fmt.Sprintf("corrupt graph row %d: %v", e.Row, e.Err)
}

func (e *CorruptGraphError) Unwrap() error { return e.Err }

// Load builds a graph from its serialized rows. Row k becomes node k; an
// empty row or a null payload yields a placeholder.
func Load(id string, rows []Row) (*Graph, error) {
	g := New(id)
	for k, row := range rows {
		g.ensure(k)
		if len(row) == 0 {
			continue
		}
		p, err := decodePayload(row[0])
		if err != nil {
			return nil, &CorruptGraphError{Row: k, Err: err}
		}
		if p != nil {
			if err := g.SetItem(p, k); err != nil {
				return nil, &CorruptGraphError{Row: k, Err: err}
			}
		}
		for col, cell := range row[1:] {
			j, err := decodeIndex(cell)
			if err != nil {
				return nil, &CorruptGraphError{Row: k, Err: fmt.Errorf("successor %d: %w", col, err)}
			}
			if err := g.AddRelation(k, j); err != nil {
				return nil, &CorruptGraphError{Row: k, Err: err}
			}
		}
	}
	return g, nil
}

func decodePayload(raw json.RawMessage) (action.Payload, error) {
	if isNull(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return action.Decode(rec)
}

func decodeIndex(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	j, ok := action.ToInt(v)
	if !ok || j < 0 {
		return 0, fmt.Errorf("invalid node index %s", string(raw))
	}
	return j, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Rows serializes the graph. Tombstones are compacted away and successor
// indices renumbered accordingly; a graph without deletions keeps its
// indices unchanged.
func (g *Graph) Rows() ([]Row, error) {
	renumber := make(map[int]int, len(g.slots))
	for _, idx := range g.Indices() {
		renumber[idx] = len(renumber)
	}

	rows := make([]Row, 0, len(renumber))
	for _, n := range g.slots {
		if n == nil {
			continue
		}
		row := make(Row, 0, 1+len(n.successors))
		if n.payload == nil {
			if len(n.successors) > 0 {
				row = append(row, json.RawMessage("null"))
			}
		} else {
			rec, err := json.Marshal(n.payload.Record())
			if err != nil {
				return nil, fmt.Errorf("marshal %s payload: %w", n.payload.Kind(), err)
			}
			row = append(row, rec)
		}
		for _, s := range n.successors {
			row = append(row, json.RawMessage(fmt.Sprint(renumber[s])))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type wireGraph struct {
	ID    string `json:"id"`
	Items []Row  `json:"items"`
}

// MarshalJSON encodes the graph as {"id": ..., "items": rows}.
func (g *Graph) MarshalJSON() ([]byte, error) {
	rows, err := g.Rows()
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireGraph{ID: g.id, Items: rows})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	loaded, err := Load(w.ID, w.Items)
	if err != nil {
		return err
	}
	*g = *loaded
	return nil
}
