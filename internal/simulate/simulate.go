package simulate

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/action/points"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/metrics"
)

var (
	ErrFinished       = errors.New("cutscene has ended")
	ErrChoiceRequired = errors.New("a choice is required")
	ErrNoChoice       = errors.New("no choice pending")
	ErrStepLimit      = errors.New("step limit reached")
)

// DefaultStepLimit bounds Play on cutscenes that loop forever.
const DefaultStepLimit = 10000

// Step is one displayed node of a run.
type Step struct {
	Index  int         `json:"index"`
	Kind   action.Kind `json:"kind,omitempty"`
	Text   string      `json:"text"`
	Chosen bool        `json:"chosen,omitempty"` // picked as a response
}

// Choice is one response offered when a node has several successors.
type Choice struct {
	Label  string `json:"label"`
	Via    int    `json:"via"`    // the response node
	Target int    `json:"target"` // where picking it continues
}

// Run plays a cutscene from its root. A node with one successor advances
// with Next; a node with several offers Choices; a node with none ends the
// run. Points and angle deltas of every played Speak line are collected in
// the ledger.
type Run struct {
	g      *graph.Graph
	cur    int
	ledger *points.Ledger
}

// Start begins a run at the root.
func Start(g *graph.Graph) (*Run, error) {
	if !g.Has(graph.Root) {
		return nil, fmt.Errorf("start: %w", graph.ErrIndexOutOfRange)
	}
	r := &Run{g: g, ledger: points.New()}
	r.enter(graph.Root)
	return r, nil
}

func (r *Run) Current() int { return r.cur }
func (r *Run) Ledger() *points.Ledger { return r.ledger }

// Step describes the current node.
func (r *Run) Step() Step { return r.describe(r.cur) }

// Done reports whether the current node has no successor.
func (r *Run) Done() bool { return len(r.successors(r.cur)) == 0 }

// Choices lists the responses of the current node; nil unless it has more
// than one successor. A response node with exactly one successor is skipped
// over when picked.
func (r *Run) Choices() []Choice {
	succ := r.successors(r.cur)
	if len(succ) < 2 {
		return nil
	}
	out := make([]Choice, 0, len(succ))
	for _, via := range succ {
		c := Choice{Label: r.describe(via).Text, Via: via, Target: via}
		if next := r.successors(via); len(next) == 1 {
			c.Target = next[0]
		}
		if p, _ := r.g.Item(via); p != nil {
			c.Label = p.Label()
		}
		out = append(out, c)
	}
	return out
}

// Next advances a node with a single successor.
func (r *Run) Next() error {
	succ := r.successors(r.cur)
	switch len(succ) {
	case 0:
		return ErrFinished
	case 1:
		r.enter(succ[0])
		return nil
	default:
		return ErrChoiceRequired
	}
}

// Choose picks response k of Choices. The response line's deltas are
// applied even when the run skips past it.
func (r *Run) Choose(k int) (Choice, error) {
	choices := r.Choices()
	if choices == nil {
		return Choice{}, ErrNoChoice
	}
	if k < 0 || k >= len(choices) {
		return Choice{}, fmt.Errorf("choice %d of %d: %w", k, len(choices), graph.ErrIndexOutOfRange)
	}
	c := choices[k]
	if c.Target != c.Via {
		r.apply(c.Via)
	}
	r.enter(c.Target)
	return c, nil
}

func (r *Run) enter(i int) {
	r.cur = i
	r.apply(i)
}

func (r *Run) apply(i int) {
	metrics.SimulationSteps.Inc()
	if p, _ := r.g.Item(i); p != nil {
		r.ledger.Apply(p)
	}
}

func (r *Run) successors(i int) []int {
	succ, _ := r.g.Relations(i)
	return succ
}

func (r *Run) describe(i int) Step {
	p, err := r.g.Item(i)
	if err != nil || p == nil {
		return Step{Index: i, Text: "(unsaved action)"}
	}
	return Step{Index: i, Kind: p.Kind(), Text: Describe(p)}
}

// Describe renders a payload the way a player would see it.
func Describe(p action.Payload) string {
	switch a := p.(type) {
	case *action.Speak:
		return a.Speaker() + ": " + a.Text()
	case *action.Camera:
		return "Camera is being changed in/to " + a.Place()
	case *action.Movement:
		return a.Subject() + " is performing a " + a.Animation() + " action"
	default:
		return p.Label()
	}
}

// Play runs g to the end, answering each choice with the next entry of
// picks. It returns the transcript and the collected ledger. Running out of
// picks at a choice returns ErrChoiceRequired along with the transcript so
// far. limit <= 0 means DefaultStepLimit.
func Play(g *graph.Graph, picks []int, limit int) ([]Step, *points.Ledger, error) {
	if limit <= 0 {
		limit = DefaultStepLimit
	}
	r, err := Start(g)
	if err != nil {
		return nil, nil, err
	}
	transcript := []Step{r.Step()}
	for !r.Done() {
		if len(transcript) >= limit {
			return transcript, r.ledger, ErrStepLimit
		}
		if r.Choices() == nil {
			if err := r.Next(); err != nil {
				return transcript, r.ledger, err
			}
			transcript = append(transcript, r.Step())
			continue
		}
		if len(picks) == 0 {
			return transcript, r.ledger, ErrChoiceRequired
		}
		c, err := r.Choose(picks[0])
		if err != nil {
			return transcript, r.ledger, err
		}
		picks = picks[1:]
		chosen := r.describe(c.Via)
		chosen.Chosen = true
		transcript = append(transcript, chosen)
		if c.Target != c.Via {
			transcript = append(transcript, r.Step())
		}
	}
	return transcript, r.ledger, nil
}
