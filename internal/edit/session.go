package edit

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/metrics"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
)

// ErrUnsaved is returned when linking from a node that has no payload yet.
var ErrUnsaved = errors.New("save this action before linking it")

// Session edits one cutscene (level, angle) of a social link. Every method
// either applies its change completely or returns an error and leaves the
// link untouched.
type Session struct {
	link  *sociallink.SocialLink
	level int
	angle int
	g     *graph.Graph
}

// Open starts a session, creating the cutscene if it does not exist yet.
func Open(link *sociallink.SocialLink, level, angle int) (*Session, error) {
	if err := sociallink.ValidLevel(level); err != nil {
		return nil, err
	}
	if angle < 0 {
		return nil, fmt.Errorf("%w: angle %d < 0", sociallink.ErrInvalidLevel, angle)
	}
	return &Session{link: link, level: level, angle: angle, g: link.StartLink(level, angle)}, nil
}

func (s *Session) Level() int { return s.level }
func (s *Session) Angle() int { return s.angle }
func (s *Session) Graph() *graph.Graph { return s.g }

// SaveAction stores the action described by f at index, keeping the node's
// relations. index must be an existing node or the next free index.
func (s *Session) SaveAction(index int, f Form) (action.Payload, error) {
	if !s.g.Has(index) && index != s.g.NextIndex() {
		return nil, s.fail("save_action", fmt.Errorf("save action %d: %w", index, graph.ErrIndexOutOfRange))
	}
	p, err := f.Payload()
	if err != nil {
		return nil, s.fail("save_action", err)
	}
	if err := s.g.SetItem(p, index); err != nil {
		return nil, s.fail("save_action", err)
	}
	s.ok("save_action")
	return p, nil
}

// Connect adds the relation from → to. Both nodes must exist and from must
// have been saved.
func (s *Session) Connect(from, to int) error {
	if err := s.requireSaved(from); err != nil {
		return s.fail("connect", err)
	}
	if !s.g.Has(to) {
		return s.fail("connect", fmt.Errorf("connect to %d: %w", to, graph.ErrIndexOutOfRange))
	}
	if err := s.g.AddRelation(from, to); err != nil {
		return s.fail("connect", err)
	}
	s.ok("connect")
	return nil
}

// ConnectNew links from to a fresh placeholder and returns its index.
func (s *Session) ConnectNew(from int) (int, error) {
	if err := s.requireSaved(from); err != nil {
		return 0, s.fail("connect_new", err)
	}
	to := s.g.NextIndex()
	if err := s.g.AddRelation(from, to); err != nil {
		return 0, s.fail("connect_new", err)
	}
	s.ok("connect_new")
	return to, nil
}

// Disconnect removes the relation from → to. A target left without any
// incoming relation is deleted along with whatever that orphans in turn.
func (s *Session) Disconnect(from, to int) ([]int, error) {
	deleted, err := s.g.DelRelation(from, to)
	if err != nil {
		return nil, s.fail("disconnect", err)
	}
	metrics.NodesDeleted.Add(float64(len(deleted)))
	s.ok("disconnect")
	return deleted, nil
}

// PreviewDelete returns the nodes Delete(index) would remove.
func (s *Session) PreviewDelete(index int) ([]int, error) {
	return s.g.UniqueSubtree(index)
}

// Delete removes index together with every node only reachable through it.
func (s *Session) Delete(index int) ([]int, error) {
	deleted, err := s.g.DeleteUnique(index)
	if err != nil {
		return nil, s.fail("delete", err)
	}
	metrics.NodesDeleted.Add(float64(len(deleted)))
	s.ok("delete")
	return deleted, nil
}

// SetRequirement stores the requirement to reach this session's level on
// the given angle.
func (s *Session) SetRequirement(angle int, f Form) (sociallink.Requirement, error) {
	r, err := f.Requirement()
	if err != nil {
		return r, s.fail("requirement", err)
	}
	if err := s.link.SetRequirement(s.level, angle, r); err != nil {
		return r, s.fail("requirement", err)
	}
	s.ok("requirement")
	return r, nil
}

// SetCutInfo stores the note shown for this cutscene.
func (s *Session) SetCutInfo(text string) {
	s.link.SetCutInfo(s.level, s.angle, text)
	s.ok("cutinfo")
}

// SetFinalPersona records the persona unlocked by maxing the link on this
// session's angle. Only the last level carries one.
func (s *Session) SetFinalPersona(persona string) error {
	if s.level != sociallink.MaxLevel {
		return s.fail("final_persona", fmt.Errorf("%w: final persona is set at level %d, not %d",
			sociallink.ErrInvalidLevel, sociallink.MaxLevel, s.level))
	}
	s.link.SetFinalPersona(s.angle, persona)
	s.ok("final_persona")
	return nil
}

func (s *Session) requireSaved(i int) error {
	if !s.g.Has(i) {
		return fmt.Errorf("node %d: %w", i, graph.ErrIndexOutOfRange)
	}
	if !s.g.Saved(i) {
		return fmt.Errorf("node %d: %w", i, ErrUnsaved)
	}
	return nil
}

func (s *Session) ok(op string) { metrics.Edits.WithLabelValues(op, "ok").Inc() }

func (s *Session) fail(op string, err error) error {
	metrics.Edits.WithLabelValues(op, "error").Inc()
	return err
}
