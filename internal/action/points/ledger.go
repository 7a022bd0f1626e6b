package points

import (
	"maps"
	"slices"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
)

// Ledger accumulates the social link deltas awarded by Speak actions.
// Points raise a link's progress toward its next level; angle deltas steer
// which angle of a level the player ends up on.
type Ledger struct {
	points map[string]int
	angle  map[string]int
}

func New() *Ledger {
	return &Ledger{
		points: make(map[string]int),
		angle:  make(map[string]int),
	}
}

// Apply adds the deltas carried by p. Non-Speak payloads award nothing and
// report false.
func (l *Ledger) Apply(p action.Payload) bool {
	s, ok := p.(*action.Speak)
	if !ok {
		return false
	}
	for arcana, delta := range s.Points() {
		l.points[arcana] += delta
	}
	for arcana, delta := range s.Angle() {
		l.angle[arcana] += delta
	}
	return true
}

func (l *Ledger) Points(arcana string) int { return l.points[arcana] }
func (l *Ledger) Angle(arcana string) int  { return l.angle[arcana] }

// Arcana returns every arcana touched so far, sorted.
func (l *Ledger) Arcana() []string {
	seen := make(map[string]struct{}, len(l.points)+len(l.angle))
	for k := range l.points {
		seen[k] = struct{}{}
	}
	for k := range l.angle {
		seen[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Snapshot is a copy of the ledger suitable for JSON output.
type Snapshot struct {
	Points map[string]int `json:"points"`
	Angle  map[string]int `json:"angle"`
}

func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{Points: maps.Clone(l.points), Angle: maps.Clone(l.angle)}
}
