package sociallink

import (
	"errors"
	"fmt"
)

// ErrInvalidRequirement is returned for stat or point values outside their range.
var ErrInvalidRequirement = errors.New("invalid requirement")

// Stat bounds for the protagonist attributes a level can require.
const (
	MinStat = 1
	MaxStat = 5
)

// Requirement is what the player needs to unlock a level at a given angle.
// A zero stat means the stat was never set.
type Requirement struct {
	Points  int `json:"points"`
	Courage int `json:"courage"`
	Charm   int `json:"charm"`
	Acad    int `json:"acad"`
}

// Validate checks that points are non-negative and that every stat is within
// MinStat..MaxStat.
func (r Requirement) Validate() error {
	if r.Points < 0 {
		return fmt.Errorf("%w: points %d < 0", ErrInvalidRequirement, r.Points)
	}
	for _, s := range []struct {
		name  string
		value int
	}{{"courage", r.Courage}, {"charm", r.Charm}, {"acad", r.Acad}} {
		if s.value < MinStat || s.value > MaxStat {
			return fmt.Errorf("%w: %s %d not in %d..%d", ErrInvalidRequirement, s.name, s.value, MinStat, MaxStat)
		}
	}
	return nil
}
