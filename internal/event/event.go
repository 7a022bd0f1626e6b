package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a change to a social link.
type Kind string

const (
	KindEdited      Kind = "edited"      // a cutscene or link metadata was mutated
	KindSaved       Kind = "saved"       // the link was written to the store
	KindInvalidated Kind = "invalidated" // the stored copy changed underneath us
	KindEvicted     Kind = "evicted"     // the link left the workspace cache
)

// Event describes one change to a social link held by the workspace.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Arcana     string    `json:"arcana"`
	Op         string    `json:"op,omitempty"` // editing operation, e.g. "delete"
	Level      int       `json:"level,omitempty"`
	Angle      int       `json:"angle"`
	Nodes      []int     `json:"nodes,omitempty"` // node indices touched
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with a fresh ID and the current time.
func New(kind Kind, arcana string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Arcana:     arcana,
		OccurredAt: time.Now().UTC(),
	}
}
