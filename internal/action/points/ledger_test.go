package points

import (
	"reflect"
	"testing"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
)

func TestLedger_Apply(t *testing.T) {
	l := New()

	first := action.NewSpeak("Yukari", "Thanks.")
	first.PutPoints("Lovers", 2)
	first.PutAngle("Lovers", 1)
	second := action.NewSpeak("Yukari", "Really.")
	second.PutPoints("Lovers", 3)
	second.PutPoints("Fool", -1)

	if !l.Apply(first) || !l.Apply(second) {
		t.Fatal("Apply(speak) should report true")
	}
	if l.Apply(action.NewInfo("not a line")) {
		t.Error("Apply(info) should report false")
	}

	if got := l.Points("Lovers"); got != 5 {
		t.Errorf("Points(Lovers) = %d, want 5", got)
	}
	if got := l.Points("Fool"); got != -1 {
		t.Errorf("Points(Fool) = %d, want -1", got)
	}
	if got := l.Angle("Lovers"); got != 1 {
		t.Errorf("Angle(Lovers) = %d, want 1", got)
	}
	if got := l.Arcana(); !reflect.DeepEqual(got, []string{"Fool", "Lovers"}) {
		t.Errorf("Arcana() = %v", got)
	}

	snap := l.Snapshot()
	snap.Points["Lovers"] = 100
	if l.Points("Lovers") != 5 {
		t.Error("Snapshot must not alias ledger state")
	}
}
