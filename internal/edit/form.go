package edit

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
)

// Form is the raw input of one editor dialog: field name to typed text.
//
// Action forms carry a "kind" field and the fields of that kind:
//
//	info      text
//	speak     text, speaker, emotion, points.<arcana>, angle.<arcana>
//	camera    place, cameraPosition "x,y,z", lookAt "x,y,z"
//	movement  subject, destination "x,y", animation
//
// Requirement forms carry points, courage, charm and acad.
type Form map[string]string

// ValidationError reports a form field that could not be parsed. The edit
// it belongs to is rejected as a whole.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (f Form) text(field string) string { return strings.TrimSpace(f[field]) }

func (f Form) int(field string) (int, error) {
	raw := f.text(field)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: field, Value: f[field], Err: errNotInteger}
	}
	return n, nil
}

// ints parses a comma separated vector of exactly n integers.
func (f Form) ints(field string, n int) ([]int, error) {
	parts := strings.Split(f[field], ",")
	if len(parts) != n {
		return nil, &ValidationError{Field: field, Value: f[field], Err: fmt.Errorf("want %d comma separated integers", n)}
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, &ValidationError{Field: field, Value: f[field], Err: errNotInteger}
		}
		out[i] = v
	}
	return out, nil
}

// deltas collects the "<prefix>.<arcana>" fields. Blank arcana or blank
// amounts are skipped, so a dialog row can be discarded by emptying it.
func (f Form) deltas(prefix string) (map[string]int, error) {
	out := map[string]int{}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		arcana, ok := strings.CutPrefix(k, prefix+".")
		if !ok || strings.TrimSpace(arcana) == "" || f.text(k) == "" {
			continue
		}
		n, err := f.int(k)
		if err != nil {
			return nil, err
		}
		out[arcana] = n
	}
	return out, nil
}

var errNotInteger = fmt.Errorf("must be a whole number")

// Payload builds the action described by the form.
func (f Form) Payload() (action.Payload, error) {
	switch action.Kind(f.text("kind")) {
	case action.KindInfo:
		return action.NewInfo(f["text"]), nil

	case action.KindSpeak:
		s := action.NewSpeak(f.text("speaker"), f["text"])
		s.SetEmotion(f.text("emotion"))
		points, err := f.deltas("points")
		if err != nil {
			return nil, err
		}
		angle, err := f.deltas("angle")
		if err != nil {
			return nil, err
		}
		for arcana, n := range points {
			s.PutPoints(arcana, n)
		}
		for arcana, n := range angle {
			s.PutAngle(arcana, n)
		}
		return s, nil

	case action.KindCamera:
		pos, err := f.ints("cameraPosition", 3)
		if err != nil {
			return nil, err
		}
		look, err := f.ints("lookAt", 3)
		if err != nil {
			return nil, err
		}
		return action.NewCamera(f.text("place"), [3]int(pos), [3]int(look)), nil

	case action.KindMovement:
		dest, err := f.ints("destination", 2)
		if err != nil {
			return nil, err
		}
		return action.NewMovement(f.text("subject"), [2]int(dest), f.text("animation")), nil

	default:
		return nil, &ValidationError{Field: "kind", Value: f["kind"], Err: fmt.Errorf("must be one of %v", action.DefaultRegistry().Kinds())}
	}
}

// Requirement builds a level requirement from the form. Range checks are
// left to sociallink.Requirement.Validate.
func (f Form) Requirement() (sociallink.Requirement, error) {
	var r sociallink.Requirement
	for _, fld := range []struct {
		name string
		dst  *int
	}{{"points", &r.Points}, {"courage", &r.Courage}, {"charm", &r.Charm}, {"acad", &r.Acad}} {
		n, err := f.int(fld.name)
		if err != nil {
			return sociallink.Requirement{}, err
		}
		*fld.dst = n
	}
	return r, nil
}
