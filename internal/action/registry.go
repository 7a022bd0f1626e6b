package action

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// MalformedActionError is returned when a record matches no payload variant,
// or matches one whose values have the wrong shape.
type MalformedActionError struct {
	Keys   []string // keys present in the record, sorted
	Reason string   // why the matched variant was rejected, if any
}

func (e *MalformedActionError) Error() string {
	msg := fmt.Sprintf("malformed action record with keys [%s]", strings.Join(e.Keys, ", "))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Decoder builds one payload variant from a raw record. Decode is only
// called once every Required key is present in the record.
type Decoder struct {
	Kind     Kind
	Required []string
	Decode   func(rec map[string]any) (Payload, error)
}

// Registry holds decoders in priority order.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu       sync.RWMutex
	decoders []Decoder
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry trying Camera, Movement, Speak and Info,
// in that order. Info only needs "text", so it must stay last or it would
// shadow Speak.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Decoder{Kind: KindCamera, Required: []string{"place", "cameraPosition", "lookAt"}, Decode: decodeCamera})
	r.Register(Decoder{Kind: KindMovement, Required: []string{"subject", "destination", "animation"}, Decode: decodeMovement})
	r.Register(Decoder{Kind: KindSpeak, Required: []string{"text", "speaker"}, Decode: decodeSpeak})
	r.Register(Decoder{Kind: KindInfo, Required: []string{"text"}, Decode: decodeInfo})
	return r
}

var defaultRegistry = DefaultRegistry()

// Decode classifies rec with the default registry.
func Decode(rec map[string]any) (Payload, error) {
	return defaultRegistry.Decode(rec)
}

// Register appends a decoder at the lowest priority. Panics on duplicate kind to surface misconfiguration early.
func (r *Registry) Register(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.decoders {
		if existing.Kind == d.Kind {
			panic(fmt.Sprintf("action registry: duplicate kind %q", d.Kind))
		}
	}
	r.decoders = append(r.decoders, d)
}

// Kinds returns the registered kinds in priority order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.decoders))
	for _, d := range r.decoders {
		out = append(out, d.Kind)
	}
	return out
}

// Decode returns the first variant whose required keys are all present.
// If that variant rejects a value, the record is malformed; lower priority
// variants are not tried.
func (r *Registry) Decode(rec map[string]any) (Payload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.decoders {
		if !hasAll(rec, d.Required) {
			continue
		}
		p, err := d.Decode(rec)
		if err != nil {
			return nil, &MalformedActionError{Keys: recordKeys(rec), Reason: fmt.Sprintf("%s: %v", d.Kind, err)}
		}
		return p, nil
	}
	return nil, &MalformedActionError{Keys: recordKeys(rec)}
}

func recordKeys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func hasAll(rec map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := rec[k]; !ok {
			return false
		}
	}
	return true
}

func decodeCamera(rec map[string]any) (Payload, error) {
	place, err := stringField(rec, "place")
	if err != nil {
		return nil, err
	}
	pos, err := intsField(rec, "cameraPosition", 3)
	if err != nil {
		return nil, err
	}
	look, err := intsField(rec, "lookAt", 3)
	if err != nil {
		return nil, err
	}
	return NewCamera(place, [3]int(pos), [3]int(look)), nil
}

func decodeMovement(rec map[string]any) (Payload, error) {
	subject, err := stringField(rec, "subject")
	if err != nil {
		return nil, err
	}
	dest, err := intsField(rec, "destination", 2)
	if err != nil {
		return nil, err
	}
	anim, err := stringField(rec, "animation")
	if err != nil {
		return nil, err
	}
	return NewMovement(subject, [2]int(dest), anim), nil
}

func decodeSpeak(rec map[string]any) (Payload, error) {
	speaker, err := stringField(rec, "speaker")
	if err != nil {
		return nil, err
	}
	text, err := stringField(rec, "text")
	if err != nil {
		return nil, err
	}
	s := NewSpeak(speaker, text)
	if _, ok := rec["emotion"]; ok {
		emotion, err := stringField(rec, "emotion")
		if err != nil {
			return nil, err
		}
		s.SetEmotion(emotion)
	}
	points, err := deltaField(rec, "points")
	if err != nil {
		return nil, err
	}
	for arcana, v := range points {
		s.PutPoints(arcana, v)
	}
	angle, err := deltaField(rec, "angle")
	if err != nil {
		return nil, err
	}
	for arcana, v := range angle {
		s.PutAngle(arcana, v)
	}
	return s, nil
}

func decodeInfo(rec map[string]any) (Payload, error) {
	text, err := stringField(rec, "text")
	if err != nil {
		return nil, err
	}
	return NewInfo(text), nil
}

func stringField(rec map[string]any, key string) (string, error) {
	switch v := rec[key].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
}

func intsField(rec map[string]any, key string, n int) ([]int, error) {
	var raw []any
	switch v := rec[key].(type) {
	case []any:
		raw = v
	case []int:
		return checkLen(key, slices.Clone(v), n)
	default:
		return nil, fmt.Errorf("%s: expected list of %d integers, got %T", key, n, v)
	}
	out := make([]int, 0, len(raw))
	for i, item := range raw {
		iv, ok := ToInt(item)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: %v is not an integer", key, i, item)
		}
		out = append(out, iv)
	}
	return checkLen(key, out, n)
}

func checkLen(key string, v []int, n int) ([]int, error) {
	if len(v) != n {
		return nil, fmt.Errorf("%s: expected %d integers, got %d", key, n, len(v))
	}
	return v, nil
}

func deltaField(rec map[string]any, key string) (map[string]int, error) {
	out := make(map[string]int)
	switch v := rec[key].(type) {
	case nil:
		return out, nil
	case map[string]int:
		for k, n := range v {
			out[k] = n
		}
		return out, nil
	case map[string]any:
		for k, raw := range v {
			n, ok := ToInt(raw)
			if !ok {
				return nil, fmt.Errorf("%s.%s: %v is not an integer", key, k, raw)
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected arcana map, got %T", key, v)
	}
}

// ToInt coerces a decoded JSON value to an int. Numeric strings are accepted
// because older link files stored some integers as text.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
