package sociallink

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
)

// Level bounds of a social link.
const (
	MinLevel = 1
	MaxLevel = 10
)

// ErrInvalidLevel is returned for malformed cutscene keys or levels out of range.
var ErrInvalidLevel = errors.New("invalid level")

// Key returns the cutscene key "<level>_<angle>".
func Key(level, angle int) string {
	return strconv.Itoa(level) + "_" + strconv.Itoa(angle)
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (level, angle int, err error) {
	l, a, ok := strings.Cut(key, "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: key %q", ErrInvalidLevel, key)
	}
	if level, err = strconv.Atoi(l); err != nil {
		return 0, 0, fmt.Errorf("%w: key %q", ErrInvalidLevel, key)
	}
	if angle, err = strconv.Atoi(a); err != nil {
		return 0, 0, fmt.Errorf("%w: key %q", ErrInvalidLevel, key)
	}
	return level, angle, nil
}

// ValidLevel reports whether level is within MinLevel..MaxLevel.
func ValidLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d not in %d..%d", ErrInvalidLevel, level, MinLevel, MaxLevel)
	}
	return nil
}

// SocialLink holds every cutscene of one arcana together with the metadata
// the editor maintains for it. FinalPersona maps an angle to the persona
// unlocked at max level; RequiredPoints is keyed by level then angle. Field
// order matches the persisted record, whose keys are sorted.
type SocialLink struct {
	Arcana         string                            `json:"arcana"`
	CutInfo        map[string]string                 `json:"cutinfo"`
	Cutscenes      map[string]*graph.Graph           `json:"cutscenes"`
	FinalPersona   map[string]string                 `json:"finalpersona"`
	Info           string                            `json:"info"`
	Pseudoname     string                            `json:"pseudoname"`
	RequiredPoints map[string]map[string]Requirement `json:"requiredPoints"`
}

// New returns an empty link for arcana.
func New(arcana string) *SocialLink {
	l := &SocialLink{Arcana: arcana}
	l.fill()
	return l
}

func (l *SocialLink) fill() {
	if l.CutInfo == nil {
		l.CutInfo = map[string]string{}
	}
	if l.Cutscenes == nil {
		l.Cutscenes = map[string]*graph.Graph{}
	}
	if l.FinalPersona == nil {
		l.FinalPersona = map[string]string{}
	}
	if l.RequiredPoints == nil {
		l.RequiredPoints = map[string]map[string]Requirement{}
	}
}

type record struct {
	Arcana         string                            `json:"arcana"`
	CutInfo        map[string]string                 `json:"cutinfo"`
	Cutscenes      map[string]json.RawMessage        `json:"cutscenes"`
	FinalPersona   map[string]string                 `json:"finalpersona"`
	Info           string                            `json:"info"`
	Pseudoname     string                            `json:"pseudoname"`
	RequiredPoints map[string]map[string]Requirement `json:"requiredPoints"`
}

// Decode parses a persisted link. Keys missing from the record keep their
// empty defaults; an empty record yields an empty link for arcana.
func Decode(arcana string, data []byte) (*SocialLink, error) {
	l := New(arcana)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return l, nil
	}
	var rec record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("decode link %s: %w", arcana, err)
	}
	if rec.Arcana != "" {
		l.Arcana = rec.Arcana
	}
	for key, raw := range rec.Cutscenes {
		g := new(graph.Graph)
		if err := json.Unmarshal(raw, g); err != nil {
			return nil, fmt.Errorf("decode link %s cutscene %s: %w", arcana, key, err)
		}
		l.Cutscenes[key] = g
	}
	if rec.CutInfo != nil {
		l.CutInfo = rec.CutInfo
	}
	if rec.FinalPersona != nil {
		l.FinalPersona = rec.FinalPersona
	}
	if rec.RequiredPoints != nil {
		l.RequiredPoints = rec.RequiredPoints
	}
	l.Info = rec.Info
	l.Pseudoname = rec.Pseudoname
	return l, nil
}

// Load reads the link for arcana. A link that was never saved is returned
// empty rather than as an error.
func Load(ctx context.Context, st store.LinkStore, arcana string) (*SocialLink, error) {
	data, err := st.ReadLink(ctx, arcana)
	if errors.Is(err, store.ErrNotExist) {
		slog.DebugContext(ctx, "no saved link, starting empty", "arcana", arcana)
		return New(arcana), nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(arcana, data)
}

// Encode serializes the link with sorted keys and four-space indentation.
func (l *SocialLink) Encode() ([]byte, error) {
	l.fill()
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode link %s: %w", l.Arcana, err)
	}
	return data, nil
}

// Save writes the whole link, replacing the previous record.
func (l *SocialLink) Save(ctx context.Context, st store.LinkStore) error {
	data, err := l.Encode()
	if err != nil {
		return err
	}
	return st.WriteLink(ctx, l.Arcana, data)
}

// StartLink returns the cutscene for (level, angle), creating an empty one
// when absent.
func (l *SocialLink) StartLink(level, angle int) *graph.Graph {
	l.fill()
	key := Key(level, angle)
	g, ok := l.Cutscenes[key]
	if !ok {
		g = graph.New(l.Arcana + key)
		l.Cutscenes[key] = g
	}
	return g
}

// Cutscene returns the cutscene for (level, angle) without creating it.
func (l *SocialLink) Cutscene(level, angle int) (*graph.Graph, bool) {
	g, ok := l.Cutscenes[Key(level, angle)]
	return g, ok
}

// SetLink replaces the cutscene for (level, angle).
func (l *SocialLink) SetLink(level, angle int, g *graph.Graph) {
	l.fill()
	l.Cutscenes[Key(level, angle)] = g
}

// DropLink removes the cutscene for (level, angle) and its cutscene info.
func (l *SocialLink) DropLink(level, angle int) bool {
	if !l.ForgetCutscene(level, angle) {
		return false
	}
	delete(l.CutInfo, Key(level, angle))
	return true
}

// ForgetCutscene removes only the cutscene graph for (level, angle). Its
// cutscene info and requirement stay.
func (l *SocialLink) ForgetCutscene(level, angle int) bool {
	key := Key(level, angle)
	if _, ok := l.Cutscenes[key]; !ok {
		return false
	}
	delete(l.Cutscenes, key)
	return true
}

// Levels lists the (level, angle) pairs of every cutscene ordered by level
// then angle. Keys that do not parse are skipped.
func (l *SocialLink) Levels() [][2]int {
	out := make([][2]int, 0, len(l.Cutscenes))
	for key := range l.Cutscenes {
		level, angle, err := ParseKey(key)
		if err != nil {
			continue
		}
		out = append(out, [2]int{level, angle})
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]))
	})
	return out
}

// SetCutInfo stores the free-text note shown for a cutscene.
func (l *SocialLink) SetCutInfo(level, angle int, text string) {
	l.fill()
	l.CutInfo[Key(level, angle)] = text
}

// SetRequirement validates r and stores it for (level, angle).
func (l *SocialLink) SetRequirement(level, angle int, r Requirement) error {
	if err := ValidLevel(level); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	l.fill()
	lk := strconv.Itoa(level)
	if l.RequiredPoints[lk] == nil {
		l.RequiredPoints[lk] = map[string]Requirement{}
	}
	l.RequiredPoints[lk][strconv.Itoa(angle)] = r
	return nil
}

// Requirement returns the requirement stored for (level, angle).
func (l *SocialLink) Requirement(level, angle int) (Requirement, bool) {
	r, ok := l.RequiredPoints[strconv.Itoa(level)][strconv.Itoa(angle)]
	return r, ok
}

// SetFinalPersona records the persona unlocked when the link is maxed at angle.
func (l *SocialLink) SetFinalPersona(angle int, persona string) {
	l.fill()
	l.FinalPersona[strconv.Itoa(angle)] = persona
}
