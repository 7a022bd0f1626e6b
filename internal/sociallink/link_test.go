package sociallink_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
)

func newStore(t *testing.T) *store.FileStore {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestKey(t *testing.T) {
	assert.Equal(t, "3_15", sociallink.Key(3, 15))

	level, angle, err := sociallink.ParseKey("10_5")
	require.NoError(t, err)
	assert.Equal(t, 10, level)
	assert.Equal(t, 5, angle)

	for _, bad := range []string{"", "3", "a_1", "1_b", "1-2"} {
		_, _, err := sociallink.ParseKey(bad)
		assert.ErrorIs(t, err, sociallink.ErrInvalidLevel, bad)
	}
}

func TestLoad_MissingIsEmpty(t *testing.T) {
	l, err := sociallink.Load(context.Background(), newStore(t), "Hermit")
	require.NoError(t, err)
	assert.Equal(t, "Hermit", l.Arcana)
	assert.Empty(t, l.Cutscenes)
	assert.NotNil(t, l.RequiredPoints)
}

func TestDecode_OlderRecordWithoutOptionalKeys(t *testing.T) {
	data := []byte(`{
		"arcana": "Emperor",
		"cutscenes": {"1_0": {"id": "Emperor1_0", "items": [[{"text": "Hello"}, 1], [{"text": "Bye"}]]}}
	}`)
	l, err := sociallink.Decode("Emperor", data)
	require.NoError(t, err)

	assert.Empty(t, l.CutInfo)
	assert.Empty(t, l.FinalPersona)
	assert.Empty(t, l.RequiredPoints)
	g, ok := l.Cutscene(1, 0)
	require.True(t, ok)
	assert.Equal(t, "Emperor1_0", g.ID())
	assert.Equal(t, []string{"Hello", "Bye"}, g.IDs())
}

func TestDecode_CorruptCutscene(t *testing.T) {
	data := []byte(`{"arcana": "Moon", "cutscenes": {"2_0": {"id": "x", "items": [[{"bogus": true}]]}}}`)
	_, err := sociallink.Decode("Moon", data)

	var corrupt *graph.CorruptGraphError
	require.ErrorAs(t, err, &corrupt)
	var malformed *action.MalformedActionError
	assert.ErrorAs(t, err, &malformed)
}

func TestStartLink(t *testing.T) {
	l := sociallink.New("Lovers")
	g := l.StartLink(2, 0)
	require.NotNil(t, g)
	assert.Equal(t, "Lovers2_0", g.ID())
	assert.Same(t, g, l.StartLink(2, 0), "existing cutscene must be returned")

	replacement := graph.New("other")
	l.SetLink(2, 0, replacement)
	assert.Same(t, replacement, l.StartLink(2, 0))
}

func TestLevels(t *testing.T) {
	l := sociallink.New("Star")
	l.StartLink(10, 5)
	l.StartLink(2, 0)
	l.StartLink(10, 0)
	l.Cutscenes["junk"] = graph.New("junk")

	assert.Equal(t, [][2]int{{2, 0}, {10, 0}, {10, 5}}, l.Levels())

	assert.True(t, l.DropLink(10, 0))
	assert.False(t, l.DropLink(10, 0))
	assert.Equal(t, [][2]int{{2, 0}, {10, 5}}, l.Levels())
}

func TestForgetCutscene_KeepsCutInfo(t *testing.T) {
	l := sociallink.New("Moon")
	l.SetCutInfo(3, 0, "Noodle shop")
	l.StartLink(3, 0)

	assert.True(t, l.ForgetCutscene(3, 0))
	assert.False(t, l.ForgetCutscene(3, 0))
	_, ok := l.Cutscene(3, 0)
	assert.False(t, ok)
	assert.Equal(t, "Noodle shop", l.CutInfo[sociallink.Key(3, 0)])

	l.StartLink(3, 0)
	assert.True(t, l.DropLink(3, 0))
	assert.NotContains(t, l.CutInfo, sociallink.Key(3, 0))
}

func TestSetRequirement(t *testing.T) {
	l := sociallink.New("Devil")

	require.NoError(t, l.SetRequirement(3, 0, sociallink.Requirement{Points: 10, Courage: 2, Charm: 3, Acad: 5}))
	got, ok := l.Requirement(3, 0)
	require.True(t, ok)
	assert.Equal(t, 10, got.Points)

	cases := []struct {
		name  string
		level int
		req   sociallink.Requirement
		want  error
	}{
		{"stat too high", 3, sociallink.Requirement{Courage: 6, Charm: 1, Acad: 1}, sociallink.ErrInvalidRequirement},
		{"stat unset", 3, sociallink.Requirement{Courage: 1, Charm: 0, Acad: 1}, sociallink.ErrInvalidRequirement},
		{"negative points", 3, sociallink.Requirement{Points: -1, Courage: 1, Charm: 1, Acad: 1}, sociallink.ErrInvalidRequirement},
		{"level out of range", 11, sociallink.Requirement{Courage: 1, Charm: 1, Acad: 1}, sociallink.ErrInvalidLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, l.SetRequirement(tc.level, 1, tc.req), tc.want)
			_, ok := l.Requirement(tc.level, 1)
			assert.False(t, ok, "rejected requirement must not be stored")
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	l := sociallink.New("Chariot")
	l.Info = "Track team"
	l.Pseudoname = "Kazushi"
	l.SetFinalPersona(0, "Thor")
	l.SetCutInfo(1, 0, "Meet at the gym")
	require.NoError(t, l.SetRequirement(1, 0, sociallink.Requirement{Points: 0, Courage: 1, Charm: 1, Acad: 1}))

	g := l.StartLink(1, 0)
	require.NoError(t, g.SetItem(action.NewInfo("Kazushi waves"), 0))
	require.NoError(t, g.SetItem(action.NewSpeak("Kazushi", "Yo!"), 1))
	require.NoError(t, g.AddRelation(0, 1))

	require.NoError(t, l.Save(ctx, st))

	back, err := sociallink.Load(ctx, st, "Chariot")
	require.NoError(t, err)
	assert.Equal(t, l.Info, back.Info)
	assert.Equal(t, l.Pseudoname, back.Pseudoname)
	assert.Equal(t, l.FinalPersona, back.FinalPersona)
	assert.Equal(t, l.CutInfo, back.CutInfo)
	assert.Equal(t, l.RequiredPoints, back.RequiredPoints)

	bg, ok := back.Cutscene(1, 0)
	require.True(t, ok)
	assert.Equal(t, g.IDs(), bg.IDs())
	rel, err := bg.Relations(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rel)
}

func TestEncode_RecordKeys(t *testing.T) {
	l := sociallink.New("Fool")
	data, err := l.Encode()
	require.NoError(t, err)

	var rec map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &rec))
	for _, key := range []string{"arcana", "cutscenes", "cutinfo", "info", "pseudoname", "finalpersona", "requiredPoints"} {
		assert.Contains(t, rec, key)
	}
}
