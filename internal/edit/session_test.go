package edit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/edit"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
)

func open(t *testing.T, level, angle int) (*edit.Session, *sociallink.SocialLink) {
	t.Helper()
	link := sociallink.New("Magician")
	s, err := edit.Open(link, level, angle)
	require.NoError(t, err)
	return s, link
}

func TestOpen(t *testing.T) {
	link := sociallink.New("Magician")
	for _, level := range []int{0, 11} {
		_, err := edit.Open(link, level, 0)
		assert.ErrorIs(t, err, sociallink.ErrInvalidLevel)
	}
	_, err := edit.Open(link, 1, -1)
	assert.ErrorIs(t, err, sociallink.ErrInvalidLevel)
	assert.Empty(t, link.Cutscenes, "rejected sessions must not create cutscenes")

	s, err := edit.Open(link, 4, 2)
	require.NoError(t, err)
	assert.Same(t, link.StartLink(4, 2), s.Graph())
}

func TestSaveAction(t *testing.T) {
	cases := []struct {
		name string
		form edit.Form
		kind action.Kind
		want map[string]any
	}{
		{
			name: "info",
			form: edit.Form{"kind": "info", "text": "Junpei enters"},
			kind: action.KindInfo,
			want: map[string]any{"text": "Junpei enters"},
		},
		{
			name: "speak with deltas",
			form: edit.Form{
				"kind": "speak", "text": "Sup", "speaker": "Junpei", "emotion": "happy",
				"points.Magician": "3", "points.": "9", "angle.Magician": " ", "angle.Lovers": "-1",
			},
			kind: action.KindSpeak,
			want: map[string]any{
				"text": "Sup", "speaker": "Junpei", "emotion": "happy",
				"points": map[string]int{"Magician": 3}, "angle": map[string]int{"Lovers": -1},
			},
		},
		{
			name: "camera",
			form: edit.Form{"kind": "camera", "place": "Dorm", "cameraPosition": "1, 2, 3", "lookAt": "0,0,-1"},
			kind: action.KindCamera,
			want: map[string]any{"place": "Dorm", "cameraPosition": []int{1, 2, 3}, "lookAt": []int{0, 0, -1}},
		},
		{
			name: "movement",
			form: edit.Form{"kind": "movement", "subject": "Junpei", "destination": "5,6", "animation": "walk"},
			kind: action.KindMovement,
			want: map[string]any{"subject": "Junpei", "destination": []int{5, 6}, "animation": "walk"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := open(t, 1, 0)
			p, err := s.SaveAction(0, tc.form)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, p.Kind())
			assert.Equal(t, tc.want, p.Record())
			assert.True(t, s.Graph().Saved(0))
		})
	}
}

func TestSaveAction_Rejected(t *testing.T) {
	cases := []struct {
		name  string
		form  edit.Form
		field string
	}{
		{"unknown kind", edit.Form{"kind": "dance"}, "kind"},
		{"points not an integer", edit.Form{"kind": "speak", "text": "x", "points.Fool": "lots"}, "points.Fool"},
		{"camera short vector", edit.Form{"kind": "camera", "cameraPosition": "1,2", "lookAt": "0,0,0"}, "cameraPosition"},
		{"camera bad component", edit.Form{"kind": "camera", "cameraPosition": "1,2,3", "lookAt": "0,x,0"}, "lookAt"},
		{"movement missing destination", edit.Form{"kind": "movement", "subject": "A"}, "destination"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := open(t, 1, 0)
			_, err := s.SaveAction(0, edit.Form{"kind": "info", "text": "before"})
			require.NoError(t, err)

			_, err = s.SaveAction(0, tc.form)
			var verr *edit.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)

			p, err := s.Graph().Item(0)
			require.NoError(t, err)
			assert.Equal(t, "before", p.Label(), "prior state must be intact")
		})
	}
}

func TestSaveAction_IndexBounds(t *testing.T) {
	s, _ := open(t, 1, 0)
	_, err := s.SaveAction(3, edit.Form{"kind": "info", "text": "gap"})
	assert.ErrorIs(t, err, graph.ErrIndexOutOfRange)
	assert.Equal(t, 0, s.Graph().Size())
}

func TestConnect(t *testing.T) {
	s, _ := open(t, 1, 0)

	// Nothing can be linked from an unsaved node.
	_, err := s.ConnectNew(0)
	assert.ErrorIs(t, err, graph.ErrIndexOutOfRange)

	_, err = s.SaveAction(0, edit.Form{"kind": "info", "text": "root"})
	require.NoError(t, err)
	next, err := s.ConnectNew(0)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	_, err = s.ConnectNew(next)
	assert.ErrorIs(t, err, edit.ErrUnsaved)

	_, err = s.SaveAction(next, edit.Form{"kind": "info", "text": "second"})
	require.NoError(t, err)
	require.NoError(t, s.Connect(next, 0))
	assert.ErrorIs(t, s.Connect(next, 9), graph.ErrIndexOutOfRange)

	rel, err := s.Graph().Relations(next)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, rel)
}

func TestConnectNew_SkipsTombstones(t *testing.T) {
	s, _ := open(t, 1, 0)
	_, err := s.SaveAction(0, edit.Form{"kind": "info", "text": "root"})
	require.NoError(t, err)
	a, err := s.ConnectNew(0)
	require.NoError(t, err)
	_, err = s.Disconnect(0, a)
	require.NoError(t, err)

	b, err := s.ConnectNew(0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a deleted index is never handed out again")
}

func TestDelete(t *testing.T) {
	s, _ := open(t, 2, 0)
	g := s.Graph()
	// 0→1→2→4, 1→3, 0→5→4
	for i := 0; i < 6; i++ {
		require.NoError(t, g.SetItem(action.NewInfo("n"), i))
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {1, 3}, {2, 4}, {0, 5}, {5, 4}} {
		require.NoError(t, g.AddRelation(e[0], e[1]))
	}

	preview, err := s.PreviewDelete(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, preview)
	assert.Equal(t, 6, g.Size(), "preview must not mutate")

	deleted, err := s.Delete(1)
	require.NoError(t, err)
	assert.Equal(t, preview, deleted)
	assert.Equal(t, []int{0, 4, 5}, g.Indices())

	_, err = s.Delete(1)
	assert.ErrorIs(t, err, graph.ErrIndexOutOfRange)
}

func TestDisconnect(t *testing.T) {
	s, _ := open(t, 1, 0)
	g := s.Graph()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.SetItem(action.NewInfo("n"), i))
	}
	require.NoError(t, g.AddRelation(0, 1))
	require.NoError(t, g.AddRelation(1, 2))

	deleted, err := s.Disconnect(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, deleted)

	_, err = s.Disconnect(0, 1)
	assert.Error(t, err)
}

func TestSetRequirement(t *testing.T) {
	s, link := open(t, 5, 0)

	r, err := s.SetRequirement(1, edit.Form{"points": "20", "courage": "3", "charm": "2", "acad": "4"})
	require.NoError(t, err)
	assert.Equal(t, sociallink.Requirement{Points: 20, Courage: 3, Charm: 2, Acad: 4}, r)
	stored, ok := link.Requirement(5, 1)
	require.True(t, ok)
	assert.Equal(t, r, stored)

	_, err = s.SetRequirement(2, edit.Form{"points": "x", "courage": "3", "charm": "2", "acad": "4"})
	var verr *edit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "points", verr.Field)

	_, err = s.SetRequirement(2, edit.Form{"points": "1", "courage": "9", "charm": "2", "acad": "4"})
	assert.ErrorIs(t, err, sociallink.ErrInvalidRequirement)
	_, ok = link.Requirement(5, 2)
	assert.False(t, ok)
}

func TestCutInfoAndFinalPersona(t *testing.T) {
	s, link := open(t, 10, 1)
	s.SetCutInfo("The finale")
	assert.Equal(t, "The finale", link.CutInfo["10_1"])

	require.NoError(t, s.SetFinalPersona("Messiah"))
	assert.Equal(t, "Messiah", link.FinalPersona["1"])

	early, err := edit.Open(link, 9, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, early.SetFinalPersona("Orpheus"), sociallink.ErrInvalidLevel)
}
