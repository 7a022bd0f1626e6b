package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/slcreator/internal/action"
	"github.com/gyaneshwarpardhi/slcreator/internal/edit"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/query"
	"github.com/gyaneshwarpardhi/slcreator/internal/simulate"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
	"github.com/gyaneshwarpardhi/slcreator/internal/workspace"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps a domain error to its status code.
func writeErr(w http.ResponseWriter, err error) {
	var verr *edit.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: verr.Field})
		return
	}
	var malformed *action.MalformedActionError
	var corrupt *graph.CorruptGraphError
	switch {
	case errors.Is(err, store.ErrNotExist), errors.Is(err, graph.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, graph.ErrNoRelation), errors.Is(err, edit.ErrUnsaved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sociallink.ErrInvalidLevel), errors.Is(err, sociallink.ErrInvalidRequirement):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, simulate.ErrChoiceRequired), errors.Is(err, simulate.ErrStepLimit):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workspace.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &corrupt), errors.As(err, &malformed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// nodeView is the JSON form of one cutscene node.
type nodeView struct {
	Index      int            `json:"index"`
	Kind       string         `json:"kind"`
	Label      string         `json:"label"`
	Record     map[string]any `json:"record,omitempty"`
	Successors []int          `json:"successors"`
}

func viewNode(n graph.Node) nodeView {
	v := nodeView{Index: n.Index, Kind: query.KindUnsaved, Successors: n.Successors}
	if v.Successors == nil {
		v.Successors = []int{}
	}
	if n.Payload != nil {
		v.Kind = string(n.Payload.Kind())
		v.Label = n.Payload.Label()
		v.Record = n.Payload.Record()
	}
	return v
}

// cutsceneView summarizes one (level, angle) entry of a link.
type cutsceneView struct {
	Level       int                     `json:"level"`
	Angle       int                     `json:"angle"`
	Nodes       int                     `json:"nodes"`
	CutInfo     string                  `json:"cutinfo,omitempty"`
	Requirement *sociallink.Requirement `json:"requirement,omitempty"`
}

type linkView struct {
	Arcana       string            `json:"arcana"`
	Pseudoname   string            `json:"pseudoname"`
	Info         string            `json:"info"`
	FinalPersona map[string]string `json:"finalpersona"`
	Cutscenes    []cutsceneView    `json:"cutscenes"`
	Dirty        bool              `json:"dirty"`
}

func viewLink(l *sociallink.SocialLink) linkView {
	v := linkView{
		Arcana:       l.Arcana,
		Pseudoname:   l.Pseudoname,
		Info:         l.Info,
		FinalPersona: l.FinalPersona,
		Cutscenes:    []cutsceneView{},
	}
	for _, la := range l.Levels() {
		g, _ := l.Cutscene(la[0], la[1])
		c := cutsceneView{Level: la[0], Angle: la[1], Nodes: g.Size(), CutInfo: l.CutInfo[sociallink.Key(la[0], la[1])]}
		if r, ok := l.Requirement(la[0], la[1]); ok {
			c.Requirement = &r
		}
		v.Cutscenes = append(v.Cutscenes, c)
	}
	return v
}
