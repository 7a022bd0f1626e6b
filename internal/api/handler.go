package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/slcreator/internal/edit"
	"github.com/gyaneshwarpardhi/slcreator/internal/graph"
	"github.com/gyaneshwarpardhi/slcreator/internal/query"
	"github.com/gyaneshwarpardhi/slcreator/internal/simulate"
	"github.com/gyaneshwarpardhi/slcreator/internal/sociallink"
	"github.com/gyaneshwarpardhi/slcreator/internal/store"
	"github.com/gyaneshwarpardhi/slcreator/internal/workspace"
)

const cutscenePath = "/v1/links/{arcana}/cutscenes/{level}/{angle}"

// Handler holds all HTTP handler dependencies.
type Handler struct {
	ws     *workspace.Workspace
	st     store.Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(ws *workspace.Workspace, st store.Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{ws: ws, st: st, logger: logger.With("component", "api"), mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/links", h.listLinks)
	h.mux.HandleFunc("GET /v1/links/{arcana}", h.getLink)
	h.mux.HandleFunc("POST /v1/links/{arcana}/save", h.saveLink)
	h.mux.HandleFunc("GET "+cutscenePath, h.getCutscene)
	h.mux.HandleFunc("DELETE "+cutscenePath, h.dropCutscene)
	h.mux.HandleFunc("GET "+cutscenePath+"/simulate", h.play)
	h.mux.HandleFunc("PUT "+cutscenePath+"/nodes/{index}", h.putNode)
	h.mux.HandleFunc("DELETE "+cutscenePath+"/nodes/{index}", h.deleteNode)
	h.mux.HandleFunc("GET "+cutscenePath+"/nodes/{index}/subtree", h.subtree)
	h.mux.HandleFunc("POST "+cutscenePath+"/nodes/{index}/relations", h.addRelation)
	h.mux.HandleFunc("DELETE "+cutscenePath+"/nodes/{index}/relations/{to}", h.delRelation)
	h.mux.HandleFunc("PUT "+cutscenePath+"/requirement", h.putRequirement)
	h.mux.HandleFunc("PUT "+cutscenePath+"/cutinfo", h.putCutInfo)
	h.mux.HandleFunc("PUT "+cutscenePath+"/finalpersona", h.putFinalPersona)
	h.mux.HandleFunc("GET /v1/refs/{name}", h.getRefs)
	h.mux.HandleFunc("GET /v1/entities/{kind}", h.listEntities)
	h.mux.HandleFunc("GET /v1/entities/{kind}/{name}", h.getEntity)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.logger, h.mux)
}

// -----------------------------------------------------------------------
// Links
// -----------------------------------------------------------------------

// GET /v1/links: arcana with a stored record.
func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	names, err := h.st.ListLinks(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": names, "cached": h.ws.Cached()})
}

// GET /v1/links/{arcana}: link summary. A missing link is empty, not 404.
func (h *Handler) getLink(w http.ResponseWriter, r *http.Request) {
	arcana := r.PathValue("arcana")
	var v linkView
	err := h.ws.View(r.Context(), arcana, func(l *sociallink.SocialLink) error {
		v = viewLink(l)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	v.Dirty = h.ws.Dirty(arcana)
	writeJSON(w, http.StatusOK, v)
}

// POST /v1/links/{arcana}/save: write unsaved edits.
func (h *Handler) saveLink(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Save(r.Context(), r.PathValue("arcana")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// -----------------------------------------------------------------------
// Cutscenes
// -----------------------------------------------------------------------

// GET .../cutscenes/{level}/{angle}?q=<query>: nodes, optionally filtered.
func (h *Handler) getCutscene(w http.ResponseWriter, r *http.Request) {
	level, angle, ok := levelAngle(w, r)
	if !ok {
		return
	}
	var q *query.Query
	if src := r.URL.Query().Get("q"); src != "" {
		var err error
		if q, err = query.Compile(src); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var nodes []nodeView
	err := h.viewCutscene(r, level, angle, func(g *graph.Graph) error {
		keep := map[int]bool{}
		if q != nil {
			found, err := query.Find(g, q)
			if err != nil {
				return err
			}
			for _, i := range found {
				keep[i] = true
			}
		}
		nodes = []nodeView{}
		for _, n := range g.Nodes() {
			if q == nil || keep[n.Index] {
				nodes = append(nodes, viewNode(n))
			}
		}
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "angle": angle, "nodes": nodes})
}

// DELETE .../cutscenes/{level}/{angle}: drop the whole cutscene.
func (h *Handler) dropCutscene(w http.ResponseWriter, r *http.Request) {
	level, angle, ok := levelAngle(w, r)
	if !ok {
		return
	}
	err := h.ws.Edit(r.Context(), r.PathValue("arcana"), func(l *sociallink.SocialLink) (workspace.Change, error) {
		if !l.DropLink(level, angle) {
			return workspace.Change{}, fmt.Errorf("cutscene %s: %w", sociallink.Key(level, angle), graph.ErrIndexOutOfRange)
		}
		return workspace.Change{Op: "drop_cutscene", Level: level, Angle: angle}, nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET .../simulate?pick=0,1: play the cutscene answering choices in order.
func (h *Handler) play(w http.ResponseWriter, r *http.Request) {
	level, angle, ok := levelAngle(w, r)
	if !ok {
		return
	}
	var picks []int
	if raw := r.URL.Query().Get("pick"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pick %q", p))
				return
			}
			picks = append(picks, n)
		}
	}

	var resp map[string]any
	err := h.viewCutscene(r, level, angle, func(g *graph.Graph) error {
		steps, ledger, err := simulate.Play(g, picks, 0)
		if err != nil {
			return err
		}
		resp = map[string]any{"steps": steps, "ledger": ledger.Snapshot()}
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PUT .../nodes/{index}: save the action described by a form.
func (h *Handler) putNode(w http.ResponseWriter, r *http.Request) {
	index, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	var form edit.Form
	if !decode(w, r, &form) {
		return
	}
	var saved nodeView
	h.editSession(w, r, "save_action", func(s *edit.Session) ([]int, error) {
		if _, err := s.SaveAction(index, form); err != nil {
			return nil, err
		}
		saved = viewNode(nodeAt(s.Graph(), index))
		return []int{index}, nil
	}, func() any { return saved })
}

// DELETE .../nodes/{index}: delete a node with its unique subtree.
func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	index, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	var deleted []int
	h.editSession(w, r, "delete", func(s *edit.Session) ([]int, error) {
		var err error
		deleted, err = s.Delete(index)
		return deleted, err
	}, func() any { return map[string][]int{"deleted": deleted} })
}

// GET .../nodes/{index}/subtree: what DELETE would remove.
func (h *Handler) subtree(w http.ResponseWriter, r *http.Request) {
	level, angle, ok := levelAngle(w, r)
	if !ok {
		return
	}
	index, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	var nodes []int
	err := h.viewCutscene(r, level, angle, func(g *graph.Graph) error {
		var err error
		nodes, err = g.UniqueSubtree(index)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"nodes": nodes})
}

type relationRequest struct {
	To *int `json:"to"` // nil links to a fresh placeholder
}

// POST .../nodes/{index}/relations: link to an existing or new node.
func (h *Handler) addRelation(w http.ResponseWriter, r *http.Request) {
	from, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	var req relationRequest
	if !decode(w, r, &req) {
		return
	}
	var to int
	h.editSession(w, r, "connect", func(s *edit.Session) ([]int, error) {
		if req.To == nil {
			var err error
			to, err = s.ConnectNew(from)
			return []int{from, to}, err
		}
		to = *req.To
		return []int{from, to}, s.Connect(from, to)
	}, func() any { return map[string]int{"from": from, "to": to} })
}

// DELETE .../nodes/{index}/relations/{to}: unlink; orphans are deleted.
func (h *Handler) delRelation(w http.ResponseWriter, r *http.Request) {
	from, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	to, ok := pathInt(w, r, "to")
	if !ok {
		return
	}
	var deleted []int
	h.editSession(w, r, "disconnect", func(s *edit.Session) ([]int, error) {
		var err error
		deleted, err = s.Disconnect(from, to)
		return deleted, err
	}, func() any { return map[string][]int{"deleted": deleted} })
}

// PUT .../requirement: thresholds to reach this cutscene.
func (h *Handler) putRequirement(w http.ResponseWriter, r *http.Request) {
	var form edit.Form
	if !decode(w, r, &form) {
		return
	}
	var req sociallink.Requirement
	h.editSession(w, r, "requirement", func(s *edit.Session) ([]int, error) {
		var err error
		req, err = s.SetRequirement(s.Angle(), form)
		return nil, err
	}, func() any { return req })
}

type textRequest struct {
	Text string `json:"text"`
}

// PUT .../cutinfo: note shown for this cutscene.
func (h *Handler) putCutInfo(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	h.editSession(w, r, "cutinfo", func(s *edit.Session) ([]int, error) {
		s.SetCutInfo(req.Text)
		return nil, nil
	}, func() any { return req })
}

// PUT .../finalpersona: persona unlocked at max level (level 10 only).
func (h *Handler) putFinalPersona(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	h.editSession(w, r, "final_persona", func(s *edit.Session) ([]int, error) {
		return nil, s.SetFinalPersona(req.Text)
	}, func() any { return req })
}

// -----------------------------------------------------------------------
// Reference data
// -----------------------------------------------------------------------

// GET /v1/refs/{name}: a static reference list (characters, places, ...).
func (h *Handler) getRefs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	values, err := h.st.ReferenceList(r.Context(), name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "values": values})
}

// GET /v1/entities/{kind}: stored entity names of a kind.
func (h *Handler) listEntities(w http.ResponseWriter, r *http.Request) {
	names, err := h.st.ListEntities(r.Context(), r.PathValue("kind"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": r.PathValue("kind"), "names": names})
}

// GET /v1/entities/{kind}/{name}: the stored entity record as is.
func (h *Handler) getEntity(w http.ResponseWriter, r *http.Request) {
	data, err := h.st.ReadEntity(r.Context(), r.PathValue("kind"), r.PathValue("name"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(data))
}

// -----------------------------------------------------------------------
// Probes
// -----------------------------------------------------------------------

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 once the store stops answering.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.st.ListLinks(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "cached_links": len(h.ws.Cached())})
}

// -----------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------

// viewCutscene runs fn on an existing cutscene without creating it.
func (h *Handler) viewCutscene(r *http.Request, level, angle int, fn func(*graph.Graph) error) error {
	return h.ws.View(r.Context(), r.PathValue("arcana"), func(l *sociallink.SocialLink) error {
		g, ok := l.Cutscene(level, angle)
		if !ok {
			return fmt.Errorf("cutscene %s: %w", sociallink.Key(level, angle), store.ErrNotExist)
		}
		return fn(g)
	})
}

// editSession opens an edit session on the cutscene in the path, runs op
// and writes result() on success.
func (h *Handler) editSession(w http.ResponseWriter, r *http.Request, name string,
	op func(*edit.Session) ([]int, error), result func() any) {
	level, angle, ok := levelAngle(w, r)
	if !ok {
		return
	}
	err := h.ws.Edit(r.Context(), r.PathValue("arcana"), func(l *sociallink.SocialLink) (workspace.Change, error) {
		_, existed := l.Cutscene(level, angle)
		s, err := edit.Open(l, level, angle)
		if err != nil {
			return workspace.Change{}, err
		}
		nodes, err := op(s)
		if err != nil {
			if !existed {
				l.ForgetCutscene(level, angle)
			}
			return workspace.Change{}, err
		}
		return workspace.Change{Op: name, Level: level, Angle: angle, Nodes: nodes}, nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result())
}

func nodeAt(g *graph.Graph, index int) graph.Node {
	for _, n := range g.Nodes() {
		if n.Index == index {
			return n
		}
	}
	return graph.Node{Index: index}
}

func levelAngle(w http.ResponseWriter, r *http.Request) (level, angle int, ok bool) {
	if level, ok = pathInt(w, r, "level"); !ok {
		return 0, 0, false
	}
	if angle, ok = pathInt(w, r, "angle"); !ok {
		return 0, 0, false
	}
	return level, angle, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.PathValue(name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	return n, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}
