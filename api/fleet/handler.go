// Package fleet exposes the fleet manager over HTTP.
package fleet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/kilianp07/fleetnav/core/eventlog"
	corefleet "github.com/kilianp07/fleetnav/core/fleet"
	"github.com/kilianp07/fleetnav/core/traffic"
)

type vertexView struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Name      string  `json:"name"`
	IsCharger bool    `json:"is_charger"`
}

type graphView struct {
	Vertices []vertexView `json:"vertices"`
	Lanes    [][2]int     `json:"lanes"`
	Bounds   [2]orb.Point `json:"bounds"`
}

type conflictsView struct {
	Active []string           `json:"active"`
	Log    []traffic.Conflict `json:"log"`
}

type ownersView struct {
	Vertices map[int]int    `json:"vertices"`
	Lanes    map[string]int `json:"lanes"`
}

type taskResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// NewHandler returns the API routes. Mutating routes and the event log
// require "Authorization: Bearer <token>" when token is non-empty. store may
// be nil when persistence is disabled.
func NewHandler(m *corefleet.Manager, store eventlog.Store, token string) http.Handler {
	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.Handler { return requireToken(token, h) }

	mux.HandleFunc("GET /api/graph", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, viewGraph(m))
	})
	mux.HandleFunc("GET /api/agents", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.Snapshots())
	})
	mux.HandleFunc("GET /api/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := agentID(w, r)
		if !ok {
			return
		}
		snap, err := m.Snapshot(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})
	mux.Handle("POST /api/agents", auth(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vertex *int `json:"vertex"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Vertex == nil {
			http.Error(w, "body must be {\"vertex\": <id>}", http.StatusBadRequest)
			return
		}
		if !m.VertexVacant(*body.Vertex) {
			http.Error(w, "vertex not vacant", http.StatusConflict)
			return
		}
		id, err := m.Spawn(*body.Vertex)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap, err := m.Snapshot(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}))
	mux.Handle("POST /api/agents/{id}/task", auth(func(w http.ResponseWriter, r *http.Request) {
		id, ok := agentID(w, r)
		if !ok {
			return
		}
		var body struct {
			Target *int `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == nil {
			http.Error(w, "body must be {\"target\": <id>}", http.StatusBadRequest)
			return
		}
		success, reason := m.AssignTask(id, *body.Target)
		writeJSON(w, http.StatusOK, taskResult{Success: success, Reason: reason})
	}))
	mux.Handle("POST /api/agents/{id}/drain", auth(func(w http.ResponseWriter, r *http.Request) {
		id, ok := agentID(w, r)
		if !ok {
			return
		}
		var body struct {
			Amount float64 `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount < 0 {
			http.Error(w, "body must be {\"amount\": <non-negative number>}", http.StatusBadRequest)
			return
		}
		if err := m.DrainBattery(id, body.Amount); err != nil {
			writeError(w, err)
			return
		}
		snap, err := m.Snapshot(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}))
	mux.HandleFunc("GET /api/conflicts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, conflictsView{Active: m.Conflicts(), Log: m.ConflictLog()})
	})
	mux.HandleFunc("GET /api/owners", func(w http.ResponseWriter, _ *http.Request) {
		o := m.Owners()
		v := ownersView{Vertices: o.Vertices, Lanes: make(map[string]int, len(o.Lanes))}
		for k, id := range o.Lanes {
			v.Lanes[k.String()] = id
		}
		writeJSON(w, http.StatusOK, v)
	})
	mux.Handle("GET /api/events", NewEventHandler(store, token))
	return mux
}

func viewGraph(m *corefleet.Manager) graphView {
	g := m.Graph()
	v := graphView{Lanes: [][2]int{}}
	for _, vx := range g.Vertices() {
		v.Vertices = append(v.Vertices, vertexView{ID: vx.ID, X: vx.Point.X(), Y: vx.Point.Y(), Name: vx.Name, IsCharger: vx.IsCharger})
	}
	for _, l := range g.Lanes() {
		if l.From < l.To {
			v.Lanes = append(v.Lanes, [2]int{l.From, l.To})
		}
	}
	b := g.Bounds()
	v.Bounds = [2]orb.Point{b.Min, b.Max}
	return v
}

func requireToken(token string, h http.Handler) http.Handler {
	if token == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func agentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, corefleet.ErrUnknownAgent) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
