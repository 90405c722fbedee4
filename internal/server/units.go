package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/memoroo/memoroo/internal/auth"
	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
)

// unitRequest is the write payload shared by create and update.
type unitRequest struct {
	SourceType string   `json:"source_type"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
}

func (req unitRequest) toUnit(ownerID, id string) memory.MemoryUnit {
	return memory.MemoryUnit{
		ID:         id,
		OwnerID:    ownerID,
		SourceType: memory.SourceType(req.SourceType),
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
	}
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	unit, err := s.deps.Units.Create(r.Context(), req.toUnit(auth.OwnerID(r.Context()), ""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUnitJSON(*unit))
}

func (s *Server) handleUpdateUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	unit, err := s.deps.Units.Update(r.Context(),
		req.toUnit(auth.OwnerID(r.Context()), chi.URLParam(r, "unitID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitJSON(*unit))
}

func (s *Server) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := s.deps.Units.Get(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitJSON(*unit))
}

// handleListUnits supports filtering by source_type (repeatable), substring
// q, RFC 3339 created_after / created_before bounds, and a limit.
func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptsFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	units, err := s.deps.Units.List(r.Context(), auth.OwnerID(r.Context()), opts...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": toUnitListJSON(units)})
}

func (s *Server) handleDeleteUnit(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Units.Delete(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, r, apperr.New(apperr.KindInvalid, "server: q parameter required"))
		return
	}
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, apperr.New(apperr.KindInvalid, "server: k must be a positive integer"))
			return
		}
		k = n
	}

	results, err := s.deps.Retriever.SearchK(r.Context(), auth.OwnerID(r.Context()), query, k)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": toSearchResultsJSON(results),
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Units.ReindexAll(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reindexed": count})
}

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
		RelType  string `json:"rel_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := s.deps.Units.AddEdge(r.Context(), memory.Edge{
		OwnerID:  auth.OwnerID(r.Context()),
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		RelType:  req.RelType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleDeleteEdge identifies the edge by query parameters; DELETE bodies are
// dropped by some proxies.
func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := s.deps.Units.DeleteEdge(r.Context(), auth.OwnerID(r.Context()),
		q.Get("source_id"), q.Get("target_id"), q.Get("rel_type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := s.deps.Units.ListEdges(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]edgeJSON, len(edges))
	for i, e := range edges {
		out[i] = toEdgeJSON(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": out})
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	neighbors, err := s.deps.Units.Neighbors(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"neighbors": toUnitListJSON(neighbors)})
}

func listOptsFromQuery(r *http.Request) ([]memory.ListOpt, error) {
	q := r.URL.Query()
	var opts []memory.ListOpt

	if types := q["source_type"]; len(types) > 0 {
		sts := make([]memory.SourceType, len(types))
		for i, raw := range types {
			st := memory.SourceType(raw)
			if !st.IsValid() {
				return nil, apperr.New(apperr.KindInvalid, "server: unknown source type %q", raw)
			}
			sts[i] = st
		}
		opts = append(opts, memory.WithSourceTypes(sts...))
	}
	if search := q.Get("q"); search != "" {
		opts = append(opts, memory.WithSearch(search))
	}
	for param, opt := range map[string]func(time.Time) memory.ListOpt{
		"created_after":  memory.WithCreatedAfter,
		"created_before": memory.WithCreatedBefore,
	} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, apperr.New(apperr.KindInvalid, "server: %s must be RFC 3339", param)
		}
		opts = append(opts, opt(t))
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, apperr.New(apperr.KindInvalid, "server: limit must be a positive integer")
		}
		opts = append(opts, memory.WithLimit(n))
	}
	return opts, nil
}
