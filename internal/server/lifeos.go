package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/memoroo/memoroo/internal/auth"
	"github.com/memoroo/memoroo/pkg/memory"
)

func (s *Server) handleAddMoodLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label     string    `json:"label"`
		Score     int       `json:"score"`
		Note      string    `json:"note"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	log, err := s.deps.Life.AddMoodLog(r.Context(), memory.MoodLog{
		OwnerID:   auth.OwnerID(r.Context()),
		Label:     req.Label,
		Score:     req.Score,
		Note:      req.Note,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMoodLogJSON(*log))
}

func (s *Server) handleListMoodLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.deps.Life.ListMoodLogs(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]moodLogJSON, len(logs))
	for i, m := range logs {
		out[i] = toMoodLogJSON(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"moods": out})
}

func (s *Server) handleDeleteMoodLog(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Life.DeleteMoodLog(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "moodID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTimelineEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Timestamp   time.Time `json:"timestamp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := s.deps.Life.AddTimelineEvent(r.Context(), memory.TimelineEvent{
		OwnerID:     auth.OwnerID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimelineEventJSON(*ev))
}

func (s *Server) handleListTimelineEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Life.ListTimelineEvents(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]timelineEventJSON, len(events))
	for i, ev := range events {
		out[i] = toTimelineEventJSON(ev)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleDeleteTimelineEvent(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Life.DeleteTimelineEvent(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Frequency string `json:"frequency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	habit, err := s.deps.Life.CreateHabit(r.Context(), memory.Habit{
		OwnerID:   auth.OwnerID(r.Context()),
		Name:      req.Name,
		Frequency: req.Frequency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHabitJSON(*habit))
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.deps.Life.ListHabits(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]habitJSON, len(habits))
	for i, h := range habits {
		out[i] = toHabitJSON(h)
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": out})
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	habit, err := s.deps.Life.GetHabit(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitJSON(*habit))
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Life.DeleteHabit(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHabitCheckIn(w http.ResponseWriter, r *http.Request) {
	habit, err := s.deps.Life.CheckIn(r.Context(),
		auth.OwnerID(r.Context()), chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHabitJSON(*habit))
}
