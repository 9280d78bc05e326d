package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskflow-backend/internal/tools"
	"taskflow-backend/internal/types"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var f tools.ListFilter
	if v := r.URL.Query().Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		f.Completed = &completed
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		f.Offset = n
	}

	list, err := s.tools.ListTasks(r.Context(), userID, f)
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req types.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := s.tools.AddTask(r.Context(), userIDFrom(r.Context()), tools.AddTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ReminderTime: req.ReminderTime,
	})
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tools.GetTask(r.Context(), chi.URLParam(r, "id"), userIDFrom(r.Context()))
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := s.tools.UpdateTask(r.Context(), chi.URLParam(r, "id"), userIDFrom(r.Context()), req)
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tools.CompleteTask(r.Context(), chi.URLParam(r, "id"), userIDFrom(r.Context()))
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tools.DeleteTask(r.Context(), chi.URLParam(r, "id"), userIDFrom(r.Context()))
	if err != nil {
		s.writeToolError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}
