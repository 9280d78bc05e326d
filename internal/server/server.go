// Package server wires the HTTP surface: auth, task CRUD, the chat
// endpoint, and the task event stream.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"taskflow-backend/internal/agent"
	"taskflow-backend/internal/auth"
	"taskflow-backend/internal/config"
	"taskflow-backend/internal/notify"
	"taskflow-backend/internal/store"
	"taskflow-backend/internal/tools"
	"taskflow-backend/internal/types"
)

// Deps carries the wired dependencies. Interfaces where storage backends
// vary, concrete types where there is only one implementation.
type Deps struct {
	Auth     *auth.Manager
	Users    store.Users
	Tools    tools.Toolset
	Agent    *agent.Service
	Registry *notify.Registry
}

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	log      *zap.Logger
	auth     *auth.Manager
	users    store.Users
	tools    tools.Toolset
	agent    *agent.Service
	registry *notify.Registry
}

func NewServer(cfg config.Config, log *zap.Logger, d Deps) *Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		log:      log,
		auth:     d.Auth,
		users:    d.Users,
		tools:    d.Tools,
		agent:    d.Agent,
		registry: d.Registry,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/v1/auth/register", s.handleRegister)
	s.router.Post("/api/v1/auth/login", s.handleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/v1/tasks", s.handleListTasks)
		r.Post("/api/v1/tasks", s.handleCreateTask)
		r.Get("/api/v1/tasks/{id}", s.handleGetTask)
		r.Patch("/api/v1/tasks/{id}", s.handleUpdateTask)
		r.Delete("/api/v1/tasks/{id}", s.handleDeleteTask)
		r.Post("/api/v1/tasks/{id}/complete", s.handleCompleteTask)
		r.Post("/api/v1/chat", s.handleChat)
		r.Get("/api/v1/events", s.handleEvents)
	})
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// writeToolError maps tool error codes onto HTTP statuses for the REST
// endpoints. The chat endpoint never uses this; it degrades to 200.
func (s *Server) writeToolError(w http.ResponseWriter, err error) {
	switch {
	case tools.IsCode(err, tools.CodeNotFound):
		s.writeError(w, http.StatusNotFound, "task not found")
	case tools.IsCode(err, tools.CodeUnauthorized):
		// Leaking existence of another user's task is worse than a lie.
		s.writeError(w, http.StatusNotFound, "task not found")
	case tools.IsCode(err, tools.CodeInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("tool call failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
