package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taskflow-backend/internal/auth"
	"taskflow-backend/internal/store"
	"taskflow-backend/internal/types"
)

const minPasswordLen = 8

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if !strings.Contains(req.Email, "@") {
		s.writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		s.writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("password hashing failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user, err := s.users.Create(r.Context(), req.Email, req.Username, hash)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			s.writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.log.Error("user creation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := s.auth.Issue(user.ID)
	if err != nil {
		s.log.Error("token issue failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusCreated, types.AuthResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.users.ByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same response as a bad password: no account enumeration.
			s.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.log.Error("user lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.auth.Issue(user.ID)
	if err != nil {
		s.log.Error("token issue failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, types.AuthResponse{AccessToken: token, TokenType: "bearer"})
}
