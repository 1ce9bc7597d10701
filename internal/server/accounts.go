package server

import (
	"net/http"
	"strings"

	"todo-sync/internal/auth"
	"todo-sync/internal/domain"
	apperrors "todo-sync/internal/errors"
	"todo-sync/internal/remote"
	"todo-sync/internal/repository/postgres"

	"github.com/google/uuid"
)

// Signup handles POST /api/v1/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req remote.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.accountValidator.ValidateSignup(req.Name, req.Email, req.Password); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	user := &postgres.UserRecord{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         domain.DefaultRole,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.accountValidator.ValidateLogin(req.Email, req.Password); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil && !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		writeAppError(w, h.logger, err)
		return
	}
	// Same answer for unknown email and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		WriteError(w, http.StatusUnauthorized, remote.CodeUnauthorized, "invalid email or password")
		return
	}

	now := h.now().UTC()
	if err := h.users.TouchLastLogin(r.Context(), user.ID, now); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	user.LastLogin = &now

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, user *postgres.UserRecord) {
	token, expiresAt, err := h.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, status, remote.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      h.mapper.User.FromDatabase(*user),
	})
}

// Me handles GET /api/v1/users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), SubjectFromContext(r.Context()))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.mapper.User.FromDatabase(*user))
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if update.Name == nil || strings.TrimSpace(*update.Name) == "" {
		WriteError(w, http.StatusBadRequest, remote.CodeValidationError, "name is required")
		return
	}

	user, err := h.users.UpdateName(r.Context(), SubjectFromContext(r.Context()), strings.TrimSpace(*update.Name))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.mapper.User.FromDatabase(*user))
}
