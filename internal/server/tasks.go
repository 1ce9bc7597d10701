package server

import (
	"net/http"
	"strings"

	"todo-sync/internal/domain"
	"todo-sync/internal/remote"
	"todo-sync/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListTasks handles GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	records, err := h.tasks.ListByOwner(r.Context(), SubjectFromContext(r.Context()))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.TaskListResponse{Tasks: h.mapper.Task.FromDatabaseSlice(records)})
}

// CreateTask handles POST /api/v1/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req remote.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	verr := validation.NewValidationError()
	verr.Merge(h.taskValidator.ValidateTitle(req.Title))
	verr.Merge(h.taskValidator.ValidateDescription(req.Description))
	if err := verr.OrNil(); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	userID := SubjectFromContext(r.Context())
	if req.Document != nil {
		if err := h.checkDocument(r, userID, req.Document.ID); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
	}

	createdAt := req.CreatedAt.UTC()
	if req.CreatedAt.IsZero() {
		createdAt = h.now().UTC()
	}
	task := domain.Task{
		ID:          domain.NewRemoteID(uuid.NewString()),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Completed:   req.Completed,
		CreatedAt:   createdAt,
		Document:    req.Document,
	}
	record := h.mapper.Task.ToDatabase(task)
	if err := h.tasks.Create(r.Context(), &record); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	h.logger.Debug("task created", "task_id", record.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, h.mapper.Task.FromDatabase(record))
}

// GetTask handles GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	record, err := h.tasks.GetByID(r.Context(), SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.mapper.Task.FromDatabase(*record))
}

// UpdateTask handles PATCH /api/v1/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var update domain.TaskUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.taskValidator.ValidateTaskForUpdate(id, update, ""); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		update.Title = &title
	}

	userID := SubjectFromContext(r.Context())
	if update.Document != nil {
		if err := h.checkDocument(r, userID, update.Document.ID); err != nil {
			writeAppError(w, h.logger, err)
			return
		}
	}

	record, err := h.tasks.Update(r.Context(), userID, id, h.mapper.Task.PatchToDatabase(update))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.mapper.Task.FromDatabase(*record))
}

// DeleteTask handles DELETE /api/v1/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tasks.Delete(r.Context(), SubjectFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkDocument rejects references to documents the caller does not own
func (h *Handler) checkDocument(r *http.Request, userID, id string) error {
	_, err := h.documents.GetByID(r.Context(), userID, id)
	return err
}
