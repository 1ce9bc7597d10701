package server

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"todo-sync/internal/documents"
	"todo-sync/internal/domain"
	apperrors "todo-sync/internal/errors"
	"todo-sync/internal/remote"
	"todo-sync/internal/repository/postgres"

	"github.com/go-chi/chi/v5"
)

const maxKeyLength = 512

// UploadDocument handles POST /api/v1/documents. The multipart body carries a
// "key" field and a "file" part; an upload under an existing key replaces
// the previous blob.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID := SubjectFromContext(r.Context())
	if h.maxUpload > 0 {
		// Headroom for the multipart framing and the key field.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+64<<10)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, remote.CodeValidationError, "expected a multipart body")
		return
	}

	var (
		key         string
		filename    string
		contentType string
		saved       *documents.SaveResult
	)
	discard := func() {
		if saved != nil {
			if err := h.files.Delete(saved.StoragePath); err != nil {
				h.logger.Warn("failed to remove blob", slog.String("path", saved.StoragePath), slog.Any("error", err))
			}
		}
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			discard()
			h.writeUploadError(w, err)
			return
		}

		switch part.FormName() {
		case "key":
			raw, err := io.ReadAll(io.LimitReader(part, maxKeyLength+1))
			if err != nil {
				discard()
				h.writeUploadError(w, err)
				return
			}
			key = string(raw)
		case "file":
			if saved != nil {
				discard()
				WriteError(w, http.StatusBadRequest, remote.CodeValidationError, "only one file per upload")
				return
			}
			filename = part.FileName()
			contentType = part.Header.Get("Content-Type")
			saved, err = h.files.Save(part, filename, userID, h.maxUpload)
			if err != nil {
				h.writeUploadError(w, err)
				return
			}
		}
		part.Close()
	}

	if saved == nil {
		WriteError(w, http.StatusBadRequest, remote.CodeValidationError, "file is required")
		return
	}
	if key == "" || len(key) > maxKeyLength || !strings.HasPrefix(key, "todo_docs/"+userID+"/") {
		discard()
		WriteError(w, http.StatusBadRequest, remote.CodeValidationError, "key must be under the caller's document folder")
		return
	}
	if contentType == "" || contentType == "application/octet-stream" {
		// Multipart writers default to octet-stream; the extension is a better guess.
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	record := &postgres.DocumentRecord{
		ID:          saved.ID,
		UserID:      userID,
		Key:         key,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   saved.Size,
		SHA256:      saved.Checksum,
		Path:        saved.StoragePath,
	}
	previous, err := h.documents.Upsert(r.Context(), record)
	if err != nil {
		discard()
		writeAppError(w, h.logger, err)
		return
	}
	if previous != nil {
		if err := h.files.Delete(previous.Path); err != nil {
			h.logger.Warn("failed to remove replaced blob", slog.String("document_id", previous.ID), slog.Any("error", err))
		}
	}

	h.logger.Info("document stored",
		slog.String("document_id", record.ID),
		slog.String("user_id", userID),
		slog.Int64("size_bytes", record.SizeBytes),
	)
	writeJSON(w, http.StatusCreated, domain.Document{ID: record.ID, URL: h.documentURL(record.ID)})
}

// GetDocument handles GET /api/v1/documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	record, err := h.documents.GetByID(r.Context(), SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	f, err := h.files.Open(record.Path)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": record.Filename}))
	w.Header().Set("ETag", `"`+record.SHA256+`"`)
	http.ServeContent(w, r, record.Filename, record.CreatedAt, f)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	record, err := h.documents.Delete(r.Context(), SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if err := h.files.Delete(record.Path); err != nil {
		h.logger.Warn("failed to remove blob", slog.String("document_id", record.ID), slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) documentURL(id string) string {
	return strings.TrimRight(h.publicURL, "/") + "/api/v1/documents/" + id
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) || apperrors.IsErrorType(err, apperrors.ErrorTypeInvalidInput) {
		WriteError(w, http.StatusRequestEntityTooLarge, remote.CodeTooLarge, "document exceeds the upload limit")
		return
	}
	writeAppError(w, h.logger, err)
}
