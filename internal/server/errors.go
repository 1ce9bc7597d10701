package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "todo-sync/internal/errors"
	"todo-sync/internal/remote"
	"todo-sync/internal/validation"
)

// WriteError writes {"error": {"code", "message"}} with the given status
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, remote.ErrorBody{
		Error: remote.ErrorDetail{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps an application error onto the HTTP error format.
// Client mistakes are answered without an error log line.
func writeAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var validationErr *validation.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, remote.CodeValidationError, validationErr.GetUserFriendlyMessage())
		return
	}

	if apperrors.ShouldLogError(err) {
		logger.Error("request failed", slog.String("code", apperrors.GetErrorCode(err)), slog.Any("error", err))
	} else {
		logger.Debug("request refused", slog.String("code", apperrors.GetErrorCode(err)), slog.Any("error", err))
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		WriteError(w, http.StatusInternalServerError, remote.CodeInternalError, "internal error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeInvalidInput:
		WriteError(w, http.StatusBadRequest, remote.CodeValidationError, appErr.Message)
	case apperrors.ErrorTypeNotFound:
		WriteError(w, http.StatusNotFound, remote.CodeNotFound, appErr.Message)
	case apperrors.ErrorTypePermission:
		WriteError(w, http.StatusUnauthorized, remote.CodeUnauthorized, appErr.Message)
	case apperrors.ErrorTypeConflict:
		WriteError(w, http.StatusConflict, remote.CodeConflict, appErr.Message)
	default:
		WriteError(w, http.StatusInternalServerError, remote.CodeInternalError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidInputError("body", nil, err.Error())
	}
	return nil
}
