package web

// Error responses carry both the coded user message from core.MapError and
// the request id for correlation with the server log.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/logging"
	"github.com/JonMunkholm/crmimport/internal/store"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message"`
	Action   string   `json:"action,omitempty"`
	Code     string   `json:"code"`
	Messages []string `json:"messages,omitempty"`
}

var errInvalidID = errors.New("invalid id in path")

// respondError logs err and writes its user message with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var vErr *core.ValidationFailedError
	if errors.As(err, &vErr) {
		resp.Messages = vErr.Messages
	}
	writeJSON(w, statusCode, resp)
}

// statusFor picks the HTTP status for an error returned by a service.
func statusFor(err error) int {
	var vErr *core.ValidationFailedError
	var fieldErr *store.FieldValueError
	switch {
	case errors.Is(err, importer.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, importer.ErrUnsupportedImportKind),
		errors.Is(err, core.ErrImportNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrInvalidForm), errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.As(err, &vErr), errors.As(err, &fieldErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrNotValidated), errors.Is(err, errImportRunning):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
