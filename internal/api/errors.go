package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/directory"
	"github.com/ryanbastic/cafedir/internal/moderation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// toHumaError maps domain errors to HTTP problems. Anything unrecognised is
// logged with args and reported as a 500 carrying msg.
func toHumaError(logger *slog.Logger, err error, msg string, args ...any) error {
	switch {
	case errors.Is(err, admin.ErrUnauthorized):
		return huma.Error403Forbidden("invalid or missing admin token")
	case errors.Is(err, moderation.ErrNotFound), errors.Is(err, directory.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, moderation.ErrInvalidArgument), errors.Is(err, directory.ErrInvalidCursor):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, moderation.ErrConflict), errors.Is(err, directory.ErrDuplicateName):
		return huma.Error409Conflict(err.Error())
	}
	logger.Error(msg, append(args, "error", err)...)
	return huma.Error500InternalServerError(msg)
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, admin.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, moderation.ErrNotFound):
		return "not_found"
	case errors.Is(err, moderation.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, moderation.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
