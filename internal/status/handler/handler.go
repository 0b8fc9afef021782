// Package handler exposes the dataset freshness endpoints.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"globaldata/internal/status"
	"globaldata/internal/transport/http/shared"
	dErrors "globaldata/pkg/domain-errors"
	"globaldata/pkg/platform/sentinel"
	"globaldata/pkg/requestcontext"
)

const defaultHistoryLimit = 20

// Handler handles status endpoints.
type Handler struct {
	logger *slog.Logger
	store  status.Store
}

// New creates a status Handler.
func New(store status.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register mounts the status routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/status", h.handleGet)
	r.Get("/status/history", h.handleHistory)
}

// handleGet serves the last refresh timestamp, or 503 when the refresh has
// never run against this database.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	st, err := h.store.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable,
				"status not yet initialized; run a refresh first"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load status",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := h.store.RecentRuns(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list refresh runs",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list refresh runs"))
		return
	}
	if runs == nil {
		runs = []status.RefreshRun{}
	}
	shared.WriteJSON(w, http.StatusOK, runs)
}
