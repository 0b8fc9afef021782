// Package handler is the thin HTTP layer over the country service. It
// parses and validates transport inputs and delegates everything else.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"globaldata/internal/country/models"
	"globaldata/internal/refresh"
	"globaldata/internal/transport/http/shared"
	dErrors "globaldata/pkg/domain-errors"
	"globaldata/pkg/requestcontext"
)

// Service is the country read interface the handler depends on.
type Service interface {
	List(ctx context.Context, q models.ListQuery) ([]models.Country, error)
	GetByName(ctx context.Context, name string) (*models.Country, error)
	Summary(ctx context.Context) (*models.Summary, error)
}

// Refresher triggers a refresh run on demand.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Result, error)
}

// Handler handles country endpoints.
type Handler struct {
	logger    *slog.Logger
	countries Service
	refresher Refresher
}

// New creates a country Handler. The refresher may be nil, which disables
// the trigger endpoint.
func New(countries Service, refresher Refresher, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, countries: countries, refresher: refresher}
}

// Register mounts the country routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/countries", h.handleList)
	r.Get("/countries/summary", h.handleSummary)
	r.Get("/countries/{name}", h.handleGetByName)
	r.Post("/countries/refresh", h.handleRefresh)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := models.ListQuery{
		Region: r.URL.Query().Get("region"),
		SortBy: r.URL.Query().Get("sort_by"),
	}

	var err error
	if q.Skip, err = queryInt(r, "skip", 0); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "skip must be an integer"))
		return
	}
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer"))
		return
	}

	countries, err := h.countries.List(ctx, q)
	if err != nil {
		h.logListError(ctx, err)
		shared.WriteError(w, err)
		return
	}
	if countries == nil {
		countries = []models.Country{}
	}
	shared.WriteJSON(w, http.StatusOK, countries)
}

func (h *Handler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	country, err := h.countries.GetByName(ctx, name)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load country",
				"request_id", requestcontext.RequestID(ctx),
				"name", name,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, country)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.countries.Summary(ctx)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to build summary",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.refresher == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "refresh is not configured"))
		return
	}

	result, err := h.refresher.Run(ctx)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "refresh trigger failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) logListError(ctx context.Context, err error) {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return
	}
	h.logger.ErrorContext(ctx, "failed to list countries",
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
