// Package service implements the country read path: validated listings,
// single-country lookup and the cached refresh summary.
package service

import (
	"context"
	"errors"
	"log/slog"

	"globaldata/internal/country/metrics"
	"globaldata/internal/country/models"
	"globaldata/internal/country/store"
	"globaldata/internal/status"
	dErrors "globaldata/pkg/domain-errors"
	"globaldata/pkg/platform/sentinel"
)

const (
	defaultLimit = 100
	maxLimit     = 500
	summaryTopN  = 5
)

// SummaryCache is the optional Redis cache in front of the summary
// computation. Stores return sentinel.ErrNotFound on a miss.
type SummaryCache interface {
	Get(ctx context.Context) (*models.Summary, error)
	Set(ctx context.Context, summary *models.Summary) error
}

// Service answers country read queries.
type Service struct {
	store   store.Store
	status  status.Store
	cache   SummaryCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithSummaryCache attaches the summary cache.
func WithSummaryCache(cache SummaryCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics attaches country metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New wires a country read service.
func New(countryStore store.Store, statusStore status.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: countryStore, status: statusStore, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a page of countries. Unknown sort columns and negative
// pagination are rejected; an empty page past the first is reported as
// not found so clients can stop paging.
func (s *Service) List(ctx context.Context, q models.ListQuery) ([]models.Country, error) {
	if q.Skip < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "skip must not be negative")
	}
	if q.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit must not be negative")
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	switch q.SortBy {
	case "", models.SortByName, models.SortByPopulation, models.SortByEstimatedGDP:
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "sort_by must be one of name, population, estimated_gdp")
	}

	countries, err := s.store.List(ctx, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list countries")
	}
	if len(countries) == 0 && q.Skip > 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no more countries found in this range")
	}
	return countries, nil
}

// GetByName returns a single country by case-insensitive name.
func (s *Service) GetByName(ctx context.Context, name string) (*models.Country, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "country name is required")
	}

	country, err := s.store.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "country not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load country")
	}
	return country, nil
}

// Summary returns the refresh digest: total countries, top five by estimated
// GDP and the last refresh time. Served from Redis when cached; a cache
// outage falls through to the store.
func (s *Service) Summary(ctx context.Context) (*models.Summary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		switch {
		case err == nil:
			s.metrics.RecordCacheHit()
			return cached, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "summary cache read failed", "error", err.Error())
		}
	}
	s.metrics.RecordCacheMiss()

	st, err := s.status.Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnavailable, "no refresh has completed yet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load refresh status")
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count countries")
	}
	top, err := s.store.TopByEstimatedGDP(ctx, summaryTopN)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rank countries")
	}

	summary := &models.Summary{
		TotalCountries: total,
		TopByGDP:       top,
		GeneratedAt:    st.LastUpdated,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.WarnContext(ctx, "summary cache write failed", "error", err.Error())
		}
	}
	return summary, nil
}
