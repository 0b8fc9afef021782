// Package refresh implements the fetch → transform → upsert pipeline that
// feeds the countries table. A run pulls country metadata and USD exchange
// rates from the external providers, derives a GDP estimate, and commits all
// rows, the freshness record and the run history in one transaction.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	countrymodels "globaldata/internal/country/models"
	countrystore "globaldata/internal/country/store"
	"globaldata/internal/provider"
	"globaldata/internal/status"
	dErrors "globaldata/pkg/domain-errors"
	txcontext "globaldata/pkg/platform/tx"
	"globaldata/pkg/requestcontext"
)

var tracer = otel.Tracer("globaldata/refresh")

// Countries with an unknown or missing currency fall back to this rate.
const defaultExchangeRate = 1.0

// Result summarizes one completed refresh run.
type Result struct {
	RunID      uuid.UUID `json:"run_id"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Total      int       `json:"total"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// EventPublisher receives a notification after each successful run. The
// Kafka implementation lives in internal/events; a nil publisher disables
// notifications.
type EventPublisher interface {
	PublishRefreshCompleted(ctx context.Context, result Result) error
}

// CacheInvalidator drops derived caches after a successful run so reads
// reflect the new data immediately.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service orchestrates refresh runs. At most one run executes at a time;
// concurrent triggers are rejected with a conflict error.
type Service struct {
	countries provider.CountriesClient
	rates     provider.RatesClient
	store     countrystore.Store
	status    status.Store
	tx        txcontext.Runner
	logger    *slog.Logger
	metrics   *Metrics
	events    EventPublisher
	caches    CacheInvalidator

	// gdpFactor injects the random multiplier so tests stay deterministic.
	gdpFactor func() float64

	running atomic.Bool
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithMetrics attaches refresh metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEventPublisher attaches a refresh-completed event publisher.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithCacheInvalidator attaches a derived-cache invalidator.
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(s *Service) { s.caches = c }
}

// WithGDPFactor overrides the random GDP multiplier source.
func WithGDPFactor(fn func() float64) Option {
	return func(s *Service) { s.gdpFactor = fn }
}

// NewService wires a refresh service.
func NewService(
	countries provider.CountriesClient,
	rates provider.RatesClient,
	store countrystore.Store,
	statusStore status.Store,
	txRunner txcontext.Runner,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		countries: countries,
		rates:     rates,
		store:     store,
		status:    statusStore,
		tx:        txRunner,
		logger:    logger,
		gdpFactor: func() float64 { return 0.5 + rand.Float64() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one refresh pass. A rates failure is tolerated (every country
// falls back to the default rate); a countries failure aborts the run. On
// storage errors the whole transaction rolls back and nothing is written.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, dErrors.New(dErrors.CodeConflict, "a refresh is already running")
	}
	defer s.running.Store(false)

	ctx, span := tracer.Start(ctx, "refresh.Run")
	defer span.End()

	startedAt := requestcontext.Now(ctx).UTC()
	runID := uuid.New()

	rates, err := s.rates.FetchRates(ctx)
	if err != nil {
		// A rates outage degrades to the default rate rather than aborting.
		s.logger.WarnContext(ctx, "exchange rates unavailable, using default rate",
			"run_id", runID, "error", err.Error())
		rates = map[string]float64{}
	}

	countries, err := s.countries.FetchAll(ctx)
	if err != nil {
		s.recordFailure(startedAt)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to fetch countries")
	}
	if len(countries) == 0 {
		s.recordFailure(startedAt)
		return nil, dErrors.New(dErrors.CodeUnavailable, "countries provider returned no records")
	}

	rows := s.transform(countries, rates, startedAt)

	result := Result{RunID: runID, StartedAt: startedAt}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		upserted, err := s.store.UpsertBatch(txCtx, rows)
		if err != nil {
			return err
		}
		total, err := s.store.Count(txCtx)
		if err != nil {
			return err
		}

		result.Inserted = upserted.Inserted
		result.Updated = upserted.Updated
		result.Total = total
		result.FinishedAt = time.Now().UTC()

		if err := s.status.Touch(txCtx, startedAt); err != nil {
			return err
		}
		return s.status.RecordRun(txCtx, status.RefreshRun{
			ID:         runID,
			StartedAt:  startedAt,
			FinishedAt: result.FinishedAt,
			Inserted:   result.Inserted,
			Updated:    result.Updated,
			Total:      result.Total,
		})
	})
	if err != nil {
		s.recordFailure(startedAt)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "refresh transaction failed")
	}

	span.SetAttributes(
		attribute.Int("refresh.inserted", result.Inserted),
		attribute.Int("refresh.updated", result.Updated),
		attribute.Int("refresh.total", result.Total),
	)
	s.metrics.recordRun("success", time.Since(startedAt).Seconds())
	s.metrics.recordUpserts(result.Inserted, result.Updated)

	if s.caches != nil {
		if err := s.caches.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate summary cache",
				"run_id", runID, "error", err.Error())
		}
	}

	if s.events != nil {
		if err := s.events.PublishRefreshCompleted(ctx, result); err != nil {
			// Event delivery is best effort; the data is already committed.
			s.logger.WarnContext(ctx, "failed to publish refresh event",
				"run_id", runID, "error", err.Error())
		}
	}

	s.logger.InfoContext(ctx, "refresh complete",
		"run_id", runID,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"total", result.Total,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return &result, nil
}

// transform merges provider data into country rows. Every row in a run
// shares the same refresh timestamp.
func (s *Service) transform(countries []provider.CountryData, rates map[string]float64, refreshedAt time.Time) []countrymodels.Country {
	rows := make([]countrymodels.Country, 0, len(countries))
	for _, c := range countries {
		if c.Name == "" {
			continue
		}

		rate := defaultExchangeRate
		code := c.CurrencyCode()
		if r, ok := rates[code]; ok && code != "" {
			rate = r
		}

		// No estimate without a known population (or with a zero rate);
		// the column stays null rather than storing a meaningless 0.
		var population int64
		var gdp *float64
		if c.Population != nil {
			population = *c.Population
			if rate != 0 {
				v := float64(population) * rate * s.gdpFactor()
				gdp = &v
			}
		}

		rows = append(rows, countrymodels.Country{
			Name:            c.Name,
			Capital:         optional(c.Capital),
			Region:          optional(c.Region),
			Population:      population,
			CurrencyCode:    optional(code),
			ExchangeRate:    &rate,
			EstimatedGDP:    gdp,
			FlagURL:         optional(c.Flag),
			LastRefreshedAt: refreshedAt,
		})
	}
	return rows
}

func (s *Service) recordFailure(startedAt time.Time) {
	s.metrics.recordRun("failure", time.Since(startedAt).Seconds())
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

var _ fmt.Stringer = Result{}

// String renders the run summary the one-shot command prints.
func (r Result) String() string {
	return fmt.Sprintf("inserted=%d updated=%d total=%d elapsed=%s",
		r.Inserted, r.Updated, r.Total, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
