package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	countrystore "globaldata/internal/country/store"
	"globaldata/internal/provider"
	"globaldata/internal/status"
	dErrors "globaldata/pkg/domain-errors"
	"globaldata/pkg/platform/sentinel"
	txcontext "globaldata/pkg/platform/tx"
	"globaldata/pkg/requestcontext"
)

type recordingPublisher struct {
	results []Result
	err     error
}

func (p *recordingPublisher) PublishRefreshCompleted(_ context.Context, result Result) error {
	p.results = append(p.results, result)
	return p.err
}

type recordingInvalidator struct {
	calls int
}

func (i *recordingInvalidator) Invalidate(context.Context) error {
	i.calls++
	return nil
}

type RefreshServiceSuite struct {
	suite.Suite
	store     *countrystore.InMemory
	status    *status.InMemoryStore
	publisher *recordingPublisher
	ctx       context.Context
}

func TestRefreshServiceSuite(t *testing.T) {
	suite.Run(t, new(RefreshServiceSuite))
}

func (s *RefreshServiceSuite) SetupTest() {
	s.store = countrystore.NewInMemory()
	s.status = status.NewInMemoryStore()
	s.publisher = &recordingPublisher{}
	s.ctx = context.Background()
}

func i64ptr(v int64) *int64 { return &v }

func sampleCountries() []provider.CountryData {
	return []provider.CountryData{
		{
			Name:       "Nigeria",
			Capital:    "Abuja",
			Region:     "Africa",
			Population: i64ptr(206139589),
			Flag:       "https://flagcdn.com/ng.svg",
			Currencies: []provider.Currency{{Code: "NGN", Name: "Nigerian naira"}},
		},
		{
			Name:       "Japan",
			Capital:    "Tokyo",
			Region:     "Asia",
			Population: i64ptr(125836021),
			Currencies: []provider.Currency{{Code: "JPY"}},
		},
		{
			// No currency at all: rate falls back to the default.
			Name:       "Antarctica",
			Population: i64ptr(1000),
		},
	}
}

func sampleRates() map[string]float64 {
	return map[string]float64{"NGN": 1600.23, "JPY": 147.5}
}

func (s *RefreshServiceSuite) newService(countries provider.CountriesClient, rates provider.RatesClient, opts ...Option) *Service {
	logger := slog.New(slog.DiscardHandler)
	opts = append([]Option{WithGDPFactor(func() float64 { return 1.0 })}, opts...)
	return NewService(countries, rates, s.store, s.status, txcontext.NoopRunner{}, logger, opts...)
}

func (s *RefreshServiceSuite) TestRun() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: sampleCountries()},
		provider.MockRatesClient{Rates: sampleRates()},
		WithEventPublisher(s.publisher),
	)

	s.Run("first run inserts every country", func() {
		result, err := svc.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, result.Inserted)
		s.Equal(0, result.Updated)
		s.Equal(3, result.Total)
	})

	s.Run("merged rows carry rate, gdp and provider metadata", func() {
		nigeria, err := s.store.FindByName(s.ctx, "Nigeria")
		s.Require().NoError(err)
		s.Require().NotNil(nigeria.ExchangeRate)
		s.InDelta(1600.23, *nigeria.ExchangeRate, 1e-9)
		s.Require().NotNil(nigeria.EstimatedGDP)
		s.InDelta(float64(206139589)*1600.23, *nigeria.EstimatedGDP, 1e-3)
		s.Require().NotNil(nigeria.Capital)
		s.Equal("Abuja", *nigeria.Capital)
		s.Require().NotNil(nigeria.CurrencyCode)
		s.Equal("NGN", *nigeria.CurrencyCode)
		s.Require().NotNil(nigeria.FlagURL)
	})

	s.Run("missing currency falls back to the default rate", func() {
		c, err := s.store.FindByName(s.ctx, "Antarctica")
		s.Require().NoError(err)
		s.Require().NotNil(c.ExchangeRate)
		s.Equal(defaultExchangeRate, *c.ExchangeRate)
		s.Nil(c.CurrencyCode)
	})

	s.Run("all rows share one refresh timestamp", func() {
		nigeria, err := s.store.FindByName(s.ctx, "Nigeria")
		s.Require().NoError(err)
		japan, err := s.store.FindByName(s.ctx, "Japan")
		s.Require().NoError(err)
		s.Equal(nigeria.LastRefreshedAt, japan.LastRefreshedAt)
	})

	s.Run("status is touched and the run recorded", func() {
		st, err := s.status.Get(s.ctx)
		s.Require().NoError(err)
		s.False(st.LastUpdated.IsZero())

		runs, err := s.status.RecentRuns(s.ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(runs, 1)
		s.Equal(3, runs[0].Inserted)
	})

	s.Run("completion event published", func() {
		s.Require().Len(s.publisher.results, 1)
		s.Equal(3, s.publisher.results[0].Total)
	})

	s.Run("second run updates instead of inserting", func() {
		result, err := svc.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, result.Inserted)
		s.Equal(3, result.Updated)
		s.Equal(3, result.Total)
	})
}

func (s *RefreshServiceSuite) TestGDPFactorApplied() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: sampleCountries()},
		provider.MockRatesClient{Rates: sampleRates()},
		WithGDPFactor(func() float64 { return 0.5 }),
	)

	_, err := svc.Run(s.ctx)
	s.Require().NoError(err)

	japan, err := s.store.FindByName(s.ctx, "Japan")
	s.Require().NoError(err)
	s.Require().NotNil(japan.EstimatedGDP)
	s.InDelta(float64(125836021)*147.5*0.5, *japan.EstimatedGDP, 1e-3)
}

func (s *RefreshServiceSuite) TestRatesFailureTolerated() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: sampleCountries()},
		provider.MockRatesClient{Err: errors.New("rates down")},
	)

	result, err := svc.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, result.Inserted)

	nigeria, err := s.store.FindByName(s.ctx, "Nigeria")
	s.Require().NoError(err)
	s.Equal(defaultExchangeRate, *nigeria.ExchangeRate)
}

func (s *RefreshServiceSuite) TestCountriesFailureAborts() {
	svc := s.newService(
		provider.MockCountriesClient{Err: errors.New("provider down")},
		provider.MockRatesClient{Rates: sampleRates()},
	)

	_, err := svc.Run(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count, "nothing written on an aborted run")

	_, err = s.status.Get(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound, "aborted run must leave status untouched")
}

func (s *RefreshServiceSuite) TestEmptyCountriesAborts() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: nil},
		provider.MockRatesClient{Rates: sampleRates()},
	)

	_, err := svc.Run(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *RefreshServiceSuite) TestCacheInvalidatedAfterRun() {
	inv := &recordingInvalidator{}
	svc := s.newService(
		provider.MockCountriesClient{Countries: sampleCountries()},
		provider.MockRatesClient{Rates: sampleRates()},
		WithCacheInvalidator(inv),
	)

	_, err := svc.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, inv.calls)
}

func (s *RefreshServiceSuite) TestUnknownPopulationLeavesGDPNull() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: []provider.CountryData{
			{
				// Population omitted by the provider.
				Name:       "Atlantis",
				Currencies: []provider.Currency{{Code: "NGN"}},
			},
		}},
		provider.MockRatesClient{Rates: map[string]float64{"NGN": 2.0}},
	)

	_, err := svc.Run(s.ctx)
	s.Require().NoError(err)

	c, err := s.store.FindByName(s.ctx, "Atlantis")
	s.Require().NoError(err)
	s.Nil(c.EstimatedGDP, "no population means no estimate, not a zero one")
	s.Zero(c.Population)
	s.Require().NotNil(c.ExchangeRate)
	s.InDelta(2.0, *c.ExchangeRate, 1e-9)
}

func (s *RefreshServiceSuite) TestZeroRateLeavesGDPNull() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: []provider.CountryData{
			{
				Name:       "Nigeria",
				Population: i64ptr(206139589),
				Currencies: []provider.Currency{{Code: "NGN"}},
			},
		}},
		provider.MockRatesClient{Rates: map[string]float64{"NGN": 0}},
	)

	_, err := svc.Run(s.ctx)
	s.Require().NoError(err)

	c, err := s.store.FindByName(s.ctx, "Nigeria")
	s.Require().NoError(err)
	s.Nil(c.EstimatedGDP)
}

// gatedCountriesClient blocks FetchAll until released, so tests can hold a
// run open while asserting concurrent behavior.
type gatedCountriesClient struct {
	startedOnce sync.Once
	started     chan struct{}
	release     chan struct{}
	data        []provider.CountryData
}

func (c *gatedCountriesClient) FetchAll(_ context.Context) ([]provider.CountryData, error) {
	c.startedOnce.Do(func() { close(c.started) })
	<-c.release
	return c.data, nil
}

func (s *RefreshServiceSuite) TestConcurrentRunRejected() {
	gate := &gatedCountriesClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
		data:    sampleCountries(),
	}
	svc := s.newService(gate, provider.MockRatesClient{Rates: sampleRates()})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(s.ctx)
		done <- err
	}()

	<-gate.started
	_, err := svc.Run(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "second trigger must be rejected while a run is active")

	close(gate.release)
	s.Require().NoError(<-done)

	s.Run("guard releases after the run finishes", func() {
		result, err := svc.Run(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, result.Total)
	})
}

func (s *RefreshServiceSuite) TestRefreshTimestampAnchoredToContext() {
	svc := s.newService(
		provider.MockCountriesClient{Countries: sampleCountries()},
		provider.MockRatesClient{Rates: sampleRates()},
	)

	pinned := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, pinned)

	_, err := svc.Run(ctx)
	s.Require().NoError(err)

	nigeria, err := s.store.FindByName(s.ctx, "Nigeria")
	s.Require().NoError(err)
	s.Equal(pinned, nigeria.LastRefreshedAt)

	st, err := s.status.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(pinned, st.LastUpdated)
}
