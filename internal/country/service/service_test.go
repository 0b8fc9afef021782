package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"globaldata/internal/country/models"
	"globaldata/internal/country/store"
	"globaldata/internal/status"
	dErrors "globaldata/pkg/domain-errors"
	"globaldata/pkg/platform/sentinel"
)

// fakeCache is an in-process SummaryCache double.
type fakeCache struct {
	summary *models.Summary
	getErr  error
	sets    int
}

func (c *fakeCache) Get(context.Context) (*models.Summary, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	if c.summary == nil {
		return nil, sentinel.ErrNotFound
	}
	return c.summary, nil
}

func (c *fakeCache) Set(_ context.Context, summary *models.Summary) error {
	c.summary = summary
	c.sets++
	return nil
}

type CountryServiceSuite struct {
	suite.Suite
	store  *store.InMemory
	status *status.InMemoryStore
	ctx    context.Context
}

func TestCountryServiceSuite(t *testing.T) {
	suite.Run(t, new(CountryServiceSuite))
}

func (s *CountryServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.status = status.NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *CountryServiceSuite) newService(opts ...Option) *Service {
	return New(s.store, s.status, slog.New(slog.DiscardHandler), opts...)
}

func strptr(v string) *string   { return &v }
func f64ptr(v float64) *float64 { return &v }

func (s *CountryServiceSuite) seed(n int) {
	refreshedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	countries := make([]models.Country, 0, n)
	names := []string{"Nigeria", "Ghana", "Japan", "France", "Brazil", "Kenya", "Chile"}
	for i := 0; i < n; i++ {
		countries = append(countries, models.Country{
			Name:            names[i%len(names)],
			Region:          strptr("Africa"),
			Population:      int64(1000 * (i + 1)),
			EstimatedGDP:    f64ptr(float64(1e9 * (i + 1))),
			LastRefreshedAt: refreshedAt,
		})
	}
	_, err := s.store.UpsertBatch(s.ctx, countries)
	s.Require().NoError(err)
	s.Require().NoError(s.status.Touch(s.ctx, refreshedAt))
}

func (s *CountryServiceSuite) TestList() {
	s.seed(5)
	svc := s.newService()

	s.Run("defaults applied", func() {
		got, err := svc.List(s.ctx, models.ListQuery{})
		s.Require().NoError(err)
		s.Len(got, 5)
	})

	s.Run("negative skip rejected", func() {
		_, err := svc.List(s.ctx, models.ListQuery{Skip: -1})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown sort column rejected", func() {
		_, err := svc.List(s.ctx, models.ListQuery{SortBy: "capital"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty page past the first is not found", func() {
		_, err := svc.List(s.ctx, models.ListQuery{Skip: 50})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty first page is fine", func() {
		empty := New(store.NewInMemory(), s.status, slog.New(slog.DiscardHandler))
		got, err := empty.List(s.ctx, models.ListQuery{})
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *CountryServiceSuite) TestGetByName() {
	s.seed(3)
	svc := s.newService()

	s.Run("found", func() {
		got, err := svc.GetByName(s.ctx, "japan")
		s.Require().NoError(err)
		s.Equal("Japan", got.Name)
	})

	s.Run("missing name rejected", func() {
		_, err := svc.GetByName(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("absent country is not found", func() {
		_, err := svc.GetByName(s.ctx, "Atlantis")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CountryServiceSuite) TestSummary() {
	s.seed(7)

	s.Run("computed from the store and cached", func() {
		cache := &fakeCache{}
		svc := s.newService(WithSummaryCache(cache))

		summary, err := svc.Summary(s.ctx)
		s.Require().NoError(err)
		s.Equal(7, summary.TotalCountries)
		s.Len(summary.TopByGDP, 5)
		s.Equal(1, cache.sets)

		// Second call hits the cache; the store result is not recomputed.
		again, err := svc.Summary(s.ctx)
		s.Require().NoError(err)
		s.Equal(summary, again)
		s.Equal(1, cache.sets)
	})

	s.Run("cache outage falls through to the store", func() {
		cache := &fakeCache{getErr: errors.New("redis down")}
		svc := s.newService(WithSummaryCache(cache))

		summary, err := svc.Summary(s.ctx)
		s.Require().NoError(err)
		s.Equal(7, summary.TotalCountries)
	})

	s.Run("no cache configured still works", func() {
		svc := s.newService()
		summary, err := svc.Summary(s.ctx)
		s.Require().NoError(err)
		s.Equal(7, summary.TotalCountries)
	})
}

func (s *CountryServiceSuite) TestSummaryBeforeFirstRefresh() {
	svc := New(store.NewInMemory(), status.NewInMemoryStore(), slog.New(slog.DiscardHandler))

	_, err := svc.Summary(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}
