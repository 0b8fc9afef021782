//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"globaldata/internal/country/models"
	"globaldata/internal/country/store"
	"globaldata/pkg/platform/sentinel"
	"globaldata/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../../migrations")
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "countries"))
}

func (s *PostgresStoreSuite) seed() time.Time {
	refreshedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	res, err := s.store.UpsertBatch(context.Background(), []models.Country{
		country("Nigeria", "Africa", 206139589, f64ptr(3.3e14), refreshedAt),
		country("Ghana", "Africa", 31072940, f64ptr(5.4e12), refreshedAt),
		country("Japan", "Asia", 125836021, f64ptr(1.85e13), refreshedAt),
		country("Antarctica", "", 1000, nil, refreshedAt),
	})
	s.Require().NoError(err)
	s.Require().Equal(4, res.Inserted)
	return refreshedAt
}

func country(name, region string, population int64, gdp *float64, at time.Time) models.Country {
	c := models.Country{Name: name, Population: population, EstimatedGDP: gdp, LastRefreshedAt: at}
	if region != "" {
		c.Region = &region
	}
	return c
}

func (s *PostgresStoreSuite) TestUpsertBatch() {
	ctx := context.Background()
	refreshedAt := s.seed()

	s.Run("re-upsert counts updates, not inserts", func() {
		res, err := s.store.UpsertBatch(ctx, []models.Country{
			country("Nigeria", "Africa", 210000000, f64ptr(3.5e14), refreshedAt.Add(time.Hour)),
		})
		s.Require().NoError(err)
		s.Equal(0, res.Inserted)
		s.Equal(1, res.Updated)

		got, err := s.store.FindByName(ctx, "Nigeria")
		s.Require().NoError(err)
		s.Equal(int64(210000000), got.Population)
	})

	s.Run("name match is case-insensitive", func() {
		res, err := s.store.UpsertBatch(ctx, []models.Country{
			country("NIGERIA", "Africa", 210000001, nil, refreshedAt),
		})
		s.Require().NoError(err)
		s.Equal(1, res.Updated)

		n, err := s.store.Count(ctx)
		s.Require().NoError(err)
		s.Equal(4, n, "case drift must not create a second row")
	})

	s.Run("update preserves the row id", func() {
		before, err := s.store.FindByName(ctx, "Ghana")
		s.Require().NoError(err)

		_, err = s.store.UpsertBatch(ctx, []models.Country{
			country("Ghana", "Africa", 32000000, nil, refreshedAt),
		})
		s.Require().NoError(err)

		after, err := s.store.FindByName(ctx, "Ghana")
		s.Require().NoError(err)
		s.Equal(before.ID, after.ID)
	})
}

func (s *PostgresStoreSuite) TestList() {
	ctx := context.Background()
	s.seed()

	s.Run("default sort is population descending", func() {
		got, err := s.store.List(ctx, models.ListQuery{Limit: 10})
		s.Require().NoError(err)
		s.Require().Len(got, 4)
		s.Equal("Nigeria", got[0].Name)
		s.Equal("Antarctica", got[3].Name)
	})

	s.Run("sort by name ascending", func() {
		got, err := s.store.List(ctx, models.ListQuery{Limit: 10, SortBy: models.SortByName})
		s.Require().NoError(err)
		s.Equal("Antarctica", got[0].Name)
	})

	s.Run("gdp sort places null estimates last", func() {
		got, err := s.store.List(ctx, models.ListQuery{Limit: 10, SortBy: models.SortByEstimatedGDP})
		s.Require().NoError(err)
		s.Require().Len(got, 4)
		s.Equal("Nigeria", got[0].Name)
		s.Equal("Antarctica", got[3].Name)
		s.Nil(got[3].EstimatedGDP)
	})

	s.Run("region filter is a case-insensitive substring", func() {
		got, err := s.store.List(ctx, models.ListQuery{Limit: 10, Region: "afr"})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("pagination", func() {
		got, err := s.store.List(ctx, models.ListQuery{Skip: 1, Limit: 2})
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("Japan", got[0].Name)
	})
}

func (s *PostgresStoreSuite) TestFindByName() {
	ctx := context.Background()
	s.seed()

	s.Run("case-insensitive hit", func() {
		got, err := s.store.FindByName(ctx, "japan")
		s.Require().NoError(err)
		s.Equal("Japan", got.Name)
	})

	s.Run("miss", func() {
		_, err := s.store.FindByName(ctx, "Atlantis")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestTopByEstimatedGDP() {
	ctx := context.Background()
	s.seed()

	got, err := s.store.TopByEstimatedGDP(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("Nigeria", got[0].Name)
	s.Equal("Japan", got[1].Name)
}

func f64ptr(v float64) *float64 { return &v }
