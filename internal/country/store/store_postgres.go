package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"globaldata/internal/country/models"
	"globaldata/pkg/platform/sentinel"
	txcontext "globaldata/pkg/platform/tx"
)

// Postgres persists country records in PostgreSQL. Writes go through the
// context transaction when one is present so refresh runs stay atomic.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed country store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const countryColumns = `id, name, capital, region, population, currency_code,
	exchange_rate, estimated_gdp, flag_url, last_refreshed_at`

// UpsertBatch writes every record keyed by lower(name), counting inserts vs
// updates via the xmax trick: a freshly inserted row has xmax = 0.
func (s *Postgres) UpsertBatch(ctx context.Context, countries []models.Country) (UpsertResult, error) {
	q := s.querier(ctx)
	var res UpsertResult

	query := `
		INSERT INTO countries (
			name, capital, region, population, currency_code,
			exchange_rate, estimated_gdp, flag_url, last_refreshed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ((lower(name))) DO UPDATE SET
			name = EXCLUDED.name,
			capital = EXCLUDED.capital,
			region = EXCLUDED.region,
			population = EXCLUDED.population,
			currency_code = EXCLUDED.currency_code,
			exchange_rate = EXCLUDED.exchange_rate,
			estimated_gdp = EXCLUDED.estimated_gdp,
			flag_url = EXCLUDED.flag_url,
			last_refreshed_at = EXCLUDED.last_refreshed_at
		RETURNING (xmax = 0) AS inserted
	`

	for _, c := range countries {
		var inserted bool
		err := q.QueryRowContext(ctx, query,
			c.Name,
			c.Capital,
			c.Region,
			c.Population,
			c.CurrencyCode,
			c.ExchangeRate,
			c.EstimatedGDP,
			c.FlagURL,
			c.LastRefreshedAt,
		).Scan(&inserted)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("upsert country %q: %w", c.Name, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

// List returns a page of countries with optional region filtering and a
// whitelisted sort column. Numeric sorts are descending, name is ascending.
func (s *Postgres) List(ctx context.Context, q models.ListQuery) ([]models.Country, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + countryColumns + ` FROM countries`)

	if q.Region != "" {
		args = append(args, "%"+q.Region+"%")
		fmt.Fprintf(&sb, " WHERE region ILIKE $%d", len(args))
	}

	switch q.SortBy {
	case models.SortByName:
		sb.WriteString(" ORDER BY name ASC")
	case models.SortByEstimatedGDP:
		sb.WriteString(" ORDER BY estimated_gdp DESC NULLS LAST, name ASC")
	default:
		sb.WriteString(" ORDER BY population DESC, name ASC")
	}

	args = append(args, q.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, q.Skip)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := s.querier(ctx).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	return scanCountries(rows)
}

// FindByName performs a case-insensitive exact name lookup.
func (s *Postgres) FindByName(ctx context.Context, name string) (*models.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM countries WHERE lower(name) = lower($1)`
	row := s.querier(ctx).QueryRowContext(ctx, query, name)

	c, err := scanCountry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find country %q: %w", name, err)
	}
	return c, nil
}

// Count returns the number of country rows.
func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.querier(ctx).QueryRowContext(ctx, `SELECT count(*) FROM countries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count countries: %w", err)
	}
	return n, nil
}

// TopByEstimatedGDP returns the n countries with the highest GDP estimate.
// Rows without an estimate are excluded.
func (s *Postgres) TopByEstimatedGDP(ctx context.Context, n int) ([]models.Country, error) {
	query := `SELECT ` + countryColumns + ` FROM countries
		WHERE estimated_gdp IS NOT NULL
		ORDER BY estimated_gdp DESC, name ASC
		LIMIT $1`

	rows, err := s.querier(ctx).QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("top countries by gdp: %w", err)
	}
	defer rows.Close()

	return scanCountries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCountry(row rowScanner) (*models.Country, error) {
	var c models.Country
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Capital,
		&c.Region,
		&c.Population,
		&c.CurrencyCode,
		&c.ExchangeRate,
		&c.EstimatedGDP,
		&c.FlagURL,
		&c.LastRefreshedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCountries(rows *sql.Rows) ([]models.Country, error) {
	var out []models.Country
	for rows.Next() {
		c, err := scanCountry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate countries: %w", err)
	}
	return out, nil
}
