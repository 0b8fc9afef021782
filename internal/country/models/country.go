package models

import "time"

// Country is the merged record the refresh pipeline produces: provider
// metadata plus the exchange-rate-derived GDP estimate. One row per country,
// keyed by name.
type Country struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Capital         *string   `json:"capital"`
	Region          *string   `json:"region"`
	Population      int64     `json:"population"`
	CurrencyCode    *string   `json:"currency_code"`
	ExchangeRate    *float64  `json:"exchange_rate"`
	EstimatedGDP    *float64  `json:"estimated_gdp"`
	FlagURL         *string   `json:"flag_url"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// Sort columns accepted by the list endpoint.
const (
	SortByName         = "name"
	SortByPopulation   = "population"
	SortByEstimatedGDP = "estimated_gdp"
)

// ListQuery captures pagination, filtering and sorting for country listings.
type ListQuery struct {
	Skip   int
	Limit  int
	Region string
	SortBy string
}

// Summary is the refresh digest served by /countries/summary.
type Summary struct {
	TotalCountries int       `json:"total_countries"`
	TopByGDP       []Country `json:"top_by_estimated_gdp"`
	GeneratedAt    time.Time `json:"generated_at"`
}
