// Package provider wraps the two external data sources the refresh pipeline
// pulls from: a REST Countries-compatible API and a USD-base exchange rate
// API. Each client is an interface with an HTTP implementation and a mock
// with configurable latency for tests and dependency-free runs.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"globaldata/pkg/platform/sentinel"
)

var tracer = otel.Tracer("globaldata/provider")

// Currency is one currency entry attached to a country record.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// CountryData is the raw provider shape before the refresh pipeline merges
// rates into it. Population is a pointer because some records omit it, and
// an absent population must stay distinguishable from zero.
type CountryData struct {
	Name       string     `json:"name"`
	Capital    string     `json:"capital"`
	Region     string     `json:"region"`
	Population *int64     `json:"population"`
	Flag       string     `json:"flag"`
	Currencies []Currency `json:"currencies"`
}

// CurrencyCode returns the code of the first listed currency, or "" when the
// country has none.
func (c CountryData) CurrencyCode() string {
	if len(c.Currencies) == 0 {
		return ""
	}
	return c.Currencies[0].Code
}

// CountriesClient fetches the full country list from an external API.
type CountriesClient interface {
	FetchAll(ctx context.Context) ([]CountryData, error)
}

// HTTPCountriesClient calls a REST Countries-compatible endpoint.
type HTTPCountriesClient struct {
	client *http.Client
	url    string
}

// NewHTTPCountriesClient builds a client for the given URL. The URL carries
// its own field selection query.
func NewHTTPCountriesClient(url string, timeout time.Duration) *HTTPCountriesClient {
	return &HTTPCountriesClient{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

func (c *HTTPCountriesClient) FetchAll(ctx context.Context) ([]CountryData, error) {
	ctx, span := tracer.Start(ctx, "provider.FetchCountries")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create countries request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch countries: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("countries API returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var countries []CountryData
	if err := json.NewDecoder(resp.Body).Decode(&countries); err != nil {
		return nil, fmt.Errorf("decode countries response: %w", err)
	}

	span.SetAttributes(attribute.Int("countries.count", len(countries)))
	return countries, nil
}

// MockCountriesClient serves deterministic data with a configurable latency
// to mimic real-world calls.
type MockCountriesClient struct {
	Latency   time.Duration
	Countries []CountryData
	Err       error
}

func (c MockCountriesClient) FetchAll(_ context.Context) ([]CountryData, error) {
	time.Sleep(c.Latency)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Countries, nil
}
