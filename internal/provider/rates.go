package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"globaldata/pkg/platform/sentinel"
)

// RatesClient fetches USD-base exchange rates keyed by currency code.
type RatesClient interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// HTTPRatesClient calls an open.er-api.com-compatible endpoint.
type HTTPRatesClient struct {
	client *http.Client
	url    string
}

// NewHTTPRatesClient builds a client for the given URL.
func NewHTTPRatesClient(url string, timeout time.Duration) *HTTPRatesClient {
	return &HTTPRatesClient{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

func (c *HTTPRatesClient) FetchRates(ctx context.Context) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "provider.FetchRates")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}

	span.SetAttributes(attribute.Int("rates.count", len(payload.Rates)))
	return payload.Rates, nil
}

// MockRatesClient serves a fixed rate table with a configurable latency.
type MockRatesClient struct {
	Latency time.Duration
	Rates   map[string]float64
	Err     error
}

func (c MockRatesClient) FetchRates(_ context.Context) (map[string]float64, error) {
	time.Sleep(c.Latency)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Rates, nil
}
