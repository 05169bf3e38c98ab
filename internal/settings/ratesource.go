package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultRateSourceURL serves EUR base rates as JSON.
const DefaultRateSourceURL = "https://api.frankfurter.app/latest?from=EUR&to=RON"

// HTTPRateSource fetches the official EUR/RON rate from a JSON endpoint.
// It accepts either a flat {"rate": 4.97} body or the common
// {"rates": {"RON": 4.97}} shape used by public exchange-rate APIs.
type HTTPRateSource struct {
	url    string
	client *http.Client
}

// NewHTTPRateSource creates a rate source against the given URL.
// A nil client gets a default with a 10-second timeout.
func NewHTTPRateSource(url string, client *http.Client) *HTTPRateSource {
	if url == "" {
		url = DefaultRateSourceURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRateSource{url: url, client: client}
}

type rateResponse struct {
	Rate  float64            `json:"rate"`
	Rates map[string]float64 `json:"rates"`
}

// Fetch implements RateSource
func (s *HTTPRateSource) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("building rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching exchange rate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate endpoint returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding rate response: %w", err)
	}

	rate := body.Rate
	if r, ok := body.Rates["RON"]; ok {
		rate = r
	}
	if rate <= 0 {
		return 0, fmt.Errorf("rate endpoint returned no usable EUR/RON rate")
	}
	return rate, nil
}
