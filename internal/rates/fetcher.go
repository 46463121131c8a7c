package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxProviderResponseBytes = 1 << 20

// providerResponse covers the two JSON shapes the common open exchange-rate
// providers answer with.
type providerResponse struct {
	Rates           map[string]float64 `json:"rates"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// NewHTTPFetcher builds a Fetcher against a JSON exchange-rate endpoint.
// The endpoint must answer with a rates map keyed by currency code.
func NewHTTPFetcher(client *http.Client, endpoint string, currency string) (Fetcher, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("rates: endpoint is required")
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "TRY"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return func(ctx context.Context) (float64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmedEndpoint, nil)
		if err != nil {
			return 0, fmt.Errorf("rates: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return 0, fmt.Errorf("rates: fetch: %w", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("rates: provider answered %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
		if err != nil {
			return 0, fmt.Errorf("rates: read response: %w", err)
		}

		var payload providerResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return 0, fmt.Errorf("rates: decode response: %w", err)
		}

		if value, ok := payload.Rates[code]; ok {
			return value, nil
		}
		if value, ok := payload.ConversionRates[code]; ok {
			return value, nil
		}
		return 0, fmt.Errorf("rates: response carries no %s rate", code)
	}, nil
}
