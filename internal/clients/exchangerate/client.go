// Package exchangerate fetches currency exchange rates. The primary source
// for USD/TRY is Yahoo's USDTRY=X symbol; this client is the secondary path
// via the free exchangerate-api.com endpoint.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client for the exchangerate-api.com v4 endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new exchange rate client.
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    "https://api.exchangerate-api.com/v4/latest",
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "exchangerate").Logger(),
	}
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Rate fetches the conversion rate from one currency to another,
// e.g. Rate(ctx, "USD", "TRY") returns how many TRY one USD buys.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, from)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchangerate API returned status %d", resp.StatusCode)
	}

	var result ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	rate, ok := result.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no usable rate for %s/%s", from, to)
	}

	c.log.Debug().Str("from", from).Str("to", to).Float64("rate", rate).Msg("Fetched exchange rate")
	return rate, nil
}
