// Package yahoo fetches daily price history from the Yahoo Finance v8 chart
// API. Yahoo runs the same API on more than one host (query1, query2); the
// fetcher layers two clients with different hosts as independent strategies.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

// DefaultHost and AltHost are the two chart API frontends.
const (
	DefaultHost = "https://query1.finance.yahoo.com"
	AltHost     = "https://query2.finance.yahoo.com"
)

// Client for the Yahoo Finance chart API.
type Client struct {
	host       string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a chart API client bound to one host.
func NewClient(host string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		host:       host,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "yahoo").Str("host", host).Logger(),
	}
}

// chartResponse mirrors the v8 chart payload. Close values are pointers
// because Yahoo emits null for missing bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// History fetches the trailing daily close series for a symbol.
func (c *Client) History(ctx context.Context, symbol string, days int) (*domain.Series, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%dd", c.host, symbol, days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "curl/8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("yahoo rate limited (429) for %s", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo returned status %d for %s", resp.StatusCode, symbol)
	}

	var yc chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&yc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	result := yc.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	name := result.Meta.ShortName
	if name == "" {
		name = result.Meta.LongName
	}
	if name == "" {
		name = symbol
	}

	series := &domain.Series{Code: symbol, Name: name, Source: "yahoo"}
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		series.Points = append(series.Points, domain.PricePoint{
			Date:  time.Unix(ts, 0).UTC().Format(domain.DateFormat),
			Close: *closes[i],
		})
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("empty bars for %s", symbol)
	}
	series.Sort()

	c.log.Debug().Str("symbol", symbol).Int("points", len(series.Points)).Msg("Fetched history")
	return series, nil
}
