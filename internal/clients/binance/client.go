// Package binance fetches crypto daily candles from the Binance public
// market-data REST API (no credentials required).
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

// Client for the Binance public REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Binance market-data client.
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    "https://api.binance.com",
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "binance").Logger(),
	}
}

// Klines fetches daily candles for a trading pair in "BTC/USDT" notation and
// returns the close series. The pair keeps its slash form as the series code.
func (c *Client) Klines(ctx context.Context, pair string, days int) (*domain.Series, error) {
	symbol := strings.ReplaceAll(pair, "/", "")

	endpoint := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1d&limit=%d",
		c.baseURL, symbol, days+1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance returned status %d for %s", resp.StatusCode, symbol)
	}

	// Each kline is a positional array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("no klines for %s", symbol)
	}

	series := &domain.Series{
		Code:   pair,
		Name:   strings.SplitN(pair, "/", 2)[0],
		Source: "binance",
	}
	for _, k := range klines {
		if len(k) < 5 {
			continue
		}
		openMillis, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeStr, ok := k[4].(string)
		if !ok {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil || closePrice <= 0 {
			continue
		}
		series.Points = append(series.Points, domain.PricePoint{
			Date:  time.UnixMilli(int64(openMillis)).UTC().Format(domain.DateFormat),
			Close: closePrice,
		})
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("no usable klines for %s", symbol)
	}
	series.Sort()

	c.log.Debug().Str("pair", pair).Int("points", len(series.Points)).Msg("Fetched klines")
	return series, nil
}

// YahooAlias converts an exchange pair to the Yahoo symbol used by the
// fallback strategy: "BTC/USDT" -> "BTC-USD" (Yahoo quotes crypto in USD).
func YahooAlias(pair string) string {
	base := strings.SplitN(pair, "/", 2)[0]
	return base + "-USD"
}
