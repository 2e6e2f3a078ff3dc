// Package tefas fetches Turkish mutual fund prices from the TEFAS platform.
// TEFAS has no stable public API, so the package layers three access paths:
// the BindHistoryInfo JSON endpoint (primary), a legacy query variant of the
// same endpoint, and a headless-browser scrape of the fund analysis page.
package tefas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

const (
	baseURL = "https://www.tefas.gov.tr"
	// TEFAS rejects requests without a browser-looking user agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Client for the TEFAS fund information endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new TEFAS client.
func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("client", "tefas").Logger(),
	}
}

// historyRow is one row of the BindHistoryInfo response.
// TARIH is epoch milliseconds encoded as a string.
type historyRow struct {
	Date  string  `json:"TARIH"`
	Code  string  `json:"FONKODU"`
	Title string  `json:"FONUNVAN"`
	Price float64 `json:"FIYAT"`
}

// History fetches the daily unit price series for a fund over the trailing
// window via the BindHistoryInfo POST endpoint.
func (c *Client) History(ctx context.Context, fundCode string, days int) (*domain.Series, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	form := url.Values{}
	form.Set("fontip", "YAT")
	form.Set("fonkod", fundCode)
	form.Set("bastarih", start.Format("02.01.2006"))
	form.Set("bittarih", end.Format("02.01.2006"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/DB/BindHistoryInfo", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TEFAS returned status %d", resp.StatusCode)
	}

	var result struct {
		Data []historyRow `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no price rows for fund %s", fundCode)
	}

	series := &domain.Series{Code: fundCode, Source: "tefas"}
	for _, row := range result.Data {
		millis, err := strconv.ParseInt(row.Date, 10, 64)
		if err != nil || row.Price <= 0 {
			continue
		}
		if series.Name == "" {
			series.Name = row.Title
		}
		series.Points = append(series.Points, domain.PricePoint{
			Date:  time.UnixMilli(millis).UTC().Format(domain.DateFormat),
			Close: row.Price,
		})
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("no usable price rows for fund %s", fundCode)
	}
	series.Sort()

	c.log.Debug().Str("fund", fundCode).Int("points", len(series.Points)).Msg("Fetched fund history")
	return series, nil
}

// legacyRow is one element of the older BindHistoryInfo GET response shape.
type legacyRow struct {
	Date  string  `json:"Tarih"`
	Name  string  `json:"FonAdi"`
	Price float64 `json:"BirimPayDegeri"`
}

// HistoryLegacy fetches the same series through the GET form of the endpoint.
// Kept as a separate path because the two variants have failed independently
// during TEFAS maintenance windows.
func (c *Client) HistoryLegacy(ctx context.Context, fundCode string, days int) (*domain.Series, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	endpoint := fmt.Sprintf(
		"%s/api/DB/BindHistoryInfo?fonkod=%s&baslangic=%s&bitis=%s",
		c.baseURL, url.QueryEscape(fundCode),
		start.Format("2006-01-02"), end.Format("2006-01-02"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TEFAS returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rows []legacyRow
	if err := json.Unmarshal(body, &rows); err != nil {
		// Some deployments wrap the rows in a data envelope.
		var wrapped struct {
			Data []legacyRow `json:"data"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		rows = wrapped.Data
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no price rows for fund %s", fundCode)
	}

	series := &domain.Series{Code: fundCode, Source: "tefas-legacy"}
	for _, row := range rows {
		if row.Price <= 0 {
			continue
		}
		date, err := parseLegacyDate(row.Date)
		if err != nil {
			continue
		}
		if series.Name == "" {
			series.Name = row.Name
		}
		series.Points = append(series.Points, domain.PricePoint{Date: date, Close: row.Price})
	}
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("no usable price rows for fund %s", fundCode)
	}
	series.Sort()

	return series, nil
}

// parseLegacyDate accepts the date spellings seen in the legacy endpoint.
func parseLegacyDate(s string) (string, error) {
	for _, layout := range []string{"2006-01-02", "02.01.2006", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(domain.DateFormat), nil
		}
	}
	// Epoch millis, as in the primary endpoint.
	if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC().Format(domain.DateFormat), nil
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}
