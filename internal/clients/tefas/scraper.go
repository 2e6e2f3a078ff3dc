package tefas

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

// Scraper reads the current unit price off the TEFAS fund analysis page with
// a headless browser. It is the last live resort for funds: slower than the
// API endpoints but immune to their schema changes. The result is a
// single-point series (today's quote), not a history.
type Scraper struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewScraper creates a new TEFAS page scraper.
func NewScraper(timeout time.Duration, log zerolog.Logger) *Scraper {
	return &Scraper{
		timeout: timeout,
		log:     log.With().Str("client", "tefas-scraper").Logger(),
	}
}

// CurrentPrice scrapes the fund analysis page for the latest unit price.
func (s *Scraper) CurrentPrice(ctx context.Context, fundCode string) (*domain.Series, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, runCancel := context.WithTimeout(browserCtx, s.timeout)
	defer runCancel()

	pageURL := fmt.Sprintf("%s/FonAnaliz.aspx?FonKod=%s", baseURL, fundCode)

	var priceText, nameText string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(`.main-indicators`, chromedp.ByQuery),
		chromedp.Text(`.main-indicators .top-list li:first-child span`, &priceText, chromedp.ByQuery),
		chromedp.Text(`.main-indicators h2`, &nameText, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("scrape failed for %s: %w", fundCode, err)
	}

	price, err := parseTurkishDecimal(priceText)
	if err != nil {
		return nil, fmt.Errorf("unparseable price %q for %s: %w", priceText, fundCode, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("non-positive price %f for %s", price, fundCode)
	}

	name := strings.TrimSpace(nameText)
	if name == "" {
		name = fundCode
	}

	s.log.Debug().Str("fund", fundCode).Float64("price", price).Msg("Scraped fund price")

	return &domain.Series{
		Code:   fundCode,
		Name:   name,
		Source: "tefas-scrape",
		Points: []domain.PricePoint{{
			Date:  time.Now().UTC().Format(domain.DateFormat),
			Close: price,
		}},
	}, nil
}

// parseTurkishDecimal parses "12,345678" style numbers (comma decimal
// separator, dot thousands separator).
func parseTurkishDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}
