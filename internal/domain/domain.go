// Package domain holds the core types shared across modules. It has no
// infrastructure dependencies; fetching, storage and HTTP all depend on
// this package, never the other way around.
package domain

import (
	"sort"
	"time"
)

// DateFormat is the canonical date layout for price points (date granularity).
const DateFormat = "2006-01-02"

// AssetClass identifies which market an asset trades on, and therefore which
// fetch strategy chain applies to it.
type AssetClass string

const (
	AssetClassFund   AssetClass = "fund"   // TEFAS mutual funds, quoted in TRY
	AssetClassEquity AssetClass = "equity" // US equities, quoted in USD
	AssetClassCrypto AssetClass = "crypto" // crypto pairs, quoted in USDT
)

// Currency returns the native quote currency for the asset class.
func (c AssetClass) Currency() string {
	switch c {
	case AssetClassFund:
		return "TRY"
	case AssetClassCrypto:
		return "USDT"
	default:
		return "USD"
	}
}

// Holding is a single configured position: fund code, ticker or trading pair,
// the quantity held and the target portfolio weight in percent. Immutable
// once loaded from configuration.
type Holding struct {
	Code         string     `json:"code"`
	Class        AssetClass `json:"class"`
	Shares       float64    `json:"shares"`
	TargetWeight float64    `json:"target_weight"`
}

// PricePoint is one daily closing price.
type PricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// Series is an ordered (ascending by date) price history for one asset.
// Stale marks data served from an expired cache entry after every live
// strategy failed; consumers must surface it as degraded, not fresh.
type Series struct {
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Points []PricePoint `json:"points"`
	Source string       `json:"source"`
	Stale  bool         `json:"stale"`
}

// Sort orders the points ascending by date.
func (s *Series) Sort() {
	sort.Slice(s.Points, func(i, j int) bool {
		return s.Points[i].Date < s.Points[j].Date
	})
}

// Latest returns the most recent price point, or false when the series is empty.
func (s *Series) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// NearestOnOrBefore returns the latest point whose date is <= the given date.
// This is the lookup behind the weekly return: when no observation exists
// exactly 7 calendar days prior, the nearest earlier one is used instead.
func (s *Series) NearestOnOrBefore(date string) (PricePoint, bool) {
	for i := len(s.Points) - 1; i >= 0; i-- {
		if s.Points[i].Date <= date {
			return s.Points[i], true
		}
	}
	return PricePoint{}, false
}

// Closes returns the close prices in date order.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// ReturnsByDate maps each observation date to the fractional return from the
// previous observation. Used to align daily returns across assets whose
// trading calendars differ (funds skip weekends, crypto does not).
func (s *Series) ReturnsByDate() map[string]float64 {
	returns := make(map[string]float64, len(s.Points))
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Close
		if prev != 0 {
			returns[s.Points[i].Date] = (s.Points[i].Close - prev) / prev
		}
	}
	return returns
}

// WeekAgoDate computes the date string 7 calendar days before the given date.
func WeekAgoDate(date string) (string, error) {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -7).Format(DateFormat), nil
}
