// Package formulas contains the statistical building blocks used by the
// portfolio analytics engine. All functions operate on plain float64 slices
// so they stay independent of how price data is fetched or stored.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// DailyReturns converts a price sequence to fractional day-over-day returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]. Zero prices contribute a
// zero return rather than a division blowup.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// MonthlyVolatility scales the standard deviation of daily returns to a
// monthly figure (~21 trading days). The result is a fraction, not a percent.
// Returns nil when fewer than two observations exist.
func MonthlyVolatility(dailyReturns []float64) *float64 {
	if len(dailyReturns) < 2 {
		return nil
	}
	v := StdDev(dailyReturns) * math.Sqrt(21)
	return &v
}

// Correlation calculates the Pearson correlation coefficient between two
// equally sized datasets. Mismatched or empty inputs yield 0.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
