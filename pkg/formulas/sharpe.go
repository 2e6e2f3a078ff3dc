package formulas

import (
	"math"
)

// SharpeRatio calculates the annualized Sharpe ratio from periodic returns.
//
//	Sharpe = (mean(return) - periodic risk-free) / stddev(return)
//	Annualized: Sharpe × sqrt(periodsPerYear)
//
// riskFreeRate is the annual rate as a decimal (0.35 for 35%); periodsPerYear
// is 252 for daily returns. Returns nil when fewer than 2 observations exist
// or when the returns have zero variance, where the metric is undefined.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev

	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}
