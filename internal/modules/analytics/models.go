// Package analytics computes portfolio valuation and risk metrics from
// fetched price series. Every metric that can be unavailable is a pointer;
// nil means "could not be computed from the data at hand", never zero.
package analytics

import "time"

// AssetReport is the computed state of one holding.
type AssetReport struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Class        string  `json:"class"`
	Currency     string  `json:"currency"`
	Shares       float64 `json:"shares"`
	TargetWeight float64 `json:"target_weight"`

	// Price is the latest close in the asset's native currency.
	Price *float64 `json:"price"`
	// ValueTRY is the position value converted to TRY. Nil when the price
	// or the required exchange rate is unavailable.
	ValueTRY *float64 `json:"value_try"`
	// Weight is the share of total portfolio value, in percent.
	Weight *float64 `json:"weight"`
	// Deviation is Weight minus TargetWeight, in percentage points.
	Deviation *float64 `json:"deviation"`
	// WeeklyReturn is the trailing 7-day return in percent.
	WeeklyReturn *float64 `json:"weekly_return"`

	Source    string `json:"source"`
	Stale     bool   `json:"stale"`
	Available bool   `json:"available"`
}

// CorrelationMatrix is a square matrix of pairwise correlation coefficients
// over aligned daily returns. Codes gives the row/column order.
type CorrelationMatrix struct {
	Codes  []string    `json:"codes"`
	Values [][]float64 `json:"values"`
}

// Snapshot is one full analytics pass over the portfolio.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalValueTRY float64  `json:"total_value_try"`
	USDTRY        *float64 `json:"usd_try"`
	RateStale     bool     `json:"rate_stale"`

	WeeklyReturn         *float64           `json:"weekly_return"`
	SharpeRatio          *float64           `json:"sharpe_ratio"`
	MonthlyVolatility    *float64           `json:"monthly_volatility"`
	DiversificationScore *float64           `json:"diversification_score"`
	Correlations         *CorrelationMatrix `json:"correlations"`

	Assets      []AssetReport `json:"assets"`
	Unavailable []string      `json:"unavailable"`
	AnyStale    bool          `json:"any_stale"`
}
