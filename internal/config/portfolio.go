package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

// Settings are the global tuning knobs of the portfolio document.
type Settings struct {
	RiskFreeRate        float64 `yaml:"risk_free_rate"`        // annual, as fraction
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"`     // price cache freshness window
	FetchTimeoutSeconds int     `yaml:"fetch_timeout_seconds"` // per strategy attempt
	RateLimitMillis     int     `yaml:"rate_limit_ms"`         // min delay between live calls per provider
	LookbackDays        int     `yaml:"lookback_days"`         // price history window
	SnapshotSchedule    string  `yaml:"snapshot_schedule"`     // cron spec, empty disables the job
}

// Thresholds drive the recommendation engine. Returns, deviations and
// volatility are percentages; correlation is a coefficient in [-1, 1].
// All comparisons are inclusive: a value exactly at the threshold triggers.
type Thresholds struct {
	WeeklyLoss      float64 `yaml:"weekly_loss_threshold"`
	WeeklyGain      float64 `yaml:"weekly_gain_threshold"`
	WeightDeviation float64 `yaml:"weight_deviation_threshold"`
	HighVolatility  float64 `yaml:"high_volatility_threshold"`
	HighCorrelation float64 `yaml:"high_correlation_threshold"`
}

// FundEntry is one TEFAS fund position in the document.
type FundEntry struct {
	Code         string  `yaml:"code"`
	Shares       float64 `yaml:"shares"`
	TargetWeight float64 `yaml:"target_weight"`
}

// StockEntry is one US equity position in the document.
type StockEntry struct {
	Ticker       string  `yaml:"ticker"`
	Shares       float64 `yaml:"shares"`
	TargetWeight float64 `yaml:"target_weight"`
}

// CryptoEntry is one crypto position in the document. Symbol uses the
// exchange pair notation, e.g. "BTC/USDT".
type CryptoEntry struct {
	Symbol       string  `yaml:"symbol"`
	Amount       float64 `yaml:"amount"`
	TargetWeight float64 `yaml:"target_weight"`
}

// Portfolio is the full portfolio document. It is loaded once per session
// and replaced wholesale on reload; components receive it at construction
// or per call, never through shared mutable state.
type Portfolio struct {
	Settings   Settings      `yaml:"settings"`
	Thresholds Thresholds    `yaml:"thresholds"`
	TefasFunds []FundEntry   `yaml:"tefas_funds"`
	USStocks   []StockEntry  `yaml:"us_stocks"`
	Crypto     []CryptoEntry `yaml:"crypto"`
}

// LoadPortfolio reads and parses the portfolio YAML document, applying
// defaults for absent settings.
func LoadPortfolio(path string) (*Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio config %s: %w", path, err)
	}

	p := &Portfolio{
		Settings: Settings{
			RiskFreeRate:        0.35,
			CacheTTLSeconds:     3600,
			FetchTimeoutSeconds: 30,
			RateLimitMillis:     1500,
			LookbackDays:        30,
		},
		Thresholds: Thresholds{
			WeeklyLoss:      -4.0,
			WeeklyGain:      7.0,
			WeightDeviation: 5.0,
			HighVolatility:  15.0,
			HighCorrelation: 0.7,
		},
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio config %s: %w", path, err)
	}

	return p, nil
}

// Holdings flattens the per-class entry lists into domain holdings.
// Malformed entries (missing identifier, non-positive quantity, weight
// outside 0-100) are fatal for that entry only: they are returned in
// skipped and excluded from the portfolio, never aborting the load.
func (p *Portfolio) Holdings() (holdings []domain.Holding, skipped []string) {
	add := func(code string, class domain.AssetClass, shares, target float64) {
		if code == "" || shares <= 0 || target < 0 || target > 100 {
			if code == "" {
				code = "(missing identifier)"
			}
			skipped = append(skipped, fmt.Sprintf("%s %s", class, code))
			return
		}
		holdings = append(holdings, domain.Holding{
			Code:         code,
			Class:        class,
			Shares:       shares,
			TargetWeight: target,
		})
	}

	for _, f := range p.TefasFunds {
		add(f.Code, domain.AssetClassFund, f.Shares, f.TargetWeight)
	}
	for _, s := range p.USStocks {
		add(s.Ticker, domain.AssetClassEquity, s.Shares, s.TargetWeight)
	}
	for _, c := range p.Crypto {
		add(c.Symbol, domain.AssetClassCrypto, c.Amount, c.TargetWeight)
	}

	return holdings, skipped
}
