// Package recommendations turns an analytics snapshot into threshold-based
// action signals and rebalancing suggestions. It is pure computation over
// the snapshot; thresholds arrive from the portfolio document.
package recommendations

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/config"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/analytics"
)

// Signal kinds. Asset-level signals carry the asset code; portfolio-level
// signals leave it empty; correlation warnings carry the pair.
const (
	SignalSellWarning     = "sell-warning"
	SignalTakeProfit      = "take-profit"
	SignalRebalanceBuy    = "rebalance-buy"
	SignalRebalanceSell   = "rebalance-sell"
	SignalHighVolatility  = "high-volatility-warning"
	SignalHighCorrelation = "high-correlation-warning"
)

// Recommendation is one actionable signal.
type Recommendation struct {
	Signal      string   `json:"signal"`
	Code        string   `json:"code,omitempty"`
	RelatedCode string   `json:"related_code,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Threshold   float64  `json:"threshold"`
	Message     string   `json:"message"`
}

// RebalanceSuggestion quantifies the trade that would bring one holding back
// to its target weight, at current prices and portfolio value.
type RebalanceSuggestion struct {
	Code        string  `json:"code"`
	Action      string  `json:"action"` // "buy" or "sell"
	Deviation   float64 `json:"deviation"`
	DeltaValue  float64 `json:"delta_value_try"` // TRY to move, always positive
	DeltaShares float64 `json:"delta_shares"`    // units to trade, always positive
}

// Engine evaluates thresholds against snapshots.
type Engine struct {
	thresholds config.Thresholds
	log        zerolog.Logger
}

// NewEngine creates a recommendation engine.
func NewEngine(thresholds config.Thresholds, log zerolog.Logger) *Engine {
	return &Engine{
		thresholds: thresholds,
		log:        log.With().Str("service", "recommendations").Logger(),
	}
}

// Evaluate produces all signals for a snapshot. Comparisons are inclusive:
// a metric exactly at its threshold triggers. Assets without the metric a
// rule needs are silently skipped, never treated as zero.
func (e *Engine) Evaluate(snap *analytics.Snapshot) []Recommendation {
	var recs []Recommendation

	for _, a := range snap.Assets {
		if a.WeeklyReturn != nil {
			wr := *a.WeeklyReturn
			switch {
			case wr <= e.thresholds.WeeklyLoss:
				recs = append(recs, Recommendation{
					Signal:    SignalSellWarning,
					Code:      a.Code,
					Value:     a.WeeklyReturn,
					Threshold: e.thresholds.WeeklyLoss,
					Message:   fmt.Sprintf("%s is down %.2f%% over the last week", a.Code, -wr),
				})
			case wr >= e.thresholds.WeeklyGain:
				recs = append(recs, Recommendation{
					Signal:    SignalTakeProfit,
					Code:      a.Code,
					Value:     a.WeeklyReturn,
					Threshold: e.thresholds.WeeklyGain,
					Message:   fmt.Sprintf("%s is up %.2f%% over the last week, consider taking profit", a.Code, wr),
				})
			}
		}

		if a.Deviation != nil {
			dev := *a.Deviation
			switch {
			case dev >= e.thresholds.WeightDeviation:
				recs = append(recs, Recommendation{
					Signal:    SignalRebalanceSell,
					Code:      a.Code,
					Value:     a.Deviation,
					Threshold: e.thresholds.WeightDeviation,
					Message:   fmt.Sprintf("%s is %.2f points above its target weight", a.Code, dev),
				})
			case dev <= -e.thresholds.WeightDeviation:
				recs = append(recs, Recommendation{
					Signal:    SignalRebalanceBuy,
					Code:      a.Code,
					Value:     a.Deviation,
					Threshold: e.thresholds.WeightDeviation,
					Message:   fmt.Sprintf("%s is %.2f points below its target weight", a.Code, -dev),
				})
			}
		}
	}

	if snap.MonthlyVolatility != nil && *snap.MonthlyVolatility >= e.thresholds.HighVolatility {
		recs = append(recs, Recommendation{
			Signal:    SignalHighVolatility,
			Value:     snap.MonthlyVolatility,
			Threshold: e.thresholds.HighVolatility,
			Message:   fmt.Sprintf("portfolio monthly volatility is %.2f%%", *snap.MonthlyVolatility),
		})
	}

	recs = append(recs, e.correlationWarnings(snap.Correlations)...)

	e.log.Debug().Int("signals", len(recs)).Msg("Snapshot evaluated")
	return recs
}

// correlationWarnings emits one warning per pair at or above the threshold,
// each pair reported once.
func (e *Engine) correlationWarnings(m *analytics.CorrelationMatrix) []Recommendation {
	if m == nil {
		return nil
	}
	var recs []Recommendation
	for i := range m.Codes {
		for j := i + 1; j < len(m.Codes); j++ {
			corr := m.Values[i][j]
			if corr < e.thresholds.HighCorrelation {
				continue
			}
			value := corr
			recs = append(recs, Recommendation{
				Signal:      SignalHighCorrelation,
				Code:        m.Codes[i],
				RelatedCode: m.Codes[j],
				Value:       &value,
				Threshold:   e.thresholds.HighCorrelation,
				Message: fmt.Sprintf("%s and %s move together (correlation %.2f)",
					m.Codes[i], m.Codes[j], corr),
			})
		}
	}
	return recs
}

// Rebalance computes the trades that would restore target weights for every
// holding whose deviation is at or beyond the threshold, ordered by deviation
// magnitude, largest first.
func (e *Engine) Rebalance(snap *analytics.Snapshot) []RebalanceSuggestion {
	var suggestions []RebalanceSuggestion

	for _, a := range snap.Assets {
		if a.Deviation == nil || a.Price == nil || a.ValueTRY == nil {
			continue
		}
		dev := *a.Deviation
		if math.Abs(dev) < e.thresholds.WeightDeviation {
			continue
		}

		targetValue := snap.TotalValueTRY * a.TargetWeight / 100
		deltaValue := targetValue - *a.ValueTRY

		action := "buy"
		if deltaValue < 0 {
			action = "sell"
		}

		// Shares trade at the native price; ValueTRY already carries the
		// conversion, so derive the TRY unit price from it.
		unitPriceTRY := *a.ValueTRY / a.Shares
		deltaShares := 0.0
		if unitPriceTRY > 0 {
			deltaShares = math.Abs(deltaValue) / unitPriceTRY
		}

		suggestions = append(suggestions, RebalanceSuggestion{
			Code:        a.Code,
			Action:      action,
			Deviation:   dev,
			DeltaValue:  math.Abs(deltaValue),
			DeltaShares: deltaShares,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return math.Abs(suggestions[i].Deviation) > math.Abs(suggestions[j].Deviation)
	})

	return suggestions
}
