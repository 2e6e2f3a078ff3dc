package recommendations

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/config"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/analytics"
)

func testThresholds() config.Thresholds {
	return config.Thresholds{
		WeeklyLoss:      -4.0,
		WeeklyGain:      7.0,
		WeightDeviation: 5.0,
		HighVolatility:  15.0,
		HighCorrelation: 0.7,
	}
}

func f(v float64) *float64 { return &v }

func signalsOf(recs []Recommendation) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Signal)
	}
	return out
}

func TestWeeklyLossTriggersInclusive(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{Assets: []analytics.AssetReport{
		{Code: "AT-THRESHOLD", WeeklyReturn: f(-4.0)},
		{Code: "BELOW", WeeklyReturn: f(-6.2)},
		{Code: "SAFE", WeeklyReturn: f(-3.9)},
	}}

	recs := engine.Evaluate(snap)
	require.Len(t, recs, 2)
	assert.Equal(t, SignalSellWarning, recs[0].Signal)
	assert.Equal(t, "AT-THRESHOLD", recs[0].Code)
	assert.Equal(t, "BELOW", recs[1].Code)
}

func TestWeeklyGainTriggersTakeProfit(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{Assets: []analytics.AssetReport{
		{Code: "WINNER", WeeklyReturn: f(7.0)},
		{Code: "MODEST", WeeklyReturn: f(6.9)},
	}}

	recs := engine.Evaluate(snap)
	require.Len(t, recs, 1)
	assert.Equal(t, SignalTakeProfit, recs[0].Signal)
	assert.Equal(t, "WINNER", recs[0].Code)
}

func TestDeviationSignals(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{Assets: []analytics.AssetReport{
		{Code: "HEAVY", Deviation: f(5.0)},
		{Code: "LIGHT", Deviation: f(-8.3)},
		{Code: "FINE", Deviation: f(4.9)},
	}}

	recs := engine.Evaluate(snap)
	assert.Equal(t, []string{SignalRebalanceSell, SignalRebalanceBuy}, signalsOf(recs))
}

func TestMissingMetricsAreSkippedNotZero(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	// No weekly return and no deviation: nothing fires, even though a
	// literal zero would be inside every threshold.
	snap := &analytics.Snapshot{Assets: []analytics.AssetReport{{Code: "NODATA"}}}
	assert.Empty(t, engine.Evaluate(snap))
}

func TestHighVolatilityWarning(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{MonthlyVolatility: f(15.0)}
	recs := engine.Evaluate(snap)
	require.Len(t, recs, 1)
	assert.Equal(t, SignalHighVolatility, recs[0].Signal)
	assert.Empty(t, recs[0].Code, "volatility warning is portfolio level")

	snap.MonthlyVolatility = f(14.9)
	assert.Empty(t, engine.Evaluate(snap))
}

func TestHighCorrelationWarningPerPair(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{Correlations: &analytics.CorrelationMatrix{
		Codes: []string{"A", "B", "C"},
		Values: [][]float64{
			{1.0, 0.85, 0.2},
			{0.85, 1.0, 0.7},
			{0.2, 0.7, 1.0},
		},
	}}

	recs := engine.Evaluate(snap)
	require.Len(t, recs, 2)

	assert.Equal(t, SignalHighCorrelation, recs[0].Signal)
	assert.Equal(t, "A", recs[0].Code)
	assert.Equal(t, "B", recs[0].RelatedCode)

	assert.Equal(t, "B", recs[1].Code)
	assert.Equal(t, "C", recs[1].RelatedCode)
}

func TestRebalanceSuggestions(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{
		TotalValueTRY: 10000,
		Assets: []analytics.AssetReport{
			{
				Code: "HEAVY", Shares: 10, TargetWeight: 50,
				Price: f(60), ValueTRY: f(6000), Weight: f(60), Deviation: f(10),
			},
			{
				Code: "LIGHT", Shares: 40, TargetWeight: 45,
				Price: f(0.25), ValueTRY: f(4000), Weight: f(40), Deviation: f(-5),
			},
			{
				Code: "FINE", Shares: 1, TargetWeight: 5,
				Price: f(1), ValueTRY: f(0), Weight: f(0), Deviation: f(0),
			},
		},
	}

	suggestions := engine.Rebalance(snap)
	require.Len(t, suggestions, 2)

	// Largest deviation first.
	heavy := suggestions[0]
	assert.Equal(t, "HEAVY", heavy.Code)
	assert.Equal(t, "sell", heavy.Action)
	assert.InDelta(t, 1000.0, heavy.DeltaValue, 1e-9)
	// Unit price in TRY is 6000/10 = 600, so 1000 TRY is 1.667 shares.
	assert.InDelta(t, 1000.0/600.0, heavy.DeltaShares, 1e-9)

	light := suggestions[1]
	assert.Equal(t, "LIGHT", light.Code)
	assert.Equal(t, "buy", light.Action)
	assert.InDelta(t, 500.0, light.DeltaValue, 1e-9)
	assert.InDelta(t, 500.0/100.0, light.DeltaShares, 1e-9)
}

func TestRebalanceSkipsAssetsWithoutValuation(t *testing.T) {
	engine := NewEngine(testThresholds(), zerolog.Nop())

	snap := &analytics.Snapshot{
		TotalValueTRY: 1000,
		Assets: []analytics.AssetReport{
			{Code: "NOFX", Shares: 2, TargetWeight: 50, Price: f(100)},
		},
	}
	assert.Empty(t, engine.Rebalance(snap))
}
