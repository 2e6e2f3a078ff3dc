package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharpeRatioTooFewObservations(t *testing.T) {
	assert.Nil(t, SharpeRatio(nil, 0.35, 252))
	assert.Nil(t, SharpeRatio([]float64{0.01}, 0.35, 252))
}

func TestSharpeRatioZeroVariance(t *testing.T) {
	// Constant returns have no variance; the ratio is undefined, not Inf.
	assert.Nil(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0.35, 252))
}

func TestSharpeRatioAnnualized(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.0, 0.015}
	riskFree := 0.35

	got := SharpeRatio(returns, riskFree, 252)
	require.NotNil(t, got)

	expected := (Mean(returns) - riskFree/252) / StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, *got, 1e-12)
}

func TestSharpeRatioNegativeWhenBelowRiskFree(t *testing.T) {
	// Small positive returns still lose to a 35% annual risk-free rate.
	returns := []float64{0.0001, -0.0002, 0.0001, 0.0, -0.0001}
	got := SharpeRatio(returns, 0.35, 252)
	require.NotNil(t, got)
	assert.Negative(t, *got)
}
