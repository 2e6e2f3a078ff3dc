package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/fetch"
)

func seriesFrom(code string, startDate string, closes ...float64) *domain.Series {
	start, err := time.Parse(domain.DateFormat, startDate)
	if err != nil {
		panic(fmt.Sprintf("bad test date %s: %v", startDate, err))
	}
	s := &domain.Series{Code: code, Name: code, Source: "test"}
	for i, c := range closes {
		s.Points = append(s.Points, domain.PricePoint{
			Date:  start.AddDate(0, 0, i).Format(domain.DateFormat),
			Close: c,
		})
	}
	return s
}

func batchOf(usdtry *float64, series ...*domain.Series) *fetch.BatchResult {
	batch := &fetch.BatchResult{
		Series:    make(map[string]*domain.Series),
		USDTRY:    usdtry,
		FetchedAt: time.Now(),
	}
	for _, s := range series {
		batch.Series[s.Code] = s
	}
	return batch
}

func fundHolding(code string, shares, target float64) domain.Holding {
	return domain.Holding{Code: code, Class: domain.AssetClassFund, Shares: shares, TargetWeight: target}
}

func TestComputeValuesAndWeights(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 60),
		fundHolding("AFT", 5, 40),
	}
	batch := batchOf(nil,
		seriesFrom("YAC", "2026-08-24", 100),
		seriesFrom("AFT", "2026-08-24", 110),
	)

	snap := svc.Compute(holdings, batch)

	assert.InDelta(t, 1550.0, snap.TotalValueTRY, 1e-9)
	require.Len(t, snap.Assets, 2)

	yac, aft := snap.Assets[0], snap.Assets[1]
	require.NotNil(t, yac.ValueTRY)
	assert.InDelta(t, 1000.0, *yac.ValueTRY, 1e-9)
	require.NotNil(t, aft.ValueTRY)
	assert.InDelta(t, 550.0, *aft.ValueTRY, 1e-9)

	require.NotNil(t, yac.Weight)
	assert.InDelta(t, 64.516, *yac.Weight, 0.001)
	require.NotNil(t, aft.Weight)
	assert.InDelta(t, 35.484, *aft.Weight, 0.001)

	require.NotNil(t, yac.Deviation)
	assert.InDelta(t, 4.516, *yac.Deviation, 0.001)
	require.NotNil(t, aft.Deviation)
	assert.InDelta(t, -4.516, *aft.Deviation, 0.001)
}

func TestComputeMissingExchangeRateDropsUSDValuation(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 50),
		{Code: "NVDA", Class: domain.AssetClassEquity, Shares: 2, TargetWeight: 50},
	}
	batch := batchOf(nil,
		seriesFrom("YAC", "2026-08-24", 100),
		seriesFrom("NVDA", "2026-08-24", 180),
	)

	snap := svc.Compute(holdings, batch)

	nvda := snap.Assets[1]
	require.NotNil(t, nvda.Price, "native price stays visible")
	assert.Nil(t, nvda.ValueTRY, "no honest TRY value without the rate")
	assert.Nil(t, nvda.Weight)
	assert.False(t, nvda.Available)

	// The fund carries the whole valued portfolio.
	assert.InDelta(t, 1000.0, snap.TotalValueTRY, 1e-9)
	require.NotNil(t, snap.Assets[0].Weight)
	assert.InDelta(t, 100.0, *snap.Assets[0].Weight, 1e-9)
}

func TestComputeConvertsUSDWithRate(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())
	rate := 41.0

	holdings := []domain.Holding{
		{Code: "NVDA", Class: domain.AssetClassEquity, Shares: 2, TargetWeight: 100},
	}
	batch := batchOf(&rate, seriesFrom("NVDA", "2026-08-24", 180))

	snap := svc.Compute(holdings, batch)
	require.NotNil(t, snap.Assets[0].ValueTRY)
	assert.InDelta(t, 180*2*41.0, *snap.Assets[0].ValueTRY, 1e-9)
}

func TestComputeUnavailableHoldingExcluded(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 50),
		fundHolding("GONE", 10, 50),
	}
	batch := batchOf(nil, seriesFrom("YAC", "2026-08-24", 100))
	batch.Unavailable = []string{"GONE"}

	snap := svc.Compute(holdings, batch)

	assert.InDelta(t, 1000.0, snap.TotalValueTRY, 1e-9)
	assert.Equal(t, []string{"GONE"}, snap.Unavailable)

	gone := snap.Assets[1]
	assert.Nil(t, gone.Price)
	assert.Nil(t, gone.ValueTRY)
	assert.False(t, gone.Available)
}

func TestWeeklyReturnUsesNearestEarlierObservation(t *testing.T) {
	// Latest is 2026-08-24; exactly 7 days prior (08-17) is absent, so the
	// nearest earlier close (08-15 at 95) anchors the return.
	s := &domain.Series{Code: "YAC", Points: []domain.PricePoint{
		{Date: "2026-08-14", Close: 90},
		{Date: "2026-08-15", Close: 95},
		{Date: "2026-08-20", Close: 102},
		{Date: "2026-08-24", Close: 104.5},
	}}

	got := weeklyReturn(s)
	require.NotNil(t, got)
	assert.InDelta(t, (104.5-95)/95*100, *got, 1e-9)
}

func TestWeeklyReturnNilWithoutPriorObservation(t *testing.T) {
	s := &domain.Series{Code: "YAC", Points: []domain.PricePoint{
		{Date: "2026-08-24", Close: 100},
	}}
	assert.Nil(t, weeklyReturn(s))
}

func TestRiskMetricsRequireMinimumOverlap(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 50),
		fundHolding("AFT", 10, 50),
	}
	// 4 points each means only 3 aligned returns, below the minimum.
	batch := batchOf(nil,
		seriesFrom("YAC", "2026-08-20", 100, 101, 102, 103),
		seriesFrom("AFT", "2026-08-20", 50, 51, 50, 52),
	)

	snap := svc.Compute(holdings, batch)
	assert.Nil(t, snap.SharpeRatio)
	assert.Nil(t, snap.MonthlyVolatility)
}

func TestRiskMetricsComputedWithEnoughOverlap(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 50),
		fundHolding("AFT", 10, 50),
	}
	batch := batchOf(nil,
		seriesFrom("YAC", "2026-08-17", 100, 102, 101, 104, 103, 105, 106, 104),
		seriesFrom("AFT", "2026-08-17", 50, 49, 51, 50, 52, 51, 53, 52),
	)

	snap := svc.Compute(holdings, batch)
	require.NotNil(t, snap.MonthlyVolatility)
	assert.Positive(t, *snap.MonthlyVolatility)
	require.NotNil(t, snap.SharpeRatio)
}

func TestCorrelationMatrixAndDiversification(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 50),
		fundHolding("AFT", 10, 50),
	}
	// AFT moves exactly opposite to YAC day over day.
	batch := batchOf(nil,
		seriesFrom("YAC", "2026-08-17", 100, 102, 101, 104, 103, 105, 104),
		seriesFrom("AFT", "2026-08-17", 100, 98.04, 99.01, 96.15, 97.09, 95.24, 96.15),
	)

	snap := svc.Compute(holdings, batch)
	require.NotNil(t, snap.Correlations)
	assert.Equal(t, []string{"AFT", "YAC"}, snap.Correlations.Codes)
	assert.InDelta(t, 1.0, snap.Correlations.Values[0][0], 1e-9)
	assert.Less(t, snap.Correlations.Values[0][1], -0.9)

	// Strongly negative correlation means maximal diversification.
	require.NotNil(t, snap.DiversificationScore)
	assert.Greater(t, *snap.DiversificationScore, 90.0)
}

func TestCorrelationDropsSparsestAsset(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{
		fundHolding("YAC", 10, 40),
		fundHolding("AFT", 10, 40),
		fundHolding("NEW", 10, 20),
	}
	batch := batchOf(nil,
		seriesFrom("YAC", "2026-08-17", 100, 102, 101, 104, 103, 105, 104),
		seriesFrom("AFT", "2026-08-17", 50, 51, 50, 52, 51, 53, 52),
		// Listed days ago: far too little overlap for the matrix.
		seriesFrom("NEW", "2026-08-22", 10, 10.5, 10.2),
	)

	snap := svc.Compute(holdings, batch)
	require.NotNil(t, snap.Correlations)
	assert.Equal(t, []string{"AFT", "YAC"}, snap.Correlations.Codes)
}

func TestCorrelationNilWithSingleAsset(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	holdings := []domain.Holding{fundHolding("YAC", 10, 100)}
	batch := batchOf(nil, seriesFrom("YAC", "2026-08-17", 100, 102, 101, 104, 103, 105))

	snap := svc.Compute(holdings, batch)
	assert.Nil(t, snap.Correlations)
	assert.Nil(t, snap.DiversificationScore)
}

func TestStaleDataPropagates(t *testing.T) {
	svc := NewService(0.35, zerolog.Nop())

	stale := seriesFrom("YAC", "2026-08-24", 100)
	stale.Stale = true

	snap := svc.Compute([]domain.Holding{fundHolding("YAC", 10, 100)}, batchOf(nil, stale))
	assert.True(t, snap.AnyStale)
	assert.True(t, snap.Assets[0].Stale)
}

func TestPortfolioWeeklyReturnIsWeighted(t *testing.T) {
	w1, w2 := 75.0, 25.0
	r1, r2 := 4.0, -2.0
	assets := []AssetReport{
		{Code: "A", Weight: &w1, WeeklyReturn: &r1},
		{Code: "B", Weight: &w2, WeeklyReturn: &r2},
		{Code: "C"}, // no data, excluded
	}

	got := portfolioWeeklyReturn(assets)
	require.NotNil(t, got)
	assert.InDelta(t, (75*4.0+25*-2.0)/100, *got, 1e-9)
}
