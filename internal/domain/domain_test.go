package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetClassCurrency(t *testing.T) {
	assert.Equal(t, "TRY", AssetClassFund.Currency())
	assert.Equal(t, "USD", AssetClassEquity.Currency())
	assert.Equal(t, "USDT", AssetClassCrypto.Currency())
}

func TestSeriesSortAndLatest(t *testing.T) {
	s := &Series{Points: []PricePoint{
		{Date: "2026-08-24", Close: 3},
		{Date: "2026-08-20", Close: 1},
		{Date: "2026-08-22", Close: 2},
	}}
	s.Sort()

	assert.Equal(t, "2026-08-20", s.Points[0].Date)
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "2026-08-24", latest.Date)
	assert.Equal(t, 3.0, latest.Close)
}

func TestLatestEmpty(t *testing.T) {
	s := &Series{}
	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestNearestOnOrBefore(t *testing.T) {
	s := &Series{Points: []PricePoint{
		{Date: "2026-08-15", Close: 95},
		{Date: "2026-08-20", Close: 102},
		{Date: "2026-08-24", Close: 104},
	}}

	p, ok := s.NearestOnOrBefore("2026-08-20")
	require.True(t, ok)
	assert.Equal(t, "2026-08-20", p.Date)

	p, ok = s.NearestOnOrBefore("2026-08-17")
	require.True(t, ok)
	assert.Equal(t, "2026-08-15", p.Date)

	_, ok = s.NearestOnOrBefore("2026-08-14")
	assert.False(t, ok)
}

func TestReturnsByDate(t *testing.T) {
	s := &Series{Points: []PricePoint{
		{Date: "2026-08-20", Close: 100},
		{Date: "2026-08-21", Close: 110},
		{Date: "2026-08-24", Close: 99},
	}}

	returns := s.ReturnsByDate()
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns["2026-08-21"], 1e-9)
	assert.InDelta(t, -0.10, returns["2026-08-24"], 1e-9)
}

func TestWeekAgoDate(t *testing.T) {
	got, err := WeekAgoDate("2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-17", got)

	_, err = WeekAgoDate("24.08.2026")
	assert.Error(t, err)
}
