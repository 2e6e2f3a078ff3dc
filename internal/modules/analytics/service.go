package analytics

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/fetch"
	"github.com/heisenbergtrx/portfolio-dashboard/pkg/formulas"
)

const (
	// tradingDaysPerYear annualizes daily returns for the Sharpe ratio.
	tradingDaysPerYear = 252
	// minOverlapDays is the smallest aligned-return sample the risk metrics
	// accept. Below this the estimates are noise, so they come back nil.
	minOverlapDays = 5
)

// Service computes portfolio analytics.
type Service struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates an analytics service. riskFreeRate is annual, as a
// fraction (0.35 means 35%, the TRY deposit rate neighborhood).
func NewService(riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "analytics").Logger(),
	}
}

// Compute produces a full snapshot from one batch fetch. Holdings with no
// data are reported but excluded from every aggregate; USD-quoted holdings
// lose their TRY valuation (and weight) when the exchange rate is missing.
func (s *Service) Compute(holdings []domain.Holding, batch *fetch.BatchResult) *Snapshot {
	snap := &Snapshot{
		GeneratedAt: time.Now().UTC(),
		USDTRY:      batch.USDTRY,
		RateStale:   batch.RateStale,
		Unavailable: append([]string(nil), batch.Unavailable...),
	}

	for _, h := range holdings {
		report := AssetReport{
			Code:         h.Code,
			Class:        string(h.Class),
			Currency:     h.Class.Currency(),
			Shares:       h.Shares,
			TargetWeight: h.TargetWeight,
		}

		series, ok := batch.Series[h.Code]
		if !ok {
			snap.Assets = append(snap.Assets, report)
			continue
		}

		report.Name = series.Name
		report.Source = series.Source
		report.Stale = series.Stale
		if series.Stale {
			snap.AnyStale = true
		}

		latest, ok := series.Latest()
		if !ok {
			snap.Assets = append(snap.Assets, report)
			continue
		}
		price := latest.Close
		report.Price = &price

		if value, ok := s.valueTRY(h.Class, price*h.Shares, batch.USDTRY); ok {
			report.ValueTRY = &value
			report.Available = true
			snap.TotalValueTRY += value
		}

		report.WeeklyReturn = weeklyReturn(series)

		snap.Assets = append(snap.Assets, report)
	}

	if batch.RateStale {
		snap.AnyStale = true
	}

	if snap.TotalValueTRY > 0 {
		for i := range snap.Assets {
			if snap.Assets[i].ValueTRY == nil {
				continue
			}
			weight := *snap.Assets[i].ValueTRY / snap.TotalValueTRY * 100
			deviation := weight - snap.Assets[i].TargetWeight
			snap.Assets[i].Weight = &weight
			snap.Assets[i].Deviation = &deviation
		}
	}

	snap.WeeklyReturn = portfolioWeeklyReturn(snap.Assets)

	dailyReturns := s.portfolioDailyReturns(snap.Assets, batch)
	if len(dailyReturns) >= minOverlapDays {
		if vol := formulas.MonthlyVolatility(dailyReturns); vol != nil {
			pct := *vol * 100
			snap.MonthlyVolatility = &pct
		}
		snap.SharpeRatio = formulas.SharpeRatio(dailyReturns, s.riskFreeRate, tradingDaysPerYear)
	}

	snap.Correlations = correlationMatrix(batch)
	snap.DiversificationScore = diversificationScore(snap.Correlations)

	s.log.Debug().
		Float64("total_value_try", snap.TotalValueTRY).
		Int("assets", len(snap.Assets)).
		Int("unavailable", len(snap.Unavailable)).
		Msg("Snapshot computed")

	return snap
}

// valueTRY converts a native-currency position value to TRY. USD and USDT
// positions need the exchange rate; without it there is no honest valuation.
func (s *Service) valueTRY(class domain.AssetClass, nativeValue float64, usdtry *float64) (float64, bool) {
	if class == domain.AssetClassFund {
		return nativeValue, true
	}
	if usdtry == nil {
		return 0, false
	}
	return nativeValue * *usdtry, true
}

// weeklyReturn computes the trailing 7-day return in percent, using the
// nearest observation on or before the date one week prior to the latest.
func weeklyReturn(series *domain.Series) *float64 {
	latest, ok := series.Latest()
	if !ok {
		return nil
	}
	weekAgo, err := domain.WeekAgoDate(latest.Date)
	if err != nil {
		return nil
	}
	prior, ok := series.NearestOnOrBefore(weekAgo)
	if !ok || prior.Close == 0 || prior.Date == latest.Date {
		return nil
	}
	r := (latest.Close - prior.Close) / prior.Close * 100
	return &r
}

// portfolioWeeklyReturn is the weight-averaged weekly return over assets
// that have both a weight and a weekly return, with weights renormalized to
// that subset.
func portfolioWeeklyReturn(assets []AssetReport) *float64 {
	var weightSum, weighted float64
	for _, a := range assets {
		if a.Weight == nil || a.WeeklyReturn == nil {
			continue
		}
		weightSum += *a.Weight
		weighted += *a.Weight * *a.WeeklyReturn
	}
	if weightSum == 0 {
		return nil
	}
	r := weighted / weightSum
	return &r
}

// portfolioDailyReturns builds the portfolio-level daily return series over
// the dates where every valued asset has an observation. Trading calendars
// differ across classes, so only the common dates are usable.
func (s *Service) portfolioDailyReturns(assets []AssetReport, batch *fetch.BatchResult) []float64 {
	type member struct {
		weight  float64
		returns map[string]float64
	}

	var members []member
	var weightSum float64
	for _, a := range assets {
		if a.Weight == nil {
			continue
		}
		series, ok := batch.Series[a.Code]
		if !ok {
			continue
		}
		returns := series.ReturnsByDate()
		if len(returns) == 0 {
			continue
		}
		members = append(members, member{weight: *a.Weight, returns: returns})
		weightSum += *a.Weight
	}
	if len(members) == 0 || weightSum == 0 {
		return nil
	}

	sets := make([]map[string]float64, len(members))
	for i, m := range members {
		sets[i] = m.returns
	}
	dates := commonDates(sets)
	if len(dates) < minOverlapDays {
		return nil
	}

	portfolio := make([]float64, 0, len(dates))
	for _, date := range dates {
		var r float64
		for _, m := range members {
			r += m.weight / weightSum * m.returns[date]
		}
		portfolio = append(portfolio, r)
	}
	return portfolio
}

// commonDates returns the sorted intersection of observation dates.
func commonDates(returnSets []map[string]float64) []string {
	if len(returnSets) == 0 {
		return nil
	}
	var dates []string
	for date := range returnSets[0] {
		inAll := true
		for _, rs := range returnSets[1:] {
			if _, ok := rs[date]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

// correlationMatrix computes pairwise correlations over the shared dates of
// every asset with return history. When the shared window is too short, the
// asset with the fewest observations is dropped and the alignment retried;
// fewer than two surviving assets means no matrix.
func correlationMatrix(batch *fetch.BatchResult) *CorrelationMatrix {
	type entry struct {
		code    string
		returns map[string]float64
	}

	var entries []entry
	for code, series := range batch.Series {
		returns := series.ReturnsByDate()
		if len(returns) < 2 {
			continue
		}
		entries = append(entries, entry{code: code, returns: returns})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].code < entries[j].code })

	var dates []string
	for len(entries) >= 2 {
		sets := make([]map[string]float64, len(entries))
		for i, e := range entries {
			sets[i] = e.returns
		}
		dates = commonDates(sets)
		if len(dates) >= minOverlapDays {
			break
		}
		sparsest := 0
		for i, e := range entries {
			if len(e.returns) < len(entries[sparsest].returns) {
				sparsest = i
			}
		}
		entries = append(entries[:sparsest], entries[sparsest+1:]...)
	}
	if len(entries) < 2 || len(dates) < minOverlapDays {
		return nil
	}

	aligned := make([][]float64, len(entries))
	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.code
		aligned[i] = make([]float64, len(dates))
		for j, date := range dates {
			aligned[i][j] = e.returns[date]
		}
	}

	values := make([][]float64, len(entries))
	for i := range entries {
		values[i] = make([]float64, len(entries))
		for j := range entries {
			if i == j {
				values[i][j] = 1
				continue
			}
			values[i][j] = formulas.Correlation(aligned[i], aligned[j])
		}
	}

	return &CorrelationMatrix{Codes: codes, Values: values}
}

// diversificationScore maps the average off-diagonal correlation to a 0-100
// score: fully uncorrelated holdings score 100, perfectly correlated 0.
func diversificationScore(m *CorrelationMatrix) *float64 {
	if m == nil || len(m.Codes) < 2 {
		return nil
	}
	var sum float64
	var count int
	for i := range m.Values {
		for j := range m.Values[i] {
			if i == j {
				continue
			}
			sum += m.Values[i][j]
			count++
		}
	}
	score := (1 - sum/float64(count)) * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return &score
}
