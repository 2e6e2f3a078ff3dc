package snapshots

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/clients/yahoo"
)

// defaultBenchmarks are the reference indices the portfolio is compared to.
var defaultBenchmarks = []BenchmarkEntry{
	{Symbol: "SPY", Name: "S&P 500"},
	{Symbol: "QQQ", Name: "Nasdaq 100"},
	{Symbol: "BTC-USD", Name: "Bitcoin"},
}

// BenchmarkEntry is one benchmark's period performance. PeriodReturn is nil
// when the benchmark's history could not be fetched.
type BenchmarkEntry struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	PeriodReturn *float64 `json:"period_return"`
}

// Comparison sets portfolio growth next to benchmark returns over the same
// trailing window. PortfolioReturn is nil when fewer than two snapshots
// exist inside the window; snapshots are the only TRY-denominated record of
// portfolio value over time.
type Comparison struct {
	Days            int              `json:"days"`
	PortfolioReturn *float64         `json:"portfolio_return"`
	Benchmarks      []BenchmarkEntry `json:"benchmarks"`
}

// Benchmark computes portfolio-vs-market comparisons.
type Benchmark struct {
	repo   *Repository
	market *yahoo.Client
	log    zerolog.Logger
}

// NewBenchmark creates a benchmark comparator.
func NewBenchmark(repo *Repository, market *yahoo.Client, log zerolog.Logger) *Benchmark {
	return &Benchmark{
		repo:   repo,
		market: market,
		log:    log.With().Str("service", "benchmark").Logger(),
	}
}

// Compare computes the trailing-window comparison. Benchmark fetch failures
// degrade that entry to nil instead of failing the whole comparison.
func (b *Benchmark) Compare(ctx context.Context, days int) (*Comparison, error) {
	if days <= 0 {
		days = 30
	}

	comparison := &Comparison{Days: days}

	since := time.Now().UTC().AddDate(0, 0, -days)
	first, last, ok, err := b.repo.ValueRange(since)
	if err != nil {
		return nil, err
	}
	if ok && first.TotalValueTRY > 0 {
		r := (last.TotalValueTRY - first.TotalValueTRY) / first.TotalValueTRY * 100
		comparison.PortfolioReturn = &r
	}

	for _, bench := range defaultBenchmarks {
		entry := BenchmarkEntry{Symbol: bench.Symbol, Name: bench.Name}
		series, err := b.market.History(ctx, bench.Symbol, days)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", bench.Symbol).Msg("Benchmark fetch failed")
			comparison.Benchmarks = append(comparison.Benchmarks, entry)
			continue
		}
		if len(series.Points) >= 2 && series.Points[0].Close > 0 {
			firstClose := series.Points[0].Close
			lastClose := series.Points[len(series.Points)-1].Close
			r := (lastClose - firstClose) / firstClose * 100
			entry.PeriodReturn = &r
		}
		comparison.Benchmarks = append(comparison.Benchmarks, entry)
	}

	return comparison, nil
}
