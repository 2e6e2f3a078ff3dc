package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/cache"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/clients/binance"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/clients/exchangerate"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/clients/tefas"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/clients/yahoo"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

// fxPair is the cache key for the USD/TRY rate series.
const fxPair = "USD/TRY"

// Config tunes the fetch service.
type Config struct {
	Timeout      time.Duration // per strategy attempt
	RateLimit    time.Duration // min delay between calls to one provider
	LookbackDays int           // trailing history window
	CacheTTL     time.Duration // freshness window for stored results
}

// BatchResult is the outcome of one full portfolio fetch. Series is keyed by
// holding code; Unavailable lists holdings with no data from any source
// including stale cache. USDTRY is nil when the rate could not be obtained.
type BatchResult struct {
	Series      map[string]*domain.Series
	Unavailable []string
	USDTRY      *float64
	RateStale   bool
	FetchedAt   time.Time
}

// Service fetches price data for all holdings, cache first, then the live
// strategy chain for the asset class, then stale cache as a last resort.
type Service struct {
	cfg     Config
	repo    *cache.Repository
	chains  map[domain.AssetClass]*Chain
	fxChain *Chain
	log     zerolog.Logger
}

// NewService wires the live clients into per-class strategy chains.
func NewService(cfg Config, repo *cache.Repository, log zerolog.Logger) *Service {
	log = log.With().Str("service", "fetch").Logger()

	limiter := NewLimiter(cfg.RateLimit)
	tefasClient := tefas.NewClient(cfg.Timeout, log)
	scraper := tefas.NewScraper(cfg.Timeout, log)
	yahooPrimary := yahoo.NewClient(yahoo.DefaultHost, cfg.Timeout, log)
	yahooAlt := yahoo.NewClient(yahoo.AltHost, cfg.Timeout, log)
	binanceClient := binance.NewClient(cfg.Timeout, log)
	fxClient := exchangerate.NewClient(cfg.Timeout, log)

	throttled := func(provider, name string, fn func(ctx context.Context, h domain.Holding) (*domain.Series, error)) Strategy {
		return StrategyFunc(name, func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
			if err := limiter.Wait(ctx, provider); err != nil {
				return nil, err
			}
			return fn(ctx, h)
		})
	}

	chains := map[domain.AssetClass]*Chain{
		domain.AssetClassFund: NewChain(cfg.Timeout, log,
			throttled("tefas", "tefas-history", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				return tefasClient.History(ctx, h.Code, cfg.LookbackDays)
			}),
			throttled("tefas", "tefas-legacy", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				return tefasClient.HistoryLegacy(ctx, h.Code, cfg.LookbackDays)
			}),
			throttled("tefas", "tefas-scrape", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				return scraper.CurrentPrice(ctx, h.Code)
			}),
		),
		domain.AssetClassEquity: NewChain(cfg.Timeout, log,
			throttled("yahoo", "yahoo-primary", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				return yahooPrimary.History(ctx, h.Code, cfg.LookbackDays)
			}),
			throttled("yahoo", "yahoo-alt", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				return yahooAlt.History(ctx, h.Code, cfg.LookbackDays)
			}),
		),
		domain.AssetClassCrypto: NewChain(cfg.Timeout, log,
			throttled("binance", "binance-klines", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				return binanceClient.Klines(ctx, h.Code, cfg.LookbackDays)
			}),
			throttled("yahoo", "yahoo-crypto", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
				series, err := yahooPrimary.History(ctx, binance.YahooAlias(h.Code), cfg.LookbackDays)
				if err != nil {
					return nil, err
				}
				// Keep the holding's pair notation as the series identity.
				series.Code = h.Code
				return series, nil
			}),
		),
	}

	fxChain := NewChain(cfg.Timeout, log,
		throttled("yahoo", "yahoo-fx", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
			series, err := yahooPrimary.History(ctx, "USDTRY=X", cfg.LookbackDays)
			if err != nil {
				return nil, err
			}
			series.Code = fxPair
			return series, nil
		}),
		throttled("exchangerate", "exchangerate-api", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
			rate, err := fxClient.Rate(ctx, "USD", "TRY")
			if err != nil {
				return nil, err
			}
			return &domain.Series{
				Code:   fxPair,
				Name:   "USD/TRY",
				Source: "exchangerate-api",
				Points: []domain.PricePoint{{
					Date:  time.Now().UTC().Format(domain.DateFormat),
					Close: rate,
				}},
			}, nil
		}),
	)

	return &Service{cfg: cfg, repo: repo, chains: chains, fxChain: fxChain, log: log}
}

// FetchAll retrieves data for every holding plus the USD/TRY rate.
// Classes are processed in a fixed order (funds, crypto, equities) so log
// output and rate-limit interleaving stay predictable.
func (s *Service) FetchAll(ctx context.Context, holdings []domain.Holding) (*BatchResult, error) {
	result := &BatchResult{
		Series:    make(map[string]*domain.Series, len(holdings)),
		FetchedAt: time.Now().UTC(),
	}

	if fx, stale := s.fetchRate(ctx); fx != nil {
		if p, ok := fx.Latest(); ok {
			rate := p.Close
			result.USDTRY = &rate
			result.RateStale = stale
		}
	}

	for _, class := range []domain.AssetClass{domain.AssetClassFund, domain.AssetClassCrypto, domain.AssetClassEquity} {
		for _, h := range holdings {
			if h.Class != class {
				continue
			}
			series := s.fetchHolding(ctx, h)
			if series == nil {
				result.Unavailable = append(result.Unavailable, h.Code)
				continue
			}
			result.Series[h.Code] = series
		}
	}

	s.log.Info().
		Int("fetched", len(result.Series)).
		Int("unavailable", len(result.Unavailable)).
		Bool("fx_available", result.USDTRY != nil).
		Msg("Portfolio fetch complete")

	return result, ctx.Err()
}

// fetchHolding runs the cache-first flow for one holding. Returns nil when
// no source, live or stale, produced data.
func (s *Service) fetchHolding(ctx context.Context, h domain.Holding) *domain.Series {
	table := cache.TableFor(string(h.Class))

	if series := s.fromCache(table, h.Code, true); series != nil {
		return series
	}

	chain, ok := s.chains[h.Class]
	if ok {
		series, err := chain.Fetch(ctx, h)
		if err == nil {
			if err := s.repo.Store(table, h.Code, series, s.cfg.CacheTTL); err != nil {
				s.log.Error().Err(err).Str("code", h.Code).Msg("Failed to cache series")
			}
			return series
		}
		s.log.Warn().Err(err).Str("code", h.Code).Msg("All live strategies failed, trying stale cache")
	}

	if series := s.fromCache(table, h.Code, false); series != nil {
		series.Stale = true
		return series
	}

	return nil
}

// fetchRate obtains the USD/TRY series, same flow as holdings. The bool
// reports whether the returned data came from an expired cache entry.
func (s *Service) fetchRate(ctx context.Context) (*domain.Series, bool) {
	if series := s.fromCache("exchangerate", fxPair, true); series != nil {
		return series, false
	}

	series, err := s.fxChain.Fetch(ctx, domain.Holding{Code: fxPair})
	if err == nil {
		if err := s.repo.Store("exchangerate", fxPair, series, s.cfg.CacheTTL); err != nil {
			s.log.Error().Err(err).Msg("Failed to cache exchange rate")
		}
		return series, false
	}
	s.log.Warn().Err(err).Msg("Exchange rate fetch failed, trying stale cache")

	if series := s.fromCache("exchangerate", fxPair, false); series != nil {
		return series, true
	}
	return nil, false
}

func (s *Service) fromCache(table, key string, freshOnly bool) *domain.Series {
	var (
		raw json.RawMessage
		err error
	)
	if freshOnly {
		raw, err = s.repo.GetIfFresh(table, key)
	} else {
		raw, err = s.repo.Get(table, key)
	}
	if err != nil {
		s.log.Error().Err(err).Str("table", table).Str("key", key).Msg("Cache read failed")
		return nil
	}
	if raw == nil {
		return nil
	}

	var series domain.Series
	if err := json.Unmarshal(raw, &series); err != nil {
		// Corrupt entries are treated as misses; the next store overwrites them.
		s.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Corrupt cache entry ignored")
		return nil
	}
	if len(series.Points) == 0 {
		return nil
	}
	return &series
}
