// Package dashboard orchestrates the full refresh cycle: load holdings,
// fetch prices, compute analytics, evaluate recommendations. It owns the
// latest computed state and hands it to the HTTP layer.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/cache"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/config"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/fetch"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/analytics"
	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/recommendations"
)

// ErrRefreshInProgress is returned when a refresh is requested while one is
// already running. Callers should retry after the running one completes.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ErrNoData is returned when state is requested before any refresh has run.
var ErrNoData = errors.New("no data: run a refresh first")

// State is one complete refresh outcome.
type State struct {
	Snapshot        *analytics.Snapshot              `json:"snapshot"`
	Recommendations []recommendations.Recommendation `json:"recommendations"`
	SkippedEntries  []string                         `json:"skipped_entries,omitempty"`
	RefreshedAt     time.Time                        `json:"refreshed_at"`

	batch *fetch.BatchResult
}

// Service coordinates the refresh pipeline.
type Service struct {
	portfolioPath string
	cacheRepo     *cache.Repository
	log           zerolog.Logger

	// refreshMu serializes refreshes; a second caller gets
	// ErrRefreshInProgress instead of queueing.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	portfolio *config.Portfolio
	holdings  []domain.Holding
	skipped   []string
	fetcher   *fetch.Service
	analyzer  *analytics.Service
	engine    *recommendations.Engine
	state     *State
}

// New loads the portfolio document and wires the pipeline.
func New(portfolioPath string, cacheRepo *cache.Repository, log zerolog.Logger) (*Service, error) {
	s := &Service{
		portfolioPath: portfolioPath,
		cacheRepo:     cacheRepo,
		log:           log.With().Str("service", "dashboard").Logger(),
	}
	if err := s.ReloadConfig(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReloadConfig re-reads the portfolio document and rebuilds the pipeline
// with its settings. The current state survives the reload; the next refresh
// uses the new holdings and thresholds.
func (s *Service) ReloadConfig() error {
	p, err := config.LoadPortfolio(s.portfolioPath)
	if err != nil {
		return err
	}

	holdings, skipped := p.Holdings()
	for _, entry := range skipped {
		s.log.Warn().Str("entry", entry).Msg("Skipped malformed portfolio entry")
	}

	fetcher := fetch.NewService(fetch.Config{
		Timeout:      time.Duration(p.Settings.FetchTimeoutSeconds) * time.Second,
		RateLimit:    time.Duration(p.Settings.RateLimitMillis) * time.Millisecond,
		LookbackDays: p.Settings.LookbackDays,
		CacheTTL:     time.Duration(p.Settings.CacheTTLSeconds) * time.Second,
	}, s.cacheRepo, s.log)

	s.mu.Lock()
	s.portfolio = p
	s.holdings = holdings
	s.skipped = skipped
	s.fetcher = fetcher
	s.analyzer = analytics.NewService(p.Settings.RiskFreeRate, s.log)
	s.engine = recommendations.NewEngine(p.Thresholds, s.log)
	s.mu.Unlock()

	s.log.Info().Int("holdings", len(holdings)).Msg("Portfolio config loaded")
	return nil
}

// Settings returns a copy of the current portfolio settings.
func (s *Service) Settings() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portfolio.Settings
}

// Refresh runs the full pipeline. Only one refresh runs at a time.
func (s *Service) Refresh(ctx context.Context) (*State, error) {
	if !s.refreshMu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	holdings := s.holdings
	skipped := s.skipped
	fetcher := s.fetcher
	analyzer := s.analyzer
	engine := s.engine
	s.mu.RUnlock()

	batch, err := fetcher.FetchAll(ctx, holdings)
	if err != nil {
		return nil, err
	}

	snap := analyzer.Compute(holdings, batch)
	recs := engine.Evaluate(snap)

	state := &State{
		Snapshot:        snap,
		Recommendations: recs,
		SkippedEntries:  skipped,
		RefreshedAt:     time.Now().UTC(),
		batch:           batch,
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	return state, nil
}

// Current returns the latest computed state.
func (s *Service) Current() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrNoData
	}
	return s.state, nil
}

// Rebalance computes rebalancing suggestions from the latest snapshot.
func (s *Service) Rebalance() ([]recommendations.RebalanceSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, ErrNoData
	}
	return s.engine.Rebalance(s.state.Snapshot), nil
}

// SeriesFor returns the fetched price series for one holding code from the
// latest refresh, for history charts.
func (s *Service) SeriesFor(code string) (*domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil || s.state.batch == nil {
		return nil, ErrNoData
	}
	series, ok := s.state.batch.Series[code]
	if !ok {
		return nil, errors.New("no data for " + code)
	}
	return series, nil
}

// Snapshot refreshes and returns the resulting snapshot. Used by the
// scheduled snapshot job. A refresh already in progress is an error here;
// the job simply runs again next period.
func (s *Service) Snapshot() (*analytics.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	state, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return state.Snapshot, nil
}
