// Package fetch orchestrates market data retrieval. Each asset class has an
// ordered chain of live strategies; the service tries the cache first, then
// the chain in order, then falls back to stale cache entries.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

// Strategy is one way of obtaining a price series for a holding. Strategies
// are ordered by preference inside a Chain; a strategy that returns an empty
// series is treated as failed so the chain moves on.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, h domain.Holding) (*domain.Series, error)
}

type funcStrategy struct {
	name string
	fn   func(ctx context.Context, h domain.Holding) (*domain.Series, error)
}

func (s funcStrategy) Name() string { return s.name }

func (s funcStrategy) Fetch(ctx context.Context, h domain.Holding) (*domain.Series, error) {
	return s.fn(ctx, h)
}

// StrategyFunc wraps a function as a named Strategy.
func StrategyFunc(name string, fn func(ctx context.Context, h domain.Holding) (*domain.Series, error)) Strategy {
	return funcStrategy{name: name, fn: fn}
}

// Chain tries strategies in order until one returns a non-empty series.
// The order is fixed at construction, so results are deterministic for a
// given set of source availabilities.
type Chain struct {
	strategies []Strategy
	timeout    time.Duration
	log        zerolog.Logger
}

// NewChain creates a strategy chain with a per-attempt timeout.
func NewChain(timeout time.Duration, log zerolog.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, timeout: timeout, log: log}
}

// Fetch runs the chain for one holding. Every strategy failure is logged at
// warn level with the strategy name; the returned error aggregates only the
// last failure since earlier ones are already on the log.
func (c *Chain) Fetch(ctx context.Context, h domain.Holding) (*domain.Series, error) {
	var lastErr error

	for _, s := range c.strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		series, err := s.Fetch(attemptCtx, h)
		cancel()

		if err == nil && (series == nil || len(series.Points) == 0) {
			err = fmt.Errorf("strategy %s returned no data", s.Name())
		}
		if err != nil {
			lastErr = err
			c.log.Warn().
				Str("strategy", s.Name()).
				Str("code", h.Code).
				Err(err).
				Msg("Fetch strategy failed")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		series.Sort()
		return series, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no strategies configured")
	}
	return nil, fmt.Errorf("all strategies failed for %s: %w", h.Code, lastErr)
}
