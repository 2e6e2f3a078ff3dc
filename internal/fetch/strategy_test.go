package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/domain"
)

func okStrategy(name, source string, calls *[]string) Strategy {
	return StrategyFunc(name, func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
		*calls = append(*calls, name)
		return &domain.Series{
			Code:   h.Code,
			Source: source,
			Points: []domain.PricePoint{{Date: "2026-08-24", Close: 10}},
		}, nil
	})
}

func failStrategy(name string, calls *[]string) Strategy {
	return StrategyFunc(name, func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
		*calls = append(*calls, name)
		return nil, errors.New(name + " unavailable")
	})
}

func emptyStrategy(name string, calls *[]string) Strategy {
	return StrategyFunc(name, func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
		*calls = append(*calls, name)
		return &domain.Series{Code: h.Code}, nil
	})
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	chain := NewChain(time.Second, zerolog.Nop(),
		okStrategy("first", "src-1", &calls),
		okStrategy("second", "src-2", &calls),
	)

	series, err := chain.Fetch(context.Background(), domain.Holding{Code: "NVDA"})
	require.NoError(t, err)
	assert.Equal(t, "src-1", series.Source)
	assert.Equal(t, []string{"first"}, calls)
}

func TestChainFallsThroughFailures(t *testing.T) {
	var calls []string
	chain := NewChain(time.Second, zerolog.Nop(),
		failStrategy("primary", &calls),
		failStrategy("secondary", &calls),
		okStrategy("last-resort", "scrape", &calls),
	)

	series, err := chain.Fetch(context.Background(), domain.Holding{Code: "YAC"})
	require.NoError(t, err)
	assert.Equal(t, "scrape", series.Source)
	assert.Equal(t, []string{"primary", "secondary", "last-resort"}, calls)
}

func TestChainTreatsEmptyResultAsFailure(t *testing.T) {
	var calls []string
	chain := NewChain(time.Second, zerolog.Nop(),
		emptyStrategy("empty", &calls),
		okStrategy("fallback", "src-2", &calls),
	)

	series, err := chain.Fetch(context.Background(), domain.Holding{Code: "AFT"})
	require.NoError(t, err)
	assert.Equal(t, "src-2", series.Source)
	assert.Equal(t, []string{"empty", "fallback"}, calls)
}

func TestChainAllFail(t *testing.T) {
	var calls []string
	chain := NewChain(time.Second, zerolog.Nop(),
		failStrategy("one", &calls),
		failStrategy("two", &calls),
	)

	_, err := chain.Fetch(context.Background(), domain.Holding{Code: "BTC/USDT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BTC/USDT")
	assert.Equal(t, []string{"one", "two"}, calls)
}

func TestChainRespectsCancelledContext(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())

	chain := NewChain(time.Second, zerolog.Nop(),
		StrategyFunc("canceller", func(ctx context.Context, h domain.Holding) (*domain.Series, error) {
			calls = append(calls, "canceller")
			cancel()
			return nil, errors.New("boom")
		}),
		okStrategy("never-reached", "src", &calls),
	)

	_, err := chain.Fetch(ctx, domain.Holding{Code: "X"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"canceller"}, calls)
}

func TestLimiterEnforcesDelay(t *testing.T) {
	limiter := NewLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "tefas"))
	require.NoError(t, limiter.Wait(ctx, "tefas"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiterIndependentProviders(t *testing.T) {
	limiter := NewLimiter(200 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "tefas"))
	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "yahoo"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterCancelledContext(t *testing.T) {
	limiter := NewLimiter(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, limiter.Wait(ctx, "tefas"))
	cancel()
	err := limiter.Wait(ctx, "tefas")
	assert.ErrorIs(t, err, context.Canceled)
}
