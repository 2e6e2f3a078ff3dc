package dashboard

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/cache"
)

func setupService(t *testing.T, portfolioYAML string) *Service {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(portfolioYAML), 0644))

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := cache.NewRepository(db)
	require.NoError(t, repo.EnsureSchema())

	svc, err := New(path, repo, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestNewLoadsHoldings(t *testing.T) {
	svc := setupService(t, `
tefas_funds:
  - code: YAC
    shares: 100
    target_weight: 60
crypto:
  - symbol: BTC/USDT
    amount: 0.05
    target_weight: 40
`)

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	assert.Len(t, svc.holdings, 2)
	assert.Empty(t, svc.skipped)
}

func TestNewFailsOnMissingDocument(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := cache.NewRepository(db)
	require.NoError(t, repo.EnsureSchema())

	_, err = New(filepath.Join(t.TempDir(), "absent.yaml"), repo, zerolog.Nop())
	assert.Error(t, err)
}

func TestCurrentBeforeRefresh(t *testing.T) {
	svc := setupService(t, `tefas_funds: []`)

	_, err := svc.Current()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = svc.Rebalance()
	assert.ErrorIs(t, err, ErrNoData)

	_, err = svc.SeriesFor("YAC")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSettingsExposed(t *testing.T) {
	svc := setupService(t, `
settings:
  snapshot_schedule: "@weekly"
  lookback_days: 45
`)

	settings := svc.Settings()
	assert.Equal(t, "@weekly", settings.SnapshotSchedule)
	assert.Equal(t, 45, settings.LookbackDays)
}

func TestReloadConfigPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tefas_funds:
  - code: YAC
    shares: 100
    target_weight: 100
`), 0644))

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := cache.NewRepository(db)
	require.NoError(t, repo.EnsureSchema())

	svc, err := New(path, repo, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
tefas_funds:
  - code: YAC
    shares: 100
    target_weight: 50
  - code: AFT
    shares: 20
    target_weight: 50
`), 0644))
	require.NoError(t, svc.ReloadConfig())

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	assert.Len(t, svc.holdings, 2)
}

func TestRefreshRejectsConcurrentRuns(t *testing.T) {
	svc := setupService(t, `tefas_funds: []`)

	// Hold the refresh lock the way a running refresh would.
	require.True(t, svc.refreshMu.TryLock())
	defer svc.refreshMu.Unlock()

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)
}
