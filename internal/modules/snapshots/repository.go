// Package snapshots persists periodic portfolio snapshots and compares the
// portfolio's growth against market benchmarks. Snapshots are written by a
// scheduled job and on demand through the API.
package snapshots

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/analytics"
)

const schema = `
CREATE TABLE IF NOT EXISTS portfolio_snapshots (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	total_value_try REAL NOT NULL,
	weekly_return REAL,
	sharpe_ratio REAL,
	monthly_volatility REAL,
	diversification_score REAL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON portfolio_snapshots(created_at);
`

// Record is the scalar summary of one stored snapshot. The full snapshot
// body is loaded separately by id.
type Record struct {
	ID                   string    `json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	TotalValueTRY        float64   `json:"total_value_try"`
	WeeklyReturn         *float64  `json:"weekly_return"`
	SharpeRatio          *float64  `json:"sharpe_ratio"`
	MonthlyVolatility    *float64  `json:"monthly_volatility"`
	DiversificationScore *float64  `json:"diversification_score"`
}

// Repository stores snapshots in the dashboard database.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a snapshot repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (r *Repository) EnsureSchema() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

// Save persists a snapshot and returns its id.
func (r *Repository) Save(snap *analytics.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.Exec(`
		INSERT INTO portfolio_snapshots
			(id, created_at, total_value_try, weekly_return, sharpe_ratio,
			 monthly_volatility, diversification_score, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, snap.GeneratedAt.Unix(), snap.TotalValueTRY,
		snap.WeeklyReturn, snap.SharpeRatio,
		snap.MonthlyVolatility, snap.DiversificationScore,
		string(data),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}
	return id, nil
}

// List returns the most recent records, newest first.
func (r *Repository) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, total_value_try, weekly_return, sharpe_ratio,
		       monthly_volatility, diversification_score
		FROM portfolio_snapshots
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &createdAt, &rec.TotalValueTRY,
			&rec.WeeklyReturn, &rec.SharpeRatio,
			&rec.MonthlyVolatility, &rec.DiversificationScore); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get loads the full snapshot body by id. Returns nil, nil when absent.
func (r *Repository) Get(id string) (*analytics.Snapshot, error) {
	var data string
	err := r.db.QueryRow(
		`SELECT data FROM portfolio_snapshots WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}

	var snap analytics.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// ValueRange returns the oldest and newest snapshot values within the
// trailing window, for growth comparison against benchmarks. ok is false
// when fewer than two snapshots fall inside the window.
func (r *Repository) ValueRange(since time.Time) (first, last Record, ok bool, err error) {
	query := `
		SELECT id, created_at, total_value_try, weekly_return, sharpe_ratio,
		       monthly_volatility, diversification_score
		FROM portfolio_snapshots
		WHERE created_at >= ?
		ORDER BY created_at %s
		LIMIT 1`

	scan := func(order string, rec *Record) error {
		var createdAt int64
		err := r.db.QueryRow(fmt.Sprintf(query, order), since.Unix()).Scan(
			&rec.ID, &createdAt, &rec.TotalValueTRY,
			&rec.WeeklyReturn, &rec.SharpeRatio,
			&rec.MonthlyVolatility, &rec.DiversificationScore)
		if err != nil {
			return err
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		return nil
	}

	if err := scan("ASC", &first); err != nil {
		if err == sql.ErrNoRows {
			return first, last, false, nil
		}
		return first, last, false, fmt.Errorf("failed to load first snapshot: %w", err)
	}
	if err := scan("DESC", &last); err != nil {
		return first, last, false, fmt.Errorf("failed to load last snapshot: %w", err)
	}
	if first.ID == last.ID {
		return first, last, false, nil
	}
	return first, last, true, nil
}
