package snapshots

import (
	"github.com/rs/zerolog"

	"github.com/heisenbergtrx/portfolio-dashboard/internal/modules/analytics"
)

// Snapshotter produces a current snapshot, refreshing data as needed.
type Snapshotter interface {
	Snapshot() (*analytics.Snapshot, error)
}

// Job persists a snapshot on each scheduled run. Wire it to the scheduler
// with the portfolio document's snapshot_schedule.
type Job struct {
	source Snapshotter
	repo   *Repository
	log    zerolog.Logger
}

// NewJob creates the periodic snapshot job.
func NewJob(source Snapshotter, repo *Repository, log zerolog.Logger) *Job {
	return &Job{
		source: source,
		repo:   repo,
		log:    log.With().Str("job", "snapshot").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *Job) Name() string { return "portfolio-snapshot" }

// Run computes and stores one snapshot.
func (j *Job) Run() error {
	snap, err := j.source.Snapshot()
	if err != nil {
		return err
	}

	id, err := j.repo.Save(snap)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("id", id).
		Float64("total_value_try", snap.TotalValueTRY).
		Msg("Snapshot stored")
	return nil
}
