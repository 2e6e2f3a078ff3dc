package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestAddJobRejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a cron spec", &countingJob{})
	assert.Error(t, err)
}

func TestAddJobAcceptsDescriptors(t *testing.T) {
	s := New(zerolog.Nop())
	assert.NoError(t, s.AddJob("@weekly", &countingJob{}))
	assert.NoError(t, s.AddJob("0 18 * * FRI", &countingJob{}))
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 10ms", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}
