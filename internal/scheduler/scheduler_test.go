package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubJob fails the first `failures` runs
type stubJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(nil).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "0 30 18 * * 1-5"}))
	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "*/5 * * * *"}))
	require.NoError(t, s.AddJob(&stubJob{name: "c", schedule: "@daily"}))

	assert.Error(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}), "duplicate name")
	assert.Error(t, s.AddJob(&stubJob{name: "d", schedule: "not a schedule"}))
	assert.Equal(t, []string{"a", "b", "c"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	_, err := s.NextRun("a")
	assert.Error(t, err)
}

func TestRunJob_RetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "flaky", schedule: "@hourly", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), job.calls.Load())
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "broken", schedule: "@hourly", failures: 100}))

	result, err := s.RunJob(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts, "1 try + 2 retries")
	assert.Equal(t, "transient", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJob_CancelledStopsRetrying(t *testing.T) {
	s := New(nil).WithRetry(5, time.Hour)
	job := &stubJob{name: "broken", schedule: "@hourly", failures: 100}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.RunJob(ctx, "broken")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled job kept retrying")
	}
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestRunJob_Unknown(t *testing.T) {
	_, err := newTestScheduler().RunJob(context.Background(), "nope")
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}))
	s.Start()
	defer s.Stop()

	next, err := s.NextRun("a")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(time.Hour+time.Minute)))
}

func TestJobHistory_Limit(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.Equal(t, 0.5, h.GetSuccessRate())
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(5))
}

func TestKVFields(t *testing.T) {
	fields := kvFields([]interface{}{"entry", 1, "next", "soon", "dangling"})
	assert.Equal(t, map[string]interface{}{"entry": 1, "next": "soon"}, fields)
}
