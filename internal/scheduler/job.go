package scheduler

import (
	"context"
	"time"
)

const historyLimit = 100

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job; ctx is cancelled when the scheduler stops
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field optional
	// Examples: "0 30 18 * * 1-5" (weekdays 18:30:00), "@daily"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores job execution history
type JobHistory struct {
	Results []JobResult
}

// AddResult adds a job result to history
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// GetLatestResults returns the latest N results
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}

	if n == 0 {
		return []JobResult{}
	}

	out := make([]JobResult, n)
	copy(out, h.Results[len(h.Results)-n:])
	return out
}

// FailureCount returns the number of failed results
func (h *JobHistory) FailureCount() int {
	failed := 0
	for _, result := range h.Results {
		if !result.Success {
			failed++
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-h.FailureCount()) / float64(len(h.Results))
}
