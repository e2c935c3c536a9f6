package maintenance

import (
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobStatus summarises the run history of one maintenance job.
type JobStatus struct {
	Job                 string    `json:"job"`
	TotalRuns           int       `json:"total_runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastError           string    `json:"last_error,omitempty"`
	// NextRunAt is zero for jobs that only run through RunOnce.
	NextRunAt time.Time `json:"next_run_at"`
}

type jobTracker struct {
	mu      sync.Mutex
	jobs    map[string]*JobStatus
	entries map[string]cron.EntryID
}

func newJobTracker() *jobTracker {
	return &jobTracker{
		jobs:    make(map[string]*JobStatus),
		entries: make(map[string]cron.EntryID),
	}
}

func (t *jobTracker) register(job string, id cron.EntryID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[job]; !ok {
		t.jobs[job] = &JobStatus{Job: job}
	}
	t.entries[job] = id
}

func (t *jobTracker) observe(job string, at time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, ok := t.jobs[job]
	if !ok {
		status = &JobStatus{Job: job}
		t.jobs[job] = status
	}
	status.TotalRuns++
	status.LastRunAt = at
	if err != nil {
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		return
	}
	status.ConsecutiveFailures = 0
	status.LastError = ""
}

func (t *jobTracker) snapshot(scheduler *cron.Cron) []JobStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]JobStatus, 0, len(t.jobs))
	for job, status := range t.jobs {
		snapshot := *status
		if id, ok := t.entries[job]; ok && scheduler != nil {
			snapshot.NextRunAt = scheduler.Entry(id).Next
		}
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
