package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/accounts/internal/app/maintenance"
	"github.com/charlesng35/accounts/internal/monitoring"
)

const defaultMaintenanceGrace = 10 * time.Minute

// JobReporter exposes maintenance run history.
type JobReporter interface {
	Jobs() []maintenance.JobStatus
}

// Maintenance reports failing jobs and jobs whose scheduled run is overdue by more than grace.
// Both degrade readiness rather than take the service down, since login and registration do
// not depend on them.
func Maintenance(reporter JobReporter, grace time.Duration, now func() time.Time) monitoring.Check {
	if grace <= 0 {
		grace = defaultMaintenanceGrace
	}
	if now == nil {
		now = time.Now
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		jobs := reporter.Jobs()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		status := monitoring.StatusUp
		var problems []string
		for _, job := range jobs {
			if job.ConsecutiveFailures > 0 {
				status = monitoring.StatusDegraded
				problems = append(problems, job.Job+": "+job.LastError)
			}
			if !job.NextRunAt.IsZero() && now().After(job.NextRunAt.Add(grace)) {
				status = monitoring.StatusDegraded
				problems = append(problems, job.Job+": overdue since "+job.NextRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
