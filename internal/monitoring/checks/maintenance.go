package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/quizapi/internal/app/maintenance"
	"github.com/charlesng35/quizapi/internal/monitoring"
)

const defaultMaintenanceMaxAge = 36 * time.Hour

// JobReporter exposes the run history of scheduled maintenance jobs.
type JobReporter interface {
	Jobs() []maintenance.JobStatus
}

// Maintenance verifies that background jobs keep succeeding. A job whose last run is older
// than maxAge degrades the report; a failing job marks it down.
func Maintenance(reporter JobReporter, maxAge time.Duration, clock func() time.Time) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}
	if clock == nil {
		clock = time.Now
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.CheckResult {
		if reporter == nil {
			return monitoring.CheckResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		jobs := reporter.Jobs()
		if len(jobs) == 0 {
			return monitoring.CheckResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		now := clock()
		status := monitoring.StatusUp
		var notes []string
		for _, job := range jobs {
			switch {
			case job.TotalRuns == 0:
				notes = append(notes, job.Job+": pending first run")
			case job.ConsecutiveFailures > 0:
				status = monitoring.Worst(status, monitoring.StatusDown)
				notes = append(notes, job.Job+": "+job.LastError)
			case now.Sub(job.LastRunAt) > maxAge:
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				notes = append(notes, job.Job+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.CheckResult{Status: status, Details: strings.Join(notes, "; ")}
	})
}
