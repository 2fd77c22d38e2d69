package tasks

import (
	"time"

	"github.com/marquee/marquee/internal/health"
	"github.com/marquee/marquee/internal/scheduler"
)

const HealthCheckTaskID = "health-check"

// RegisterHealthTask registers the periodic dependency health checks.
func RegisterHealthTask(sched *scheduler.Scheduler, svc *health.Service, interval time.Duration) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          HealthCheckTaskID,
		Name:        "Health Check",
		Description: "Refreshes the status of the metadata provider, reaction relay and response store",
		Interval:    interval,
		RunOnStart:  true,
		Func:        svc.Run,
	})
}
