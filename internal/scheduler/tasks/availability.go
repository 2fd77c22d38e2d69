package tasks

import (
	"time"

	"github.com/marquee/marquee/internal/availability"
	"github.com/marquee/marquee/internal/scheduler"
)

const AvailabilityProbeTaskID = "availability-probe"

// RegisterAvailabilityTask registers the provider availability probe with the scheduler.
func RegisterAvailabilityTask(sched *scheduler.Scheduler, monitor *availability.Monitor, interval time.Duration) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          AvailabilityProbeTaskID,
		Name:        "Provider Availability Probe",
		Description: "Probes the metadata provider and updates the unavailable banner flag",
		Interval:    interval,
		RunOnStart:  true,
		Func:        monitor.Refresh,
	})
}
