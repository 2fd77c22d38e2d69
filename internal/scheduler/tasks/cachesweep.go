package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/cache"
	"github.com/marquee/marquee/internal/scheduler"
)

const CacheSweepTaskID = "cache-sweep"

// RegisterCacheSweepTask registers removal of expired provider responses from
// every cache tier.
func RegisterCacheSweepTask(sched *scheduler.Scheduler, respCache *cache.Cache, interval time.Duration, logger zerolog.Logger) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CacheSweepTaskID,
		Name:        "Response Cache Sweep",
		Description: "Drops expired provider responses from memory and the SQLite store",
		Interval:    interval,
		Func: func(ctx context.Context) error {
			if removed := respCache.Sweep(ctx); removed > 0 {
				logger.Debug().Int("removed", removed).Int("remaining", respCache.Len()).Msg("Swept response cache")
			}
			return nil
		},
	})
}
