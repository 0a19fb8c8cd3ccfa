// Package scheduler runs the periodic SLA compliance sweep: it lists open
// tickets, evaluates each against its governing SLA clock, marks breaches
// exactly once, and publishes escalation events.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/spec-kit/sla-engine/internal/config"
)

// cadence decides how long to wait between sweep runs. A cron expression
// takes precedence over the fixed interval when both are configured.
type cadence struct {
	schedule cron.Schedule
	interval time.Duration
}

func newCadence(cfg config.SchedulerConfig) (cadence, error) {
	if expr := strings.TrimSpace(cfg.CronExpr); expr != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		schedule, err := parser.Parse(expr)
		if err != nil {
			return cadence{}, fmt.Errorf("invalid sweep cron expression %q: %w", expr, err)
		}
		return cadence{schedule: schedule}, nil
	}
	return cadence{interval: cfg.Interval()}, nil
}

func (c cadence) untilNext(now time.Time) time.Duration {
	if c.schedule != nil {
		return c.schedule.Next(now).Sub(now)
	}
	return c.interval
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
