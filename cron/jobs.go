package cron

import (
	"context"
	"fmt"
	"time"

	"careline/config"
	"careline/services/escalation"
	"careline/services/scheduler"
	"careline/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartPeriodicJobs runs the two background timers: the reminder tick
// scan and the escalation tier-timeout sweep. Both are idempotent, so
// a slow run overlapping the next one is harmless.
func StartPeriodicJobs(sched *scheduler.Scheduler, engine escalation.Engine) (*cron.Cron, error) {
	logger := utils.GetLogger()
	c := cron.New(cron.WithSeconds())

	tickSpec := fmt.Sprintf("@every %ds", config.AppConfig.SchedulerTickSeconds)
	if _, err := c.AddFunc(tickSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := sched.Tick(ctx); err != nil {
			logger.Error("cron: reminder tick failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("registering reminder tick: %w", err)
	}

	sweepSpec := fmt.Sprintf("@every %ds", config.AppConfig.SweepIntervalSeconds)
	if _, err := c.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := engine.SweepTimeouts(ctx); err != nil {
			logger.Error("cron: escalation sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("registering escalation sweep: %w", err)
	}

	c.Start()
	return c, nil
}
