package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/jhmac/elon/pkg/progress"
)

// Timer drives the Scheduler's RunLoop on a cron schedule, for deployments
// that invoke elon unattended rather than on demand from a dashboard.
type Timer struct {
	cron  *cron.Cron
	sched *Scheduler
}

// NewTimer constructs a Timer bound to sched; call Start to begin
// scheduling and Stop to drain in-flight jobs before shutdown.
func NewTimer(sched *Scheduler) *Timer {
	return &Timer{
		cron:  cron.New(),
		sched: sched,
	}
}

// AddRunLoop schedules a RunLoop invocation on spec (a standard 5-field
// cron expression), passing maxConstraints, budgetMax and perCycleBudget
// through to every run.
func (t *Timer) AddRunLoop(spec string, maxConstraints int, budgetMax, perCycleBudget float64) (cron.EntryID, error) {
	return t.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if _, err := t.sched.RunLoop(ctx, maxConstraints, budgetMax, perCycleBudget); err != nil {
			t.sched.publish("scheduler", "timer-triggered runLoop failed", map[string]any{"error": err.Error()}, string(progress.LevelError))
		}
	})
}

// Start begins running scheduled jobs in the background.
func (t *Timer) Start() {
	t.cron.Start()
}

// Stop halts the scheduler's internal cron goroutine without waiting; the
// returned context is done once any in-flight job completes.
func (t *Timer) Stop() context.Context {
	return t.cron.Stop()
}
