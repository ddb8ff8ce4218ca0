package scheduler

import (
	"context"
	"fmt"

	"github.com/jhmac/elon/pkg/config"
	"github.com/jhmac/elon/pkg/progress"
)

// LoopOutcome summarises a runLoop invocation.
type LoopOutcome struct {
	CyclesRun         int
	Stopped           bool
	BudgetExhausted   bool
	DismissalLimitHit bool
	Cycles            []*CycleOutcome
}

// RunLoop runs up to maxConstraints+K cycles, stopping on the external
// stop flag, budget exhaustion, or the consecutive-dismissal limit.
func (s *Scheduler) RunLoop(ctx context.Context, maxConstraints int, budgetMax, perCycleBudget float64) (*LoopOutcome, error) {
	if maxConstraints <= 0 {
		maxConstraints = config.DefaultMaxConstraints
	}
	maxCycles := maxConstraints + s.DismissalLimit
	s.ConsecutiveDismiss = 0

	out := &LoopOutcome{}
	for i := 0; i < maxCycles; i++ {
		if s.stopRequested() {
			s.publish("scheduler", "runLoop stopping: stop flag present", nil, string(progress.LevelWarn))
			out.Stopped = true
			break
		}
		if budgetMax > 0 && s.Ledger != nil && s.Ledger.Remaining(budgetMax) <= 0 {
			s.publish("scheduler", "runLoop stopping: budget exhausted", map[string]any{"budgetMax": budgetMax}, string(progress.LevelWarn))
			out.BudgetExhausted = true
			break
		}

		cycle, err := s.SingleCycle(ctx, perCycleBudget)
		if err != nil {
			return out, fmt.Errorf("scheduler: runLoop cycle %d: %w", i, err)
		}
		out.Cycles = append(out.Cycles, cycle)
		out.CyclesRun++

		if cycle.Stopped {
			out.Stopped = true
			break
		}
		if s.ConsecutiveDismiss >= s.DismissalLimit {
			s.publish("scheduler", "runLoop stopping: consecutive-dismissal limit reached", map[string]any{"limit": s.DismissalLimit}, string(progress.LevelWarn))
			out.DismissalLimitHit = true
			break
		}
	}
	return out, nil
}
