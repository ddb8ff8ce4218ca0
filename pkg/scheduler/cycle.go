package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jhmac/elon/pkg/config"
	"github.com/jhmac/elon/pkg/constraint"
	"github.com/jhmac/elon/pkg/executor"
	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/queue"
)

// CycleOutcome summarises one Single cycle invocation for the caller and
// for the cumulative report.
type CycleOutcome struct {
	Mode           constraint.Mode
	Stopped        bool
	Result         *constraint.CycleResult
	SpecsExecuted  int
	SpecsCompleted int
	SpecsFailed    int
}

// SingleCycle runs one call of the Constraint Engine, executes any
// produced auto-approved specs within a sub-budget, then runs one
// evaluation pass against the freshly collected evidence.
func (s *Scheduler) SingleCycle(ctx context.Context, subBudget float64) (*CycleOutcome, error) {
	if s.stopRequested() {
		s.publish("scheduler", "stop flag present, skipping cycle", nil, string(progress.LevelWarn))
		return &CycleOutcome{Stopped: true}, nil
	}
	if err := s.refreshEngineSettings(); err != nil {
		s.publish("scheduler", "failed to load elon-settings.json, using defaults", map[string]any{"error": err.Error()}, string(progress.LevelWarn))
	}

	evidence := s.collectEvidence(ctx)

	log, err := s.Engine.Log.Load()
	if err != nil {
		return nil, fmt.Errorf("scheduler: loading engine log: %w", err)
	}
	mode := constraint.DecideMode(log, evidence)

	result, err := s.runConstraintCycle(ctx, mode, evidence)
	if err != nil {
		return nil, err
	}

	outcome := &CycleOutcome{Mode: mode, Result: result}
	if result != nil && result.Dismissed {
		s.ConsecutiveDismiss++
	} else {
		s.ConsecutiveDismiss = 0
	}

	if s.stopRequested() {
		s.publish("scheduler", "stop flag present, skipping execution phase", nil, string(progress.LevelWarn))
		return outcome, nil
	}

	executed, completed, failed := s.drainApproved(ctx, subBudget)
	outcome.SpecsExecuted, outcome.SpecsCompleted, outcome.SpecsFailed = executed, completed, failed

	if !s.stopRequested() {
		evalEvidence := s.collectEvidence(ctx)
		if err := s.Engine.Evaluate(ctx, evalEvidence); err != nil {
			s.publish("constraint", "evaluation failed", map[string]any{"error": err.Error()}, string(progress.LevelWarn))
		}
	}

	if s.Retention != nil {
		s.Retention.RunOnce()
	}

	_ = s.appendCycleRecord(outcomeToRecord(mode, result, outcome))
	s.refreshMetrics()
	return outcome, nil
}

func (s *Scheduler) runConstraintCycle(ctx context.Context, mode constraint.Mode, evidence *observer.Bundle) (*constraint.CycleResult, error) {
	switch mode {
	case constraint.ModeBuild:
		goals := s.Config.Goals
		milestone, err := advanceMilestone(s.Config.DataDir, goals.Roadmap, goals.Phase)
		if err != nil {
			return nil, fmt.Errorf("scheduler: advancing milestone: %w", err)
		}
		focused := &config.Goals{Mode: goals.Mode, Phase: goals.Phase}
		if milestone != "" {
			focused.Roadmap = []string{milestone}
		}
		index, err := observer.BuildDependencyIndex(s.ObserverConfig.SourceRoot, s.ObserverConfig.SourceExtensions)
		if err != nil {
			s.publish("constraint", "dependency index build failed, proceeding without it", map[string]any{"error": err.Error()}, string(progress.LevelWarn))
		}
		return s.Engine.RunBuildCycle(ctx, focused, index)
	default:
		return s.Engine.RunFixCycle(ctx, evidence, goalsText(s.Config.Goals))
	}
}

func goalsText(g *config.Goals) string {
	if g == nil {
		return ""
	}
	text := fmt.Sprintf("mode=%s phase=%s", g.Mode, g.Phase)
	if len(g.Roadmap) > 0 {
		text += fmt.Sprintf(" roadmap=%v", g.Roadmap)
	}
	return text
}

// drainApproved executes specs from BucketApproved, highest priority
// first, until either the bucket is drained, the sub-budget is spent, or
// a stop is requested. Each spec is moved to completed/failed according
// to its terminal Status.
func (s *Scheduler) drainApproved(ctx context.Context, subBudget float64) (executed, completed, failed int) {
	spentAtStart := 0.0
	if s.Ledger != nil {
		spentAtStart = s.Ledger.Spent()
	}

	for {
		if s.stopRequested() {
			s.publish("scheduler", "stop flag present, breaking execution loop", nil, string(progress.LevelWarn))
			return
		}
		if subBudget > 0 && s.Ledger != nil && s.Ledger.Spent()-spentAtStart >= subBudget {
			s.publish("scheduler", "sub-budget exhausted for this cycle's execution phase", map[string]any{"subBudget": subBudget}, string(progress.LevelWarn))
			return
		}

		next, err := s.Queue.Next()
		if err != nil {
			s.publish("scheduler", "failed to read approved queue", map[string]any{"error": err.Error()}, string(progress.LevelError))
			return
		}
		if next == nil {
			return
		}

		s.publish("spec-execution", "executing spec", map[string]any{"specId": next.ID}, string(progress.LevelInfo))
		result := s.Executor.Execute(ctx, next)
		executed++

		to := queue.BucketFailed
		if result.Status == executor.StatusCompleted {
			to = queue.BucketCompleted
			completed++
		} else {
			failed++
		}
		if err := s.Queue.Move(next.ID, queue.BucketApproved, to); err != nil {
			s.publish("scheduler", "failed to move spec after execution", map[string]any{"specId": next.ID, "error": err.Error()}, string(progress.LevelError))
		}
	}
}

func outcomeToRecord(mode constraint.Mode, result *constraint.CycleResult, outcome *CycleOutcome) CycleRecord {
	rec := CycleRecord{
		At:             time.Now(),
		Mode:           string(mode),
		SpecsExecuted:  outcome.SpecsExecuted,
		SpecsCompleted: outcome.SpecsCompleted,
		SpecsFailed:    outcome.SpecsFailed,
	}
	switch {
	case result == nil:
		rec.Outcome = "noop"
	case result.Dismissed:
		rec.Outcome = "dismissed"
		rec.Reason = result.DismissReason
	case result.Skipped:
		rec.Outcome = "skipped"
	case result.Constraint != nil:
		rec.Outcome = "enqueued"
		rec.ConstraintID = result.Constraint.ID
	}
	return rec
}
