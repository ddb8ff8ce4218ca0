package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/queue"
)

// rateLimitCooldown is the pause before retrying a round that failed on a
// 429 from the oracle, per the spec's TransientExecution handling.
const rateLimitCooldown = 60 * time.Second

// ActiveConstraintCounts is a severity breakdown of constraints still
// outstanding (active or pending evaluation), used by Fix-all to decide
// when to stop.
type ActiveConstraintCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// Outstanding reports whether any critical/high/medium constraint remains.
func (c ActiveConstraintCounts) Outstanding() bool {
	return c.Critical > 0 || c.High > 0 || c.Medium > 0
}

// getActiveConstraintCounts inspects the engine log's current constraint
// plus every spec still in flight to approximate outstanding severity —
// the engine log itself only tracks one active constraint at a time, so
// this also counts pending/approved specs by their Priority as a proxy
// for constraints not yet evaluated.
func (s *Scheduler) getActiveConstraintCounts() (ActiveConstraintCounts, error) {
	var counts ActiveConstraintCounts
	log, err := s.Engine.Log.Load()
	if err != nil {
		return counts, err
	}
	if log.Current != nil {
		bumpBySeverity(&counts, log.Current.Score)
	}

	for _, bucket := range []queue.Bucket{queue.BucketPending, queue.BucketApproved} {
		specs, err := s.Queue.List(bucket)
		if err != nil {
			return counts, err
		}
		for _, sp := range specs {
			switch strings.ToLower(string(sp.Priority)) {
			case "critical":
				counts.Critical++
			case "high":
				counts.High++
			case "medium":
				counts.Medium++
			default:
				counts.Low++
			}
		}
	}
	return counts, nil
}

func bumpBySeverity(counts *ActiveConstraintCounts, score int) {
	switch {
	case score >= 8:
		counts.Critical++
	case score >= 6:
		counts.High++
	case score >= 3:
		counts.Medium++
	default:
		counts.Low++
	}
}

// FixAllOutcome summarises a Fix-all invocation.
type FixAllOutcome struct {
	RoundsRun     int
	Stopped       bool
	AllClear      bool
	NoProgressHit bool
	Rounds        []*LoopOutcome
}

// FixAll runs up to maxRounds invocations of RunLoop with small per-round
// budgets, stopping once no critical/high/medium constraint remains
// outstanding, after MaxNoProgress rounds with zero newly-solved
// constraints, or cleanly pausing 60s on a 429 before retrying the round.
func (s *Scheduler) FixAll(ctx context.Context, maxRounds int, roundBudget, perCycleBudget float64, maxConstraintsPerRound int) (*FixAllOutcome, error) {
	out := &FixAllOutcome{}
	noProgressRounds := 0

	for round := 0; round < maxRounds; round++ {
		if s.stopRequested() {
			out.Stopped = true
			break
		}

		counts, err := s.getActiveConstraintCounts()
		if err != nil {
			return out, err
		}
		if !counts.Outstanding() {
			s.publish("scheduler", "fix-all stopping: no critical/high/medium constraints outstanding", nil, string(progress.LevelSuccess))
			out.AllClear = true
			break
		}

		solvedBefore, err := s.solvedCount()
		if err != nil {
			return out, err
		}

		loopOutcome, err := s.runRoundWithCooldown(ctx, maxConstraintsPerRound, roundBudget, perCycleBudget)
		if err != nil {
			return out, err
		}
		out.Rounds = append(out.Rounds, loopOutcome)
		out.RoundsRun++

		if loopOutcome.Stopped {
			out.Stopped = true
			break
		}

		solvedAfter, err := s.solvedCount()
		if err != nil {
			return out, err
		}
		if solvedAfter <= solvedBefore {
			noProgressRounds++
		} else {
			noProgressRounds = 0
		}
		if noProgressRounds >= s.MaxNoProgress {
			s.publish("scheduler", "fix-all stopping: no progress for consecutive rounds", map[string]any{"rounds": noProgressRounds}, string(progress.LevelWarn))
			out.NoProgressHit = true
			break
		}
	}
	return out, nil
}

func (s *Scheduler) solvedCount() (int, error) {
	log, err := s.Engine.Log.Load()
	if err != nil {
		return 0, err
	}
	return len(log.Solved), nil
}

// runRoundWithCooldown runs one RunLoop round, retrying once after a 60s
// cooldown if the oracle reports a rate limit (TransientExecution).
func (s *Scheduler) runRoundWithCooldown(ctx context.Context, maxConstraints int, roundBudget, perCycleBudget float64) (*LoopOutcome, error) {
	var out *LoopOutcome

	op := func() error {
		loopOutcome, err := s.RunLoop(ctx, maxConstraints, roundBudget, perCycleBudget)
		if err != nil {
			if isRateLimitErr(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = loopOutcome
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(rateLimitCooldown), 1)
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	return out, err
}

func isRateLimitErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "429")
}
