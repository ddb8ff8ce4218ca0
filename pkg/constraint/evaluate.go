package constraint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/queue"
)

// AllStepsTerminal reports whether every materialized spec for
// constraintID has reached a terminal bucket (completed or failed),
// which is the evaluation trigger from §4.6.
func AllStepsTerminal(q *queue.Queue, constraintID string) (bool, error) {
	pending, err := stepIDs(q, queue.BucketPending, constraintID)
	if err != nil {
		return false, err
	}
	approved, err := stepIDs(q, queue.BucketApproved, constraintID)
	if err != nil {
		return false, err
	}
	return len(pending) == 0 && len(approved) == 0, nil
}

func stepIDs(q *queue.Queue, bucket queue.Bucket, constraintID string) ([]string, error) {
	specs, err := q.List(bucket)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, s := range specs {
		if s.ConstraintID == constraintID {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// Evaluate re-inspects evidence for the engine log's active constraint
// and asks the oracle whether it is now resolved. On "yes" the
// constraint moves to solved; on "no" a failedAttempts record is
// appended and the constraint stays active for a future cycle.
func (e *Engine) Evaluate(ctx context.Context, evidence *observer.Bundle) error {
	log, err := e.Log.Load()
	if err != nil {
		return err
	}
	if log.Current == nil {
		return nil
	}

	terminal, err := AllStepsTerminal(e.Queue, log.Current.ID)
	if err != nil {
		return err
	}
	if !terminal {
		return nil
	}

	prompt := buildEvaluationPrompt(log.Current, evidence)
	var reply EvaluationReply
	if err := e.callOracle(ctx, prompt, &reply); err != nil {
		return err
	}

	if reply.Resolved {
		now := time.Now()
		log.Current.Status = StatusSolved
		log.Current.ResolvedAt = &now
		log.Solved = append(log.Solved, *log.Current)
		updateHistory(log, *log.Current)
		log.Current = nil
		if e.Progress != nil {
			e.Progress.Success("constraint", "constraint solved", nil)
		}
	} else {
		log.FailedAttempts = append(log.FailedAttempts, FailedAttempt{
			Constraint: log.Current.ID,
			Reason:     reply.Reason,
			Timestamp:  time.Now(),
		})
		if e.Progress != nil {
			e.Progress.Warn("constraint", "evaluation found constraint unresolved", map[string]any{"reason": reply.Reason})
		}
	}

	return e.Log.Save(log)
}

// updateHistory replaces the history entry matching c.ID with c's latest
// state, since the engine log's history is meant to reflect each
// constraint's current lifecycle status, not just its identification.
func updateHistory(log *EngineLog, c Constraint) {
	for i, h := range log.History {
		if h.ID == c.ID {
			log.History[i] = c
			return
		}
	}
	log.History = append(log.History, c)
}

func buildEvaluationPrompt(c *Constraint, evidence *observer.Bundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Was this constraint resolved: %s\nWhy it mattered: %s\nCompletion criteria: %s\n", c.Description, c.Why, c.CompletionCriteria)
	if evidence != nil {
		fmt.Fprintf(&b, "\nCurrent evidence: %d issues, host healthy=%v\n", len(evidence.Issues), evidence.Health.Healthy)
		for _, issue := range evidence.Issues {
			fmt.Fprintf(&b, "  - [%s] %s\n", issue.Severity, issue.Summary)
		}
	}
	b.WriteString(`Respond with exactly one JSON object of shape {"resolved":true,"reason":""}` + "\n")
	return b.String()
}
