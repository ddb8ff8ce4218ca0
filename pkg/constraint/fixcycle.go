package constraint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/spec"
)

// RunFixCycle analyzes evidence plus the engine log's memory, asks the
// oracle to name the single most-limiting factor, and — unless the
// proposal is auto-dismissed — materializes its plan into Specifications
// and files them in the Work Queue.
func (e *Engine) RunFixCycle(ctx context.Context, evidence *observer.Bundle, goalsText string) (*CycleResult, error) {
	log, err := e.Log.Load()
	if err != nil {
		return nil, err
	}

	prompt := buildFixPrompt(goalsText, evidence, log)

	var proposal FixProposal
	if err := e.callOracle(ctx, prompt, &proposal); err != nil {
		return nil, err
	}

	if proposal.Action == "skip" {
		if e.Progress != nil {
			e.Progress.Info("constraint", "fix cycle skipped by oracle", map[string]any{"reason": proposal.Reason})
		}
		return &CycleResult{Skipped: true, DismissReason: proposal.Reason}, nil
	}
	if proposal.LimitingFactor == nil {
		return nil, fmt.Errorf("constraint: fix cycle oracle reply named neither a limiting factor nor skip")
	}

	c := &Constraint{
		ID:                 constraintID("elon-fix", time.Now()),
		Description:        proposal.LimitingFactor.Description,
		Why:                 proposal.LimitingFactor.Why,
		Unblocks:            proposal.LimitingFactor.Unblocks,
		Score:               proposal.LimitingFactor.ConstraintScore,
		Category:            proposal.LimitingFactor.Category,
		EvidenceFromCrawl:   proposal.LimitingFactor.EvidenceFromCrawl,
		Steps:               proposal.Plan,
		VerificationPages:   proposal.VerificationPages,
		CompletionCriteria:  proposal.CompletionCriteria,
		IdentifiedAt:        time.Now(),
		Status:              StatusActive,
		Source:              "fix",
	}

	if dismissed, reason := e.shouldDismiss(c, evidence, log); dismissed {
		c.Status = StatusDismissed
		log.History = append(log.History, *c)
		if err := e.Log.Save(log); err != nil {
			return nil, err
		}
		if e.Progress != nil {
			e.Progress.Warn("constraint", "proposal dismissed", map[string]any{"reason": reason})
		}
		return &CycleResult{Dismissed: true, DismissReason: reason, Constraint: c}, nil
	}

	materialized := Materialize(c, e.materializeOpts(spec.SourceConstraintFix))
	enqueued, err := e.enqueue(materialized)
	if err != nil {
		return nil, err
	}

	log.Current = c
	log.History = append(log.History, *c)
	log.LastMode = ModeFix
	log.ConsecutiveFixCycles++
	if err := e.Log.Save(log); err != nil {
		return nil, err
	}

	if e.Progress != nil {
		e.Progress.Info("constraint", "constraint identified", map[string]any{"id": c.ID, "description": c.Description})
	}
	return &CycleResult{Constraint: c, Enqueued: enqueued}, nil
}

// shouldDismiss applies the two auto-dismissal rules from §3's Constraint
// invariants: auth-evidence untrustworthiness and near-duplicate
// descriptions against the blocked set.
func (e *Engine) shouldDismiss(c *Constraint, evidence *observer.Bundle, log *EngineLog) (bool, string) {
	authenticated := evidence == nil || evidence.Authenticated
	if ShouldDismissForAuth(c, authenticated) {
		return true, "auth-related evidence against an unauthenticated crawl is not trustworthy"
	}

	blocked := blockedDescriptions(log)
	if isDup, match := IsNearDuplicate(c.Description, blocked); isDup {
		return true, fmt.Sprintf("near-duplicate (jaccard >= %.1f) of a previously blocked constraint: %q", DuplicateThreshold, truncate(match, 80))
	}
	return false, ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func buildFixPrompt(goalsText string, evidence *observer.Bundle, log *EngineLog) string {
	var b strings.Builder
	b.WriteString("You are the constraint engine's fix cycle. Identify the single most-limiting defect.\n\n")
	fmt.Fprintf(&b, "Goals:\n%s\n\n", goalsText)

	if evidence != nil {
		fmt.Fprintf(&b, "Evidence summary: %d issues, %d auth-expected, host healthy=%v\n", len(evidence.Issues), len(evidence.AuthExpected), evidence.Health.Healthy)
		for _, issue := range evidence.Issues {
			fmt.Fprintf(&b, "  - [%s] %s (%s)\n", issue.Severity, issue.Summary, issue.Source)
		}
	}

	if log.Current != nil {
		fmt.Fprintf(&b, "\nCurrently active constraint: %s\n", log.Current.Description)
	}
	blocked := blockedDescriptions(log)
	if len(blocked) > 0 {
		b.WriteString("\nPreviously blocked constraints (do not propose near-duplicates):\n")
		for _, d := range blocked {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	if len(log.FailedAttempts) > 0 {
		b.WriteString("\nPast failed attempts:\n")
		for _, f := range log.FailedAttempts {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Constraint, f.Reason)
		}
	}

	b.WriteString("\nRespond with exactly one JSON object of shape " +
		`{"limitingFactor":{"description":"","why":"","constraintScore":1,"category":"","evidenceFromCrawl":[],"unblocks":[]},"plan":[{"step":1,"filePath":"","description":"","successCriteria":[],"testCommand":"","priority":"medium"}],"verificationPages":[],"completionCriteria":""}` +
		` or {"action":"skip","reason":""}` + "\n")
	return b.String()
}
