// Package executor implements the Spec Executor: the state machine that
// drives a single Specification through up to maxIterations oracle
// round-trips, applying each proposed edit through the Atomic Mutator and
// verifying it before continuing.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhmac/elon/pkg/costledger"
	"github.com/jhmac/elon/pkg/mutator"
	"github.com/jhmac/elon/pkg/oracle"
	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/spec"
	"github.com/jhmac/elon/pkg/taxonomy"
)

const defaultMaxIterations = 10
const maxConsecutiveStuck = 3

// Status is the terminal outcome of one spec's execution.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusStuck         Status = "stuck"
	StatusMaxIterations Status = "max-iterations"
	StatusFailed        Status = "failed"
)

// HistoryEntry records what happened in one iteration, so the oracle's
// next prompt can see the outcome of its previous proposal.
type HistoryEntry struct {
	Iteration int       `json:"iteration"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"` // "applied", "validation-failed", "stuck", "dry-run", "oracle-unavailable"
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Result is what Execute returns once a spec reaches a terminal state.
type Result struct {
	Status  Status
	Reason  string
	History []HistoryEntry
}

// Executor drives specs through the oracle/mutate/validate loop.
type Executor struct {
	Oracle        oracle.Oracle
	Mutator       *mutator.Mutator
	Kernel        *safety.Kernel
	Ledger        costledger.Ledger
	Progress      *progress.Bus
	MaxIterations int
	Model         string
}

// New constructs an Executor with defaulted MaxIterations.
func New(o oracle.Oracle, m *mutator.Mutator, k *safety.Kernel, l costledger.Ledger, p *progress.Bus, model string) *Executor {
	return &Executor{Oracle: o, Mutator: m, Kernel: k, Ledger: l, Progress: p, MaxIterations: defaultMaxIterations, Model: model}
}

// Execute drives s to a terminal status.
func (e *Executor) Execute(ctx context.Context, s *spec.Specification) Result {
	maxIter := e.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	var history []HistoryEntry
	consecutiveStuck := 0

	for iteration := 1; iteration <= maxIter; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusFailed, Reason: "cancelled: " + err.Error(), History: history}
		}

		e.publish(s.ID, "spec-execution", fmt.Sprintf("iteration %d/%d", iteration, maxIter), nil)

		reply, err := e.callOracle(ctx, s, history)
		if err != nil {
			history = append(history, HistoryEntry{Iteration: iteration, Action: "call-oracle", Outcome: "oracle-unavailable", Detail: err.Error(), At: time.Now()})
			return Result{Status: StatusFailed, Reason: taxonomy.Newf(taxonomy.KindOracleUnavailable, "%v", err).Error(), History: history}
		}

		switch reply.Kind {
		case spec.ReplyComplete:
			history = append(history, HistoryEntry{Iteration: iteration, Action: string(reply.Kind), Outcome: "applied", At: time.Now()})
			return Result{Status: StatusCompleted, History: history}

		case spec.ReplyStuck:
			consecutiveStuck++
			history = append(history, HistoryEntry{Iteration: iteration, Action: string(reply.Kind), Outcome: "stuck", Detail: reply.Reason, At: time.Now()})
			if consecutiveStuck >= maxConsecutiveStuck {
				return Result{
					Status:  StatusStuck,
					Reason:  fmt.Sprintf("3 consecutive stuck replies: %s", reply.Reason),
					History: history,
				}
			}
			continue

		case spec.ReplyDryRun:
			consecutiveStuck = 0
			history = append(history, HistoryEntry{Iteration: iteration, Action: string(reply.Kind), Outcome: "dry-run", Detail: reply.Reason, At: time.Now()})
			continue

		default:
			consecutiveStuck = 0
			outcome, detail := e.applyAndValidate(s, reply)
			history = append(history, HistoryEntry{Iteration: iteration, Action: string(reply.Kind), Outcome: outcome, Detail: detail, At: time.Now()})
			// Whether validation passed or failed, a non-complete,
			// non-stuck reply always loops — the oracle sees the
			// outcome (including any rollback) on its next turn.
		}
	}

	return Result{Status: StatusMaxIterations, Reason: fmt.Sprintf("exhausted %d iterations", maxIter), History: history}
}

// callOracle builds a prompt from s and history, invokes the oracle,
// charges the cost ledger, and validates the decoded Reply.
func (e *Executor) callOracle(ctx context.Context, s *spec.Specification, history []HistoryEntry) (*spec.Reply, error) {
	prompt, err := buildPrompt(s, history)
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	resp, err := e.Oracle.Call(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("oracle call: %w", err)
	}

	if e.Ledger != nil {
		model := resp.Model
		if model == "" {
			model = e.Model
		}
		if _, chargeErr := e.Ledger.Charge(model, resp.InputTokens, resp.OutputTokens); chargeErr != nil {
			e.publish(s.ID, "spec-execution", "cost ledger charge failed", map[string]any{"error": chargeErr.Error()})
		}
	}

	extracted, err := oracle.Extract(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("extracting JSON from oracle response: %w", err)
	}

	var reply spec.Reply
	if err := json.Unmarshal([]byte(extracted), &reply); err != nil {
		return nil, fmt.Errorf("decoding oracle reply: %w", err)
	}
	if err := reply.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oracle reply: %w", err)
	}
	return &reply, nil
}

func (e *Executor) publish(specID, phase, message string, detail map[string]any) {
	if e.Progress == nil {
		return
	}
	if detail == nil {
		detail = map[string]any{}
	}
	detail["specId"] = specID
	e.Progress.Info(phase, message, detail)
}
