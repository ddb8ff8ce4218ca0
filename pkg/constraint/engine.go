package constraint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhmac/elon/pkg/costledger"
	"github.com/jhmac/elon/pkg/oracle"
	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/queue"
	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/spec"
)

// MinBudgetMargin is the remaining-budget floor below which the engine
// refuses to invoke the oracle at all.
const MinBudgetMargin = 0.10

// Engine is the Constraint Engine. It owns no state of its own beyond its
// dependencies; every durable fact lives in the engine log or the queue.
type Engine struct {
	Oracle   oracle.Oracle
	Log      *LogStore
	Queue    *queue.Queue
	Kernel   *safety.Kernel
	Ledger   costledger.Ledger
	Progress *progress.Bus
	Model    string

	AutoApproveCategory map[string]bool
	UnlockedCategories  map[string]bool
	BudgetMax           float64
}

// New constructs an Engine.
func New(o oracle.Oracle, log *LogStore, q *queue.Queue, kernel *safety.Kernel, ledger costledger.Ledger, bus *progress.Bus, model string) *Engine {
	return &Engine{Oracle: o, Log: log, Queue: q, Kernel: kernel, Ledger: ledger, Progress: bus, Model: model}
}

// CycleResult summarizes what one fix or build cycle did.
type CycleResult struct {
	Dismissed   bool
	DismissReason string
	Skipped     bool
	Constraint  *Constraint
	Enqueued    []MaterializedSpec
}

// checkBudget refuses the oracle call when remaining budget is below the
// minimum margin, per the outer loop invariant.
func (e *Engine) checkBudget() error {
	if e.Ledger == nil || e.BudgetMax <= 0 {
		return nil
	}
	if e.Ledger.Remaining(e.BudgetMax) < MinBudgetMargin {
		return fmt.Errorf("constraint: remaining budget below minimum margin of $%.2f", MinBudgetMargin)
	}
	return nil
}

// callOracle invokes the oracle with prompt, charges the ledger, and
// extracts+decodes the first well-formed JSON object in the reply into v.
func (e *Engine) callOracle(ctx context.Context, prompt string, v any) error {
	if err := e.checkBudget(); err != nil {
		return err
	}

	resp, err := e.Oracle.Call(ctx, prompt)
	if err != nil {
		return fmt.Errorf("constraint: oracle call failed: %w", err)
	}
	if e.Ledger != nil {
		if _, err := e.Ledger.Charge(e.Model, resp.InputTokens, resp.OutputTokens); err != nil {
			return fmt.Errorf("constraint: charging ledger: %w", err)
		}
	}

	extracted, err := oracle.Extract(resp.Text)
	if err != nil {
		return fmt.Errorf("constraint: extracting oracle reply: %w", err)
	}
	if err := json.Unmarshal([]byte(extracted), v); err != nil {
		return fmt.Errorf("constraint: decoding oracle reply: %w", err)
	}
	return nil
}

// enqueue files every materialized spec into its routed bucket.
func (e *Engine) enqueue(specs []MaterializedSpec) ([]MaterializedSpec, error) {
	for _, m := range specs {
		bucket := queue.BucketPending
		if m.Bucket == "approved" {
			bucket = queue.BucketApproved
		}
		if err := e.Queue.Enqueue(bucket, m.Spec); err != nil {
			return nil, fmt.Errorf("constraint: enqueuing %s: %w", m.Spec.ID, err)
		}
	}
	return specs, nil
}

func constraintID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, now.UnixNano()/int64(time.Millisecond))
}

func blockedDescriptions(log *EngineLog) []string {
	descriptions := make([]string, 0, len(log.History))
	for _, c := range log.History {
		if c.Status == StatusDismissed {
			descriptions = append(descriptions, c.Description)
		}
	}
	return descriptions
}

// materializeOpts builds the MaterializeOptions shared by fix and build
// cycles from the engine's configuration.
func (e *Engine) materializeOpts(source spec.Source) MaterializeOptions {
	return MaterializeOptions{
		Source:              source,
		Kernel:              e.Kernel,
		AutoApproveCategory: e.AutoApproveCategory,
		UnlockedCategories:  e.UnlockedCategories,
	}
}
