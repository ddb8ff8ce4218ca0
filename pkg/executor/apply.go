package executor

import (
	"fmt"
	"strings"

	"github.com/jhmac/elon/pkg/mutator"
	"github.com/jhmac/elon/pkg/spec"
)

// applyAndValidate dispatches reply's payload through the Atomic Mutator
// and, if every mutation applied cleanly, runs the spec's test/runtime
// validation policy. It returns an outcome tag and a human-readable
// detail string for the iteration history.
func (e *Executor) applyAndValidate(s *spec.Specification, reply *spec.Reply) (outcome, detail string) {
	results, err := e.dispatch(reply)
	if err != nil {
		return "validation-failed", err.Error()
	}
	for _, r := range results {
		if !r.Success {
			return "validation-failed", r.Error
		}
	}

	if err := e.runValidationPolicy(s); err != nil {
		e.rollback(s, reply, results)
		return "validation-failed", err.Error()
	}

	return "applied", fmt.Sprintf("%s: %d file(s) mutated", reply.Kind, len(results))
}

// dispatch routes reply's payload (single/multi edit or create) to the
// Mutator's equivalent operation.
func (e *Executor) dispatch(reply *spec.Reply) ([]mutator.Result, error) {
	switch reply.Kind {
	case spec.ReplyChange:
		return []mutator.Result{e.Mutator.ApplyChange(mutator.Change{
			File: reply.Edit.File, OldText: reply.Edit.OldText, NewText: reply.Edit.NewText,
		})}, nil

	case spec.ReplyMultiChange:
		ops := make([]mutator.BatchOp, 0, len(reply.Edits))
		for _, edit := range reply.Edits {
			ops = append(ops, mutator.BatchOp{Change: &mutator.Change{
				File: edit.File, OldText: edit.OldText, NewText: edit.NewText,
			}})
		}
		return e.Mutator.ApplyBatch(ops), nil

	case spec.ReplyCreate:
		return []mutator.Result{e.Mutator.CreateFile(mutator.Create{
			File: reply.Created.File, Content: reply.Created.Content,
		})}, nil

	case spec.ReplyMultiCreate:
		ops := make([]mutator.BatchOp, 0, len(reply.Creates))
		for _, c := range reply.Creates {
			ops = append(ops, mutator.BatchOp{Create: &mutator.Create{File: c.File, Content: c.Content}})
		}
		return e.Mutator.ApplyBatch(ops), nil

	default:
		return nil, fmt.Errorf("executor: reply kind %q has no mutation payload", reply.Kind)
	}
}

// rollback restores every successfully-applied result in results when a
// post-apply validation step (test command, runtime health) fails after
// the mutations themselves already landed cleanly.
func (e *Executor) rollback(s *spec.Specification, reply *spec.Reply, results []mutator.Result) {
	var files []string
	switch reply.Kind {
	case spec.ReplyChange:
		files = []string{reply.Edit.File}
	case spec.ReplyMultiChange:
		for _, edit := range reply.Edits {
			files = append(files, edit.File)
		}
	case spec.ReplyCreate:
		files = []string{reply.Created.File}
	case spec.ReplyMultiCreate:
		for _, c := range reply.Creates {
			files = append(files, c.File)
		}
	}
	e.Mutator.RevertResults(files, results)
}

func isNoTestSpecified(output string) bool {
	return strings.Contains(strings.ToLower(output), "no test specified")
}
