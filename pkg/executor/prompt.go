package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jhmac/elon/pkg/spec"
)

// buildPrompt composes the oracle task text for one iteration: the
// specification, its success criteria, and the iteration history so far
// (previous actions, outcomes, failure reasons).
func buildPrompt(s *spec.Specification, history []HistoryEntry) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "You are driving a single remediation specification to completion.\n\n")
	fmt.Fprintf(&b, "Specification %s:\n", s.ID)
	fmt.Fprintf(&b, "  file: %s\n", s.FilePath)
	fmt.Fprintf(&b, "  action: %s\n", s.Action)
	fmt.Fprintf(&b, "  description: %s\n", s.Description)
	if len(s.SuccessCriteria) > 0 {
		fmt.Fprintf(&b, "  success criteria:\n")
		for _, c := range s.SuccessCriteria {
			fmt.Fprintf(&b, "    - %s\n", c)
		}
	}
	if s.TestCommand != "" {
		fmt.Fprintf(&b, "  test command: %s\n", s.TestCommand)
	}

	if len(history) == 0 {
		b.WriteString("\nThis is the first iteration.\n")
	} else {
		b.WriteString("\nIteration history so far:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "  %d. action=%s outcome=%s", h.Iteration, h.Action, h.Outcome)
			if h.Detail != "" {
				fmt.Fprintf(&b, " detail=%q", h.Detail)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRespond with exactly one JSON object, one of the following shapes:\n")
	schemas := []map[string]any{
		{"status": "SPEC_COMPLETE"},
		{"status": "stuck", "reason": "string"},
		{"status": "dry-run", "reason": "string"},
		{"status": "change", "edit": map[string]any{"file": "string", "oldText": "string", "newText": "string"}},
		{"status": "multi-change", "edits": []map[string]any{{"file": "string", "oldText": "string", "newText": "string"}}},
		{"status": "create", "created": map[string]any{"file": "string", "content": "string"}},
		{"status": "multi-create", "creates": []map[string]any{{"file": "string", "content": "string"}}},
	}
	for _, schema := range schemas {
		encoded, err := json.Marshal(schema)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s\n", encoded)
	}

	return b.String(), nil
}
