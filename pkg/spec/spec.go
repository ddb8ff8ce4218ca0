// Package spec defines the Specification entity and its tagged-variant
// schema. Specs originate from an LLM whose replies are untyped text; this
// package is the validation boundary — everything downstream of Parse
// works only on validated values, never on raw oracle output.
package spec

import (
	"fmt"
	"time"
)

// Action is the tagged-variant discriminant for a Specification.
type Action string

const (
	ActionCreate Action = "create"
	ActionChange Action = "change"
	ActionVerify Action = "verify"
)

// Priority ranks specs for approved-queue execution ordering.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// priorityWeight gives each Priority a numeric weight for ordering the
// approved queue (higher executes first; FIFO order breaks ties).
var priorityWeight = map[Priority]int{
	PriorityCritical: 4,
	PriorityHigh:     3,
	PriorityMedium:   2,
	PriorityLow:      1,
}

// Weight returns p's numeric sort weight, defaulting unknown priorities to
// the lowest weight rather than panicking.
func (p Priority) Weight() int {
	if w, ok := priorityWeight[p]; ok {
		return w
	}
	return 0
}

// Source records where a spec came from.
type Source string

const (
	SourceConstraintFix Source = "constraint-fix"
	SourceBuild         Source = "build"
	SourceImportedSkill Source = "imported-skill"
)

// RuntimeValidation describes an optional post-mutation health check.
type RuntimeValidation struct {
	HealthURL    string `json:"healthUrl" yaml:"healthUrl"`
	StartCommand string `json:"startCommand,omitempty" yaml:"startCommand,omitempty"`
	TimeoutMs    int    `json:"timeoutMs" yaml:"timeoutMs"`
}

// Specification is one concrete, oracle-planned remediation unit.
type Specification struct {
	ID                string             `json:"id"`
	FilePath          string             `json:"filePath"`
	Description       string             `json:"description"`
	SuccessCriteria   []string           `json:"successCriteria"`
	Action            Action             `json:"action"`
	TestCommand       string             `json:"testCommand,omitempty"`
	RuntimeValidation *RuntimeValidation `json:"runtimeValidation,omitempty"`
	Priority          Priority           `json:"priority"`
	Category          string             `json:"category"`
	Source            Source             `json:"source"`
	ConstraintID      string             `json:"constraintId,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	BlockedCategory   string             `json:"blockedCategory,omitempty"`
}

// Validate checks that a Specification satisfies the invariants every
// downstream consumer relies on: a known action, a non-empty file path and
// description, and a runtime-validation block that (if present) names a
// health URL.
func (s *Specification) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("spec: id is required")
	}
	if s.FilePath == "" {
		return fmt.Errorf("spec: filePath is required")
	}
	if s.Description == "" {
		return fmt.Errorf("spec: description is required")
	}
	switch s.Action {
	case ActionCreate, ActionChange, ActionVerify:
	default:
		return fmt.Errorf("spec: unknown action %q", s.Action)
	}
	if s.RuntimeValidation != nil {
		if s.RuntimeValidation.HealthURL == "" {
			return fmt.Errorf("spec: runtimeValidation.healthUrl is required when runtimeValidation is set")
		}
		if s.RuntimeValidation.TimeoutMs <= 0 {
			return fmt.Errorf("spec: runtimeValidation.timeoutMs must be positive")
		}
	}
	return nil
}
