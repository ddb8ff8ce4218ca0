// Package constraint implements the Constraint Engine: the outer brain
// that consumes Observer evidence and the durable engine log, asks the
// oracle to name the single most-limiting factor, plans a sequence of
// specifications to remove it, files them in the Work Queue with correct
// approval routing, and later evaluates whether the constraint was
// actually resolved.
package constraint

import "time"

// Status is a Constraint's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSolved    Status = "solved"
	StatusDismissed Status = "dismissed"
)

// Mode selects which cycle the engine runs.
type Mode string

const (
	ModeFix   Mode = "fix"
	ModeBuild Mode = "build"
	ModeAuto  Mode = "auto"
)

// PlanStep is one step of a Constraint's remediation plan, materialised
// into a Specification by Materialize.
type PlanStep struct {
	Step            int      `json:"step"`
	FilePath        string   `json:"filePath"`
	Description     string   `json:"description"`
	SuccessCriteria []string `json:"successCriteria"`
	TestCommand     string   `json:"testCommand,omitempty"`
	Priority        string   `json:"priority"`
}

// Constraint is the engine's single most-limiting-factor judgment for one
// identification cycle.
type Constraint struct {
	ID                 string     `json:"id"`
	Description        string     `json:"description"`
	Why                string     `json:"why"`
	Unblocks           []string   `json:"unblocks"`
	Score              int        `json:"score"` // 1..10
	Category           string     `json:"category"`
	EvidenceFromCrawl  []string   `json:"evidenceFromCrawl"`
	Steps              []PlanStep `json:"steps"`
	VerificationPages  []string   `json:"verificationPages"`
	CompletionCriteria string     `json:"completionCriteria"`
	IdentifiedAt       time.Time  `json:"identifiedAt"`
	ResolvedAt         *time.Time `json:"resolvedAt,omitempty"`
	Status             Status     `json:"status"`
	Source             string     `json:"source"` // "fix" or "build"
}

// FailedAttempt records one unsuccessful evaluation of an active
// constraint.
type FailedAttempt struct {
	Constraint string    `json:"constraint"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// EngineLog is the single, atomically-rewritten file recording the
// engine's entire history.
type EngineLog struct {
	Current              *Constraint     `json:"current"`
	Solved               []Constraint    `json:"solved"`
	History              []Constraint    `json:"history"`
	FailedAttempts       []FailedAttempt `json:"failedAttempts"`
	ModeOverride         Mode            `json:"modeOverride,omitempty"`
	LastMode             Mode            `json:"lastMode,omitempty"`
	LastModeResult       string          `json:"lastModeResult,omitempty"`
	ConsecutiveFixCycles int             `json:"consecutiveFixCycles"`
}
