package constraint

// FixProposal is the oracle's reply shape for a fix cycle: either a named
// limiting factor with a remediation plan, or an explicit skip.
type FixProposal struct {
	Action             string          `json:"action,omitempty"` // "skip" when the oracle found nothing worth fixing
	Reason             string          `json:"reason,omitempty"`
	LimitingFactor     *LimitingFactor `json:"limitingFactor,omitempty"`
	Plan               []PlanStep      `json:"plan,omitempty"`
	VerificationPages  []string        `json:"verificationPages,omitempty"`
	CompletionCriteria string          `json:"completionCriteria,omitempty"`
}

// LimitingFactor is the oracle's identification of the single
// most-limiting defect, ready to become a Constraint.
type LimitingFactor struct {
	Description       string   `json:"description"`
	Why                string   `json:"why"`
	ConstraintScore    int      `json:"constraintScore"`
	Category           string   `json:"category"`
	EvidenceFromCrawl  []string `json:"evidenceFromCrawl"`
	Unblocks           []string `json:"unblocks"`
}

// BuildProposal is the oracle's reply shape for a build cycle: the single
// most foundational unbuilt milestone and a short build plan.
type BuildProposal struct {
	Milestone string     `json:"milestone"`
	Why       string     `json:"why"`
	Plan      []PlanStep `json:"plan"`
}

// EvaluationReply is the oracle's verdict on whether an active
// constraint's plan actually resolved it.
type EvaluationReply struct {
	Resolved bool   `json:"resolved"`
	Reason   string `json:"reason"`
}
