package spec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSpec() *Specification {
	return &Specification{
		ID:              "elon-c1-step01",
		FilePath:        "src/foo.ts",
		Description:     "fix the thing",
		SuccessCriteria: []string{"builds cleanly"},
		Action:          ActionChange,
		Priority:        PriorityHigh,
		Category:        "bugfix",
		Source:          SourceConstraintFix,
		CreatedAt:       time.Now(),
	}
}

func TestValidate_AcceptsWellFormedSpec(t *testing.T) {
	assert.NoError(t, validSpec().Validate())
}

func TestValidate_RejectsUnknownAction(t *testing.T) {
	s := validSpec()
	s.Action = "delete-everything"
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsMissingFields(t *testing.T) {
	s := validSpec()
	s.FilePath = ""
	assert.Error(t, s.Validate())
}

func TestValidate_RuntimeValidationRequiresHealthURL(t *testing.T) {
	s := validSpec()
	s.RuntimeValidation = &RuntimeValidation{TimeoutMs: 1000}
	assert.Error(t, s.Validate())

	s.RuntimeValidation.HealthURL = "http://localhost:3000/health"
	assert.NoError(t, s.Validate())
}

func TestPriority_Weight_OrdersCorrectly(t *testing.T) {
	assert.Greater(t, PriorityCritical.Weight(), PriorityHigh.Weight())
	assert.Greater(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Greater(t, PriorityMedium.Weight(), PriorityLow.Weight())
}
