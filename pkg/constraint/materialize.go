package constraint

import (
	"fmt"
	"time"

	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/spec"
)

// MaterializeOptions configures how a Constraint's plan steps become
// Specifications.
type MaterializeOptions struct {
	Source              spec.Source
	Kernel              *safety.Kernel
	AutoApproveCategory map[string]bool
	UnlockedCategories  map[string]bool // sensitive categories the operator has explicitly unlocked
}

// Materialize turns every PlanStep of c into a Specification with id
// "elon-<constraintId>-step<NN>" and the routing decision from §4.6 step
// 5: a step whose description matches a sensitive-category keyword
// routes to pending unless that category is explicitly unlocked;
// otherwise it routes to approved when the path is safe, else pending.
func Materialize(c *Constraint, opts MaterializeOptions) []MaterializedSpec {
	specs := make([]MaterializedSpec, 0, len(c.Steps))
	for _, step := range c.Steps {
		s := &spec.Specification{
			ID:              fmt.Sprintf("elon-%s-step%02d", c.ID, step.Step),
			FilePath:        step.FilePath,
			Description:     step.Description,
			SuccessCriteria: step.SuccessCriteria,
			Action:          spec.ActionChange,
			TestCommand:     step.TestCommand,
			Priority:        spec.Priority(step.Priority),
			Category:        c.Category,
			Source:          opts.Source,
			ConstraintID:    c.ID,
			CreatedAt:       timeNow(),
		}

		bucket, blocked := route(s, opts)
		s.BlockedCategory = blocked
		specs = append(specs, MaterializedSpec{Spec: s, Bucket: bucket})
	}
	return specs
}

// MaterializedSpec pairs a Specification with the bucket it should be
// enqueued into.
type MaterializedSpec struct {
	Spec   *spec.Specification
	Bucket string // "pending" or "approved"
}

func route(s *spec.Specification, opts MaterializeOptions) (bucket string, blockedCategory string) {
	if sensitive := matchedSensitiveCategory(s.Description); sensitive != "" {
		if opts.UnlockedCategories == nil || !opts.UnlockedCategories[sensitive] {
			return "pending", sensitive
		}
	}

	if opts.AutoApproveCategory != nil && !opts.AutoApproveCategory[s.Category] {
		return "pending", ""
	}

	if opts.Kernel != nil {
		if safe, _ := opts.Kernel.MayMutate(s.FilePath); safe {
			return "approved", ""
		}
	}
	return "pending", ""
}

// timeNow exists so Materialize's single call site isn't a bare
// time.Now() scattered through test assertions; kept trivial on purpose.
func timeNow() time.Time { return time.Now() }
