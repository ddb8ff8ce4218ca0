package constraint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhmac/elon/pkg/config"
	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/spec"
)

// RunBuildCycle lists every roadmap entry in goals (the Scheduler passes
// only the milestone it has advanced to), samples the source tree from the
// Observer's dependency index in schema/route/service/page order, and asks
// the oracle to name the single most foundational unbuilt milestone and a
// short build plan. Roadmap entries carry no checked/unchecked state, so
// entries that are already built are not filtered out of the prompt.
func (e *Engine) RunBuildCycle(ctx context.Context, goals *config.Goals, index []observer.DependencyEdge) (*CycleResult, error) {
	log, err := e.Log.Load()
	if err != nil {
		return nil, err
	}

	prompt := buildBuildPrompt(goals, index)

	var proposal BuildProposal
	if err := e.callOracle(ctx, prompt, &proposal); err != nil {
		return nil, err
	}
	if proposal.Milestone == "" {
		return nil, fmt.Errorf("constraint: build cycle oracle reply named no milestone")
	}

	c := &Constraint{
		ID:           constraintID("elon-build", time.Now()),
		Description:  proposal.Milestone,
		Why:          proposal.Why,
		Steps:        proposal.Plan,
		IdentifiedAt: time.Now(),
		Status:       StatusActive,
		Category:     "build",
		Source:       "build",
	}

	materialized := Materialize(c, e.materializeOpts(spec.SourceBuild))
	enqueued, err := e.enqueue(materialized)
	if err != nil {
		return nil, err
	}

	log.Current = c
	log.History = append(log.History, *c)
	log.LastMode = ModeBuild
	log.ConsecutiveFixCycles = 0
	if err := e.Log.Save(log); err != nil {
		return nil, err
	}

	if e.Progress != nil {
		e.Progress.Info("constraint", "build milestone selected", map[string]any{"milestone": c.Description})
	}
	return &CycleResult{Constraint: c, Enqueued: enqueued}, nil
}

func buildBuildPrompt(goals *config.Goals, index []observer.DependencyEdge) string {
	var b strings.Builder
	b.WriteString("You are the constraint engine's build cycle. Name the single most foundational unbuilt milestone.\n\n")

	if goals != nil {
		fmt.Fprintf(&b, "Current phase: %s\n", goals.Phase)
		if len(goals.Roadmap) > 0 {
			b.WriteString("Roadmap:\n")
			for _, item := range goals.Roadmap {
				fmt.Fprintf(&b, "  - %s\n", item)
			}
		}
	}

	if len(index) > 0 {
		b.WriteString("\nExisting routes/services/pages/schema sampled from the source tree:\n")
		sampled := 0
		for _, kind := range []string{"schema", "route", "service", "page", "other"} {
			for _, edge := range index {
				if edge.Kind != kind || sampled >= 40 {
					continue
				}
				fmt.Fprintf(&b, "  - [%s] %s -> %s\n", edge.Kind, edge.Endpoint, edge.FilePath)
				sampled++
			}
		}
	}

	b.WriteString("\nRespond with exactly one JSON object of shape " +
		`{"milestone":"","why":"","plan":[{"step":1,"filePath":"","description":"","successCriteria":[],"testCommand":"","priority":"medium"}]}` + "\n")
	return b.String()
}
