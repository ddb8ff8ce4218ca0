package observer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jhmac/elon/pkg/capability"
)

const apiCheckTimeout = 8 * time.Second

// StepKind names one of the fixed scenario-step shapes. "navigate",
// "wait-for-selector", and "assert-no-error-toast" require a headless
// browser — an external collaborator per this system's scope — and are
// dispatched through the capability registry under the name "crawler" if
// one was registered; otherwise they report skipped rather than failed.
type StepKind string

const (
	StepNavigate            StepKind = "navigate"
	StepWaitForSelector     StepKind = "wait-for-selector"
	StepAssertNoErrorToast  StepKind = "assert-no-error-toast"
	StepAPICheck            StepKind = "api-check"
)

// Step is one step of a named Scenario.
type Step struct {
	Kind     StepKind
	Selector string // for wait-for-selector
	URL      string // for navigate, api-check
	Method   string // for api-check, default GET
}

// Scenario is a fixed, named multi-step browser-or-API scenario test.
type Scenario struct {
	Name  string
	Steps []Step
}

// Runner executes Scenarios. The default Runner handles api-check steps
// directly over HTTP and delegates browser steps to a "crawler"
// capability if one is registered, reporting them skipped otherwise.
type Runner struct {
	client       *http.Client
	capabilities *capability.Registry // may be nil
}

// NewRunner constructs a Runner. capabilities may be nil when no
// browser-driving capability is wired in.
func NewRunner(client *http.Client, capabilities *capability.Registry) *Runner {
	return &Runner{client: client, capabilities: capabilities}
}

// Run executes every step of s in order, stopping at the first failing
// step (a skipped step does not stop the scenario).
func (r *Runner) Run(ctx context.Context, s Scenario) ScenarioResult {
	result := ScenarioResult{Name: s.Name, Passed: true}
	for _, step := range s.Steps {
		stepResult := r.runStep(ctx, step)
		result.Steps = append(result.Steps, stepResult)
		if !stepResult.Passed && stepResult.Detail != "skipped: no browser capability registered" {
			result.Passed = false
			break
		}
	}
	return result
}

func (r *Runner) runStep(ctx context.Context, step Step) ScenarioStep {
	switch step.Kind {
	case StepAPICheck:
		return r.runAPICheck(ctx, step)
	case StepNavigate, StepWaitForSelector, StepAssertNoErrorToast:
		return r.runBrowserStep(ctx, step)
	default:
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: "unknown step kind"}
	}
}

func (r *Runner) runAPICheck(ctx context.Context, step Step) ScenarioStep {
	method := step.Method
	if method == "" {
		method = http.MethodGet
	}
	ctx, cancel := context.WithTimeout(ctx, apiCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, step.URL, nil)
	if err != nil {
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: err.Error()}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return ScenarioStep{Name: string(step.Kind), Passed: true}
}

func (r *Runner) runBrowserStep(ctx context.Context, step Step) ScenarioStep {
	if r.capabilities == nil {
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: "skipped: no browser capability registered"}
	}
	crawler, ok := r.capabilities.Get("crawler")
	if !ok {
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: "skipped: no browser capability registered"}
	}

	res := crawler.Run(ctx, capability.Task{
		Name:    string(step.Kind),
		Payload: map[string]any{"selector": step.Selector, "url": step.URL},
	})
	if res.Err != nil {
		return ScenarioStep{Name: string(step.Kind), Passed: false, Detail: res.Err.Error()}
	}
	return ScenarioStep{Name: string(step.Kind), Passed: true, Detail: fmt.Sprint(res.Output)}
}
