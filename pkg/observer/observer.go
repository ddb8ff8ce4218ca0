package observer

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jhmac/elon/pkg/capability"
)

// Config is everything one Observer cycle needs to know.
type Config struct {
	HealthURL        string
	CrawlEnabled     bool
	CrawlMode        CrawlMode
	CrawlRoot        string
	CrawlMaxPages    int
	Authenticated    bool
	Integrations     []IntegrationSpec
	Scenarios        []Scenario
	SourceRoot       string
	SourceExtensions []string
}

// Observer runs one cycle of ground-truth evidence collection, joining
// health probe, crawl, integration checks, and scenario tests — all
// independent I/O-bound subtasks — before returning a single atomic
// Bundle.
type Observer struct {
	client       *http.Client
	capabilities *capability.Registry
	scenarios    *Runner
}

// New constructs an Observer. capabilities may be nil when no pluggable
// sub-agents (e.g. a browser-driving crawler) are registered.
func New(client *http.Client, capabilities *capability.Registry) *Observer {
	if client == nil {
		client = &http.Client{}
	}
	return &Observer{client: client, capabilities: capabilities, scenarios: NewRunner(client, capabilities)}
}

// Collect runs every configured subtask in parallel and joins them into a
// single Bundle. Health probe, integration checks, and scenario tests run
// concurrently; the crawl (potentially the slowest, and order-sensitive
// with respect to auth-evidence splitting) runs alongside them too, since
// every subtask writes into the bundle only while holding one shared lock.
func (o *Observer) Collect(ctx context.Context, cfg Config) *Bundle {
	bundle := &Bundle{
		CrawlMode:     cfg.CrawlMode,
		Authenticated: cfg.Authenticated,
		CollectedAt:   time.Now(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		result := ProbeHealth(ctx, o.client, cfg.HealthURL)
		mu.Lock()
		bundle.Health = result
		mu.Unlock()
	}()

	if cfg.CrawlEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issues, authExpected := Crawl(ctx, o.client, o.capabilities, CrawlOptions{
				Root: cfg.CrawlRoot, MaxPages: cfg.CrawlMaxPages, Mode: cfg.CrawlMode, Authenticated: cfg.Authenticated,
			})
			mu.Lock()
			bundle.Issues = append(bundle.Issues, issues...)
			bundle.AuthExpected = append(bundle.AuthExpected, authExpected...)
			mu.Unlock()
		}()
	}

	for _, spec := range cfg.Integrations {
		spec := spec
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := ProbeIntegration(ctx, o.client, spec)
			mu.Lock()
			bundle.Integrations = append(bundle.Integrations, result)
			if result.Status == IntegrationMisconfigured || result.Status == IntegrationError {
				bundle.Issues = append(bundle.Issues, Issue{
					Severity: integrationSeverity(result.Status),
					Source:   "integration",
					Summary:  spec.Name + ": " + string(result.Status),
					Detail:   result.Detail,
				})
			}
			mu.Unlock()
		}()
	}

	for _, scenario := range cfg.Scenarios {
		scenario := scenario
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := o.scenarios.Run(ctx, scenario)
			mu.Lock()
			bundle.Scenarios = append(bundle.Scenarios, result)
			if !result.Passed {
				bundle.Issues = append(bundle.Issues, Issue{
					Severity: SeverityMedium,
					Source:   "scenario",
					Summary:  scenario.Name + " failed",
				})
			}
			mu.Unlock()
		}()
	}

	wg.Wait()

	if cfg.SourceRoot != "" {
		if edges, err := BuildDependencyIndex(cfg.SourceRoot, cfg.SourceExtensions); err == nil {
			bundle.DependencyIndex = edges
		}
	}

	bundle.Issues = discardInfoSeverity(bundle.Issues)
	sortIssuesBySeverity(bundle.Issues)
	return bundle
}

// discardInfoSeverity drops info-level issues from aggregation; only
// high/medium/low survive into the bundle's issue list.
func discardInfoSeverity(issues []Issue) []Issue {
	kept := issues[:0]
	for _, issue := range issues {
		if issue.Severity != SeverityInfo {
			kept = append(kept, issue)
		}
	}
	return kept
}

func integrationSeverity(status IntegrationStatus) Severity {
	if status == IntegrationError {
		return SeverityHigh
	}
	return SeverityMedium
}

var severityRank = map[Severity]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2, SeverityInfo: 3}

// sortIssuesBySeverity sorts in place, high first, keeping the original
// order among equal severities. Info-level entries are not removed here;
// discardInfoSeverity does that before the sort.
func sortIssuesBySeverity(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
	})
}
