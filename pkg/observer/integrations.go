package observer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

const integrationProbeTimeout = 8 * time.Second

// IntegrationSpec names one external integration to probe: the
// environment variables its credentials live in, and an optional
// reachability URL to confirm the credentialed endpoint actually answers.
type IntegrationSpec struct {
	Name            string
	RequiredEnvVars []string
	ReachabilityURL string
}

// ProbeIntegration checks spec's required environment variables are
// present, then (if a reachability URL is configured) confirms the
// endpoint answers without a transport error.
func ProbeIntegration(ctx context.Context, client *http.Client, spec IntegrationSpec) IntegrationResult {
	for _, name := range spec.RequiredEnvVars {
		if os.Getenv(name) == "" {
			return IntegrationResult{
				Name:   spec.Name,
				Status: IntegrationMisconfigured,
				Detail: fmt.Sprintf("missing required environment variable %s", name),
			}
		}
	}

	if spec.ReachabilityURL == "" {
		return IntegrationResult{Name: spec.Name, Status: IntegrationHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, integrationProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.ReachabilityURL, nil)
	if err != nil {
		return IntegrationResult{Name: spec.Name, Status: IntegrationError, Detail: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return IntegrationResult{Name: spec.Name, Status: IntegrationError, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return IntegrationResult{
			Name:   spec.Name,
			Status: IntegrationDegraded,
			Detail: fmt.Sprintf("reachability check returned %d", resp.StatusCode),
		}
	}

	return IntegrationResult{Name: spec.Name, Status: IntegrationHealthy}
}
