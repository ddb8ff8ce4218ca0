package observer

import (
	"context"
	"net/http"
	"time"
)

const healthProbeTimeout = 10 * time.Second

// ProbeHealth issues a single bounded GET against url and reports whether
// the host application answered with a 2xx/3xx status.
func ProbeHealth(ctx context.Context, client *http.Client, url string) HealthProbeResult {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthProbeResult{Healthy: false, Error: err.Error()}
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return HealthProbeResult{Healthy: false, Latency: latency, Error: err.Error()}
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode < 400
	return HealthProbeResult{Healthy: healthy, StatusCode: resp.StatusCode, Latency: latency}
}
