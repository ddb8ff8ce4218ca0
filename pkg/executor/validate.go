package executor

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/jhmac/elon/pkg/spec"
)

const testCommandTimeout = 60 * time.Second
const healthProbeInterval = 2 * time.Second
const crashWatchWindow = 5 * time.Second

// runValidationPolicy runs s's optional test command and optional runtime
// health check, in that order. A network transport error while polling
// the health URL is treated as "not yet healthy" rather than terminal,
// until the timeout budget itself is exhausted.
func (e *Executor) runValidationPolicy(s *spec.Specification) error {
	if s.TestCommand != "" {
		if err := e.runTestCommand(s.TestCommand); err != nil {
			return fmt.Errorf("test command failed: %w", err)
		}
	}

	if s.RuntimeValidation != nil {
		if err := e.runRuntimeValidation(s.RuntimeValidation); err != nil {
			return fmt.Errorf("runtime validation failed: %w", err)
		}
	}

	return nil
}

func (e *Executor) runTestCommand(cmdline string) error {
	if decision := e.Kernel.CommandSafe(cmdline); !decision.Allowed {
		return fmt.Errorf("command %q rejected by safety kernel: %s", cmdline, decision.Reason)
	}

	ctx, cancel := context.WithTimeout(context.Background(), testCommandTimeout)
	defer cancel()

	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return fmt.Errorf("empty test command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if isNoTestSpecified(string(output)) {
		return nil
	}
	return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
}

// runRuntimeValidation optionally starts the spec's process and then polls
// healthUrl every 2s until timeoutMs elapses, accepting any 2xx/3xx
// response as healthy.
func (e *Executor) runRuntimeValidation(rv *spec.RuntimeValidation) error {
	if rv.StartCommand != "" {
		if decision := e.Kernel.CommandSafe(rv.StartCommand); !decision.Allowed {
			return fmt.Errorf("start command %q rejected by safety kernel: %s", rv.StartCommand, decision.Reason)
		}
		fields := strings.Fields(rv.StartCommand)
		if len(fields) > 0 {
			startCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cmd := exec.CommandContext(startCtx, fields[0], fields[1:]...)
			if err := cmd.Start(); err == nil {
				go func() { _ = cmd.Wait() }()
			}
			time.Sleep(crashWatchWindow)
		}
	}

	deadline := time.Now().Add(time.Duration(rv.TimeoutMs) * time.Millisecond)
	client := &http.Client{Timeout: healthProbeInterval}

	for {
		req, err := http.NewRequest(http.MethodGet, rv.HealthURL, nil)
		if err == nil {
			resp, doErr := client.Do(req)
			if doErr == nil {
				resp.Body.Close()
				if resp.StatusCode >= 200 && resp.StatusCode < 400 {
					return nil
				}
			}
			// A transport error or non-2xx/3xx status just means "not yet
			// healthy" — keep polling until the deadline.
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("health probe at %s did not succeed within %dms", rv.HealthURL, rv.TimeoutMs)
		}
		time.Sleep(healthProbeInterval)
	}
}
