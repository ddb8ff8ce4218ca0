package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPOracle is a reference Oracle implementation that POSTs a prompt to a
// JSON request/response endpoint. It exists to give the rest of the
// system something concrete to run against; the real LLM transport is
// out of scope.
type HTTPOracle struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPOracle constructs an HTTPOracle with a bounded per-call timeout.
func NewHTTPOracle(endpoint, apiKey, model string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type httpOracleRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type httpOracleResponse struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
}

// Call sends prompt to the configured endpoint and returns its text and
// token counts. A non-2xx status or transport failure is returned as an
// error; callers are expected to classify it as OracleUnavailable.
func (o *HTTPOracle) Call(ctx context.Context, prompt string) (Response, error) {
	body, err := json.Marshal(httpOracleRequest{Model: o.model, Prompt: prompt})
	if err != nil {
		return Response{}, fmt.Errorf("oracle: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("oracle: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("oracle: call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("oracle: call returned status %d", resp.StatusCode)
	}

	var out httpOracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("oracle: decoding response: %w", err)
	}

	return Response{
		Text:         out.Text,
		InputTokens:  out.InputTokens,
		OutputTokens: out.OutputTokens,
		Model:        o.model,
	}, nil
}
