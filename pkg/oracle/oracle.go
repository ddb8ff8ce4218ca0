// Package oracle defines the LLM oracle protocol: a request/response
// interface over free text, plus the deterministic three-tier extractor
// that recovers a JSON object from whatever prose an oracle wraps it in.
package oracle

import (
	"context"
	"fmt"
)

// Response is one oracle call's raw result: free text plus the token
// counts needed to charge the cost ledger.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Oracle is the request/response boundary to the external LLM service.
// The actual transport is out of scope; callers depend only on this
// interface.
type Oracle interface {
	Call(ctx context.Context, prompt string) (Response, error)
}

// Extract recovers a single JSON object from raw oracle text by trying,
// in order: a fenced ```json code block, the balanced-brace span starting
// at the first '{', and the raw text itself. It returns the first
// candidate that is valid JSON, or an error if none is.
func Extract(raw string) (string, error) {
	if block, ok := fencedJSONBlock(raw); ok && isValidJSON(block) {
		return block, nil
	}
	if span, ok := balancedBraceSpan(raw); ok && isValidJSON(span) {
		return span, nil
	}
	if isValidJSON(raw) {
		return raw, nil
	}
	return "", fmt.Errorf("oracle: no valid JSON object found in response")
}
