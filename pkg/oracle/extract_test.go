package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_FencedJSONBlock(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"status\": \"stuck\", \"reason\": \"need info\"}\n```\nThanks."
	got, err := Extract(raw)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status": "stuck", "reason": "need info"}`, got)
}

func TestExtract_BalancedBraceSpan(t *testing.T) {
	raw := `I think the fix is {"status": "change", "edit": {"file": "a.ts", "oldText": "x", "newText": "y"}} — let me know.`
	got, err := Extract(raw)
	assert.NoError(t, err)
	assert.Contains(t, got, `"status": "change"`)
}

func TestExtract_BraceSpanIgnoresBracesInsideStrings(t *testing.T) {
	raw := `{"status": "stuck", "reason": "saw a stray } in the source"}`
	got, err := Extract(raw)
	assert.NoError(t, err)
	assert.JSONEq(t, raw, got)
}

func TestExtract_RawJSON(t *testing.T) {
	raw := `{"status": "SPEC_COMPLETE"}`
	got, err := Extract(raw)
	assert.NoError(t, err)
	assert.JSONEq(t, raw, got)
}

func TestExtract_NoJSONReturnsError(t *testing.T) {
	_, err := Extract("I cannot help with that request.")
	assert.Error(t, err)
}

func TestExtract_PrefersFencedBlockOverBraceSpan(t *testing.T) {
	raw := "junk { not json\n```json\n{\"status\": \"dry-run\", \"reason\": \"testing\"}\n```"
	got, err := Extract(raw)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status": "dry-run", "reason": "testing"}`, got)
}
