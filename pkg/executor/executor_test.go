package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhmac/elon/pkg/mutator"
	"github.com/jhmac/elon/pkg/oracle"
	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedOracle struct {
	replies []string
	calls   int
}

func (s *scriptedOracle) Call(ctx context.Context, prompt string) (oracle.Response, error) {
	if s.calls >= len(s.replies) {
		return oracle.Response{}, assertNoMoreCalls{}
	}
	text := s.replies[s.calls]
	s.calls++
	return oracle.Response{Text: text, InputTokens: 10, OutputTokens: 5, Model: "test-model"}, nil
}

type assertNoMoreCalls struct{}

func (assertNoMoreCalls) Error() string { return "scriptedOracle: no more replies scripted" }

func newTestExecutor(t *testing.T, o oracle.Oracle) (*Executor, string) {
	t.Helper()
	repoRoot := t.TempDir()
	backupDir := filepath.Join(t.TempDir(), "backups")
	kernel := safety.NewKernel(
		safety.Policy{SafePaths: []string{"src/**"}},
		safety.DefaultCommandPolicy(),
		nil,
	)
	m := mutator.New(repoRoot, backupDir, kernel)
	return New(o, m, kernel, nil, nil, "test-model"), repoRoot
}

func encodeReply(t *testing.T, v map[string]any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestExecute_CompletesOnSpecComplete(t *testing.T) {
	o := &scriptedOracle{replies: []string{
		encodeReply(t, map[string]any{"status": "SPEC_COMPLETE"}),
	}}
	e, repoRoot := newTestExecutor(t, o)
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "dummy"), nil, 0o644))

	result := e.Execute(context.Background(), &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	assert.Equal(t, StatusCompleted, result.Status)
}

// S4 from the spec: three consecutive stuck replies terminate the spec
// with reason containing "3 consecutive".
func TestExecute_S4_StuckTerminationAfterThreeConsecutive(t *testing.T) {
	stuckReply := encodeReply(t, map[string]any{"status": "stuck", "reason": "need info"})
	o := &scriptedOracle{replies: []string{stuckReply, stuckReply, stuckReply}}
	e, _ := newTestExecutor(t, o)

	result := e.Execute(context.Background(), &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	require.Equal(t, StatusStuck, result.Status)
	assert.Contains(t, result.Reason, "3 consecutive")
	assert.Len(t, result.History, 3)
}

func TestExecute_NonStuckReplyResetsStuckCounter(t *testing.T) {
	stuckReply := encodeReply(t, map[string]any{"status": "stuck", "reason": "need info"})
	dryRunReply := encodeReply(t, map[string]any{"status": "dry-run", "reason": "thinking"})
	completeReply := encodeReply(t, map[string]any{"status": "SPEC_COMPLETE"})
	o := &scriptedOracle{replies: []string{stuckReply, stuckReply, dryRunReply, stuckReply, stuckReply, completeReply}}
	e, _ := newTestExecutor(t, o)

	result := e.Execute(context.Background(), &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	assert.Equal(t, StatusCompleted, result.Status)
}

func TestExecute_AppliesChangeAndLoopsAfterSuccessfulValidation(t *testing.T) {
	changeReply := encodeReply(t, map[string]any{
		"status": "change",
		"edit":   map[string]any{"file": "src/f.ts", "oldText": "return 1;", "newText": "return 2;"},
	})
	completeReply := encodeReply(t, map[string]any{"status": "SPEC_COMPLETE"})
	o := &scriptedOracle{replies: []string{changeReply, completeReply}}
	e, repoRoot := newTestExecutor(t, o)
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "src/f.ts"), []byte("function f() { return 1; }"), 0o644))

	result := e.Execute(context.Background(), &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	assert.Equal(t, StatusCompleted, result.Status)

	data, err := os.ReadFile(filepath.Join(repoRoot, "src/f.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "return 2;")
}

func TestExecute_MaxIterationsExhausted(t *testing.T) {
	dryRunReply := encodeReply(t, map[string]any{"status": "dry-run", "reason": "still thinking"})
	replies := make([]string, 10)
	for i := range replies {
		replies[i] = dryRunReply
	}
	o := &scriptedOracle{replies: replies}
	e, _ := newTestExecutor(t, o)
	e.MaxIterations = 10

	result := e.Execute(context.Background(), &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	assert.Equal(t, StatusMaxIterations, result.Status)
	assert.Len(t, result.History, 10)
}

func TestExecute_OracleUnavailableFailsCleanly(t *testing.T) {
	o := &scriptedOracle{replies: []string{}}
	e, _ := newTestExecutor(t, o)

	result := e.Execute(context.Background(), &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	assert.Equal(t, StatusFailed, result.Status)
}

func TestExecute_CancelledContextStopsBeforeNextOracleCall(t *testing.T) {
	o := &scriptedOracle{replies: []string{encodeReply(t, map[string]any{"status": "dry-run", "reason": "x"})}}
	e, _ := newTestExecutor(t, o)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := e.Execute(ctx, &spec.Specification{ID: "s1", FilePath: "src/f.ts", Description: "d", Action: spec.ActionChange})
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "cancelled")
}
