package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhmac/elon/pkg/config"
	"github.com/jhmac/elon/pkg/constraint"
	"github.com/jhmac/elon/pkg/executor"
	"github.com/jhmac/elon/pkg/mutator"
	"github.com/jhmac/elon/pkg/observer"
	"github.com/jhmac/elon/pkg/oracle"
	"github.com/jhmac/elon/pkg/progress"
	"github.com/jhmac/elon/pkg/queue"
	"github.com/jhmac/elon/pkg/retention"
	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/spec"
)

type scriptedOracle struct {
	replies []string
	calls   int
}

func (s *scriptedOracle) Call(ctx context.Context, prompt string) (oracle.Response, error) {
	if s.calls >= len(s.replies) {
		return oracle.Response{Text: `{"action":"skip","reason":"no more scripted replies"}`}, nil
	}
	text := s.replies[s.calls]
	s.calls++
	return oracle.Response{Text: text, InputTokens: 5, OutputTokens: 5, Model: "test"}, nil
}

type fakeLedger struct {
	spent float64
}

func (f *fakeLedger) Charge(model string, inputTokens, outputTokens int) (float64, error) {
	f.spent++
	return 1.0, nil
}
func (f *fakeLedger) Spent() float64 { return f.spent }
func (f *fakeLedger) Remaining(budgetMax float64) float64 {
	r := budgetMax - f.spent
	if r < 0 {
		return 0
	}
	return r
}

func newTestScheduler(t *testing.T, o oracle.Oracle) (*Scheduler, string) {
	t.Helper()
	dataDir := t.TempDir()
	repoRoot := t.TempDir()

	q, err := queue.New(dataDir)
	require.NoError(t, err)
	logStore, err := constraint.OpenLog(filepath.Join(dataDir, "elon-log.json"))
	require.NoError(t, err)
	kernel := safety.NewKernel(safety.Policy{SafePaths: []string{"src/**"}}, safety.DefaultCommandPolicy(), nil)

	engine := constraint.New(o, logStore, q, kernel, nil, nil, "test-model")
	engine.AutoApproveCategory = map[string]bool{"ui": true}

	m := mutator.New(repoRoot, filepath.Join(dataDir, "backups"), kernel)
	exec := executor.New(o, m, kernel, nil, nil, "test-model")
	obs := observer.New(nil, nil)
	ret := retention.NewService(retention.Config{
		BackupDir:        filepath.Join(dataDir, "backups"),
		KnownErrorsPath:  filepath.Join(dataDir, "known-errors.json"),
		MaxBackups:       50,
		KnownErrorMaxAge: 30 * 24 * time.Hour,
	})

	cfg := &config.Config{
		RepoRoot: repoRoot,
		DataDir:  dataDir,
		Engine:   config.DefaultEngineConfig(),
		Goals:    &config.Goals{Mode: "fix"},
	}

	sched := New(cfg, engine, exec, obs, q, nil, ret, progress.New(), observer.Config{})
	return sched, dataDir
}

func TestSingleCycle_StopFlagSkipsCycle(t *testing.T) {
	sched, dataDir := newTestScheduler(t, &scriptedOracle{})
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, StopFlagName), []byte(""), 0o644))

	outcome, err := sched.SingleCycle(context.Background(), 1.0)
	require.NoError(t, err)
	assert.True(t, outcome.Stopped)
}

func TestSingleCycle_EnqueuesAndExecutesApprovedSpec(t *testing.T) {
	fixReply := `{"limitingFactor":{"description":"button misaligned","why":"bad ux","constraintScore":4,"category":"ui"},"plan":[{"step":1,"filePath":"src/button.ts","description":"fix alignment","priority":"medium"}],"completionCriteria":"aligned"}`
	execReply := `{"status":"SPEC_COMPLETE"}`
	sched, dataDir := newTestScheduler(t, &scriptedOracle{replies: []string{fixReply, execReply}})
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "dummy"), nil, 0o644))
	require.NoError(t, SaveSettings(dataDir, &Settings{AutoApproveCategory: map[string]bool{"ui": true}}))

	outcome, err := sched.SingleCycle(context.Background(), 10.0)
	require.NoError(t, err)
	assert.Equal(t, constraint.ModeFix, outcome.Mode)
	assert.Equal(t, 1, outcome.SpecsExecuted)
	assert.Equal(t, 1, outcome.SpecsCompleted)
}

func TestDrainApproved_StopsOnceSubBudgetSpent(t *testing.T) {
	sched, _ := newTestScheduler(t, &scriptedOracle{})
	ledger := &fakeLedger{}
	sched.Ledger = ledger
	sched.Executor = executor.New(
		&scriptedOracle{replies: []string{`{"status":"SPEC_COMPLETE"}`, `{"status":"SPEC_COMPLETE"}`}},
		sched.Executor.Mutator, sched.Executor.Kernel, ledger, nil, "test-model",
	)

	for i := 1; i <= 2; i++ {
		require.NoError(t, sched.Queue.Enqueue(queue.BucketApproved, &spec.Specification{
			ID: fmt.Sprintf("s%d", i), FilePath: "src/a.ts", Description: "d", Action: spec.ActionChange, Priority: "medium", Category: "ui",
		}))
	}

	executed, completed, _ := sched.drainApproved(context.Background(), 0.5)
	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, completed)
}

func TestGetActiveConstraintCounts_ReflectsCurrentConstraintAndQueue(t *testing.T) {
	sched, _ := newTestScheduler(t, &scriptedOracle{})
	log, err := sched.Engine.Log.Load()
	require.NoError(t, err)
	log.Current = &constraint.Constraint{ID: "c1", Score: 9}
	require.NoError(t, sched.Engine.Log.Save(log))

	counts, err := sched.getActiveConstraintCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Critical)
	assert.True(t, counts.Outstanding())
}

func TestRunLoop_StopsOnStopFlag(t *testing.T) {
	sched, dataDir := newTestScheduler(t, &scriptedOracle{replies: []string{`{"action":"skip"}`}})
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, StopFlagName), []byte(""), 0o644))

	out, err := sched.RunLoop(context.Background(), 3, 0, 0)
	require.NoError(t, err)
	assert.True(t, out.Stopped)
	assert.Equal(t, 0, out.CyclesRun)
}

func TestFixAll_StopsWhenNoConstraintsOutstanding(t *testing.T) {
	sched, _ := newTestScheduler(t, &scriptedOracle{})
	out, err := sched.FixAll(context.Background(), 5, 1.0, 1.0, 1)
	require.NoError(t, err)
	assert.True(t, out.AllClear)
	assert.Equal(t, 0, out.RoundsRun)
}

func TestSettings_RoundTripsAndMergesWithConfigDefaults(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, SaveSettings(dataDir, &Settings{AutoApproveCategory: map[string]bool{"ui": true}}))

	loaded, err := loadSettings(dataDir)
	require.NoError(t, err)
	assert.True(t, loaded.AutoApproveCategory["ui"])
}
