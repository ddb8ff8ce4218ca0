package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReport_EmptyWhenMissing(t *testing.T) {
	r, err := loadReport(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, r.Cycles)
}

func TestAppendCycleRecord_PersistsAcrossLoads(t *testing.T) {
	sched, dataDir := newTestScheduler(t, &scriptedOracle{})
	require.NoError(t, sched.appendCycleRecord(CycleRecord{Mode: "fix", Outcome: "skipped"}))
	require.NoError(t, sched.appendCycleRecord(CycleRecord{Mode: "fix", Outcome: "enqueued", ConstraintID: "c1"}))

	r, err := loadReport(dataDir)
	require.NoError(t, err)
	require.Len(t, r.Cycles, 2)
	assert.Equal(t, "c1", r.Cycles[1].ConstraintID)
}

func TestBuildState_AdvanceMilestoneWrapsAndPersists(t *testing.T) {
	dataDir := t.TempDir()
	roadmap := []string{"m1", "m2"}

	m1, err := advanceMilestone(dataDir, roadmap, "phase-1")
	require.NoError(t, err)
	assert.Equal(t, "m1", m1)

	m2, err := advanceMilestone(dataDir, roadmap, "phase-1")
	require.NoError(t, err)
	assert.Equal(t, "m2", m2)

	m3, err := advanceMilestone(dataDir, roadmap, "phase-1")
	require.NoError(t, err)
	assert.Equal(t, "m1", m3, "roadmap wraps back to the start once exhausted")
}

func TestBuildState_PhaseChangeResetsIndex(t *testing.T) {
	dataDir := t.TempDir()
	roadmap := []string{"m1", "m2"}

	_, err := advanceMilestone(dataDir, roadmap, "phase-1")
	require.NoError(t, err)
	_, err = advanceMilestone(dataDir, roadmap, "phase-1")
	require.NoError(t, err)

	m, err := advanceMilestone(dataDir, roadmap, "phase-2")
	require.NoError(t, err)
	assert.Equal(t, "m1", m, "switching phase restarts the roadmap pointer")
}

func TestWriteLastCrawl_WritesReadableJSON(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, writeLastCrawl(dataDir, nil))
	_, err := filepath.Abs(filepath.Join(dataDir, lastCrawlFile))
	require.NoError(t, err)
}
