package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIdentityGuard_InitializeThenVerifyClean(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "safePaths:\n  - src/**\n")

	guard := NewIdentityGuard(dir, filepath.Join(dir, "data", "identity-checksums.json"), []string{"AGENTS.md"})
	require.NoError(t, guard.Initialize())

	v, err := guard.Verify()
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Changes)
}

func TestIdentityGuard_DetectsTamper(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "original")

	guard := NewIdentityGuard(dir, filepath.Join(dir, "data", "identity-checksums.json"), []string{"AGENTS.md"})
	require.NoError(t, guard.Initialize())

	writeFile(t, filepath.Join(dir, "AGENTS.md"), "tampered byte changed")

	v, err := guard.Verify()
	require.NoError(t, err)
	assert.False(t, v.Valid)
	require.Len(t, v.Changes, 1)
	assert.Equal(t, "AGENTS.md", v.Changes[0].File)
	assert.NotEqual(t, v.Changes[0].Expected, v.Changes[0].Actual)
}

func TestIdentityGuard_AcknowledgeClearsTamper(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "v1")

	guard := NewIdentityGuard(dir, filepath.Join(dir, "data", "identity-checksums.json"), []string{"AGENTS.md"})
	require.NoError(t, guard.Initialize())

	writeFile(t, filepath.Join(dir, "AGENTS.md"), "v2")
	v, _ := guard.Verify()
	require.False(t, v.Valid)

	require.NoError(t, guard.Acknowledge())
	v2, err := guard.Verify()
	require.NoError(t, err)
	assert.True(t, v2.Valid)
}

func TestIdentityGuard_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "data", "identity-checksums.json")
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "pinned")

	guard1 := NewIdentityGuard(dir, storePath, []string{"AGENTS.md"})
	require.NoError(t, guard1.Initialize())

	writeFile(t, filepath.Join(dir, "AGENTS.md"), "changed-after-restart")

	guard2 := NewIdentityGuard(dir, storePath, []string{"AGENTS.md"})
	require.NoError(t, guard2.Initialize())
	v, err := guard2.Verify()
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestKernel_MayMutate_HaltsOnTamper(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AGENTS.md"), "v1")

	guard := NewIdentityGuard(dir, filepath.Join(dir, "data", "identity-checksums.json"), []string{"AGENTS.md"})
	require.NoError(t, guard.Initialize())

	kernel := NewKernel(Policy{SafePaths: []string{"src/**"}}, DefaultCommandPolicy(), guard)

	ok, _ := kernel.MayMutate("src/index.ts")
	assert.True(t, ok)

	writeFile(t, filepath.Join(dir, "AGENTS.md"), "tampered")
	ok2, reason := kernel.MayMutate("src/index.ts")
	assert.False(t, ok2)
	assert.Contains(t, reason, "tampered")

	require.NoError(t, kernel.AcknowledgeIdentity())
	ok3, _ := kernel.MayMutate("src/index.ts")
	assert.True(t, ok3)
}
