package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhmac/elon/pkg/knownerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneBackups_KeepsOnlyMostRecentN(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.ts.100", "a.ts.300", "a.ts.200", "a.ts.400"}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}

	removed, err := PruneBackups(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names2 []string
	for _, e := range remaining {
		names2 = append(names2, e.Name())
	}
	assert.ElementsMatch(t, []string{"a.ts.300", "a.ts.400"}, names2)
}

func TestPruneBackups_NoopWhenUnderLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts.100"), []byte("x"), 0o644))

	removed, err := PruneBackups(dir, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestPruneBackups_MissingDirIsNotAnError(t *testing.T) {
	removed, err := PruneBackups(filepath.Join(t.TempDir(), "missing"), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestPruneKnownErrors_RemovesStaleIssuesOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known-errors.json")
	store, err := knownerrors.Open(path)
	require.NoError(t, err)

	now := time.Now()
	_, err = store.Record("a.ts", "lint", "unused var", now.Add(-100*24*time.Hour))
	require.NoError(t, err)
	_, err = store.Record("b.ts", "lint", "unused import", now)
	require.NoError(t, err)

	removed, err := PruneKnownErrors(path, 30*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	issues, err := store.All()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "b.ts", issues[0].File)
}

func TestService_RunOnceEnforcesBothPolicies(t *testing.T) {
	backupDir := t.TempDir()
	for _, n := range []string{"a.ts.1", "a.ts.2", "a.ts.3"} {
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, n), []byte("x"), 0o644))
	}
	errPath := filepath.Join(t.TempDir(), "known-errors.json")
	store, err := knownerrors.Open(errPath)
	require.NoError(t, err)
	_, err = store.Record("a.ts", "lint", "stale", time.Now().Add(-365*24*time.Hour))
	require.NoError(t, err)

	svc := NewService(Config{
		BackupDir:        backupDir,
		KnownErrorsPath:  errPath,
		MaxBackups:       1,
		KnownErrorMaxAge: 24 * time.Hour,
	})
	svc.RunOnce()

	remaining, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	issues, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, issues)
}
