package constraint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLog_InitializesEmptyLogWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elon-log.json")
	store, err := OpenLog(path)
	require.NoError(t, err)

	log, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, log.Current)
	assert.Empty(t, log.History)
}

func TestLogStore_SaveAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elon-log.json")
	store, err := OpenLog(path)
	require.NoError(t, err)

	log := &EngineLog{ConsecutiveFixCycles: 2, LastMode: ModeFix}
	require.NoError(t, store.Save(log))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.ConsecutiveFixCycles)
	assert.Equal(t, ModeFix, reloaded.LastMode)
}
