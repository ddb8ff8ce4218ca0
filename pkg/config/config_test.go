package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitialize_UsesBuiltinDefaultsWhenNothingPresent(t *testing.T) {
	repoRoot := t.TempDir()
	cfg, err := Initialize(repoRoot, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultBudget, cfg.Engine.Budget)
	assert.Equal(t, DefaultMaxConstraints, cfg.Engine.MaxConstraints)
	assert.Equal(t, "fix", cfg.Goals.Mode)
	assert.Empty(t, cfg.SafePaths)
}

func TestInitialize_ParsesAgentsPolicyFencedBlock(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "AGENTS.md"), "# Agent policy\n\n"+
		"```yaml\n"+
		"safePaths:\n  - \"src/**\"\n  - \"tests/**\"\n"+
		"neverTouch:\n  - \"src/secrets/**\"\n"+
		"```\n")

	cfg, err := Initialize(repoRoot, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"src/**", "tests/**"}, cfg.SafePaths)
	assert.Equal(t, []string{"src/secrets/**"}, cfg.NeverTouch)
}

func TestInitialize_ParsesGoalsFencedBlock(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "GOALS.md"), "# Goals\n\n"+
		"```yaml\n"+
		"mode: build\nphase: scaffolding\nroadmap:\n  - \"add auth\"\n"+
		"```\n")

	cfg, err := Initialize(repoRoot, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.Goals.Mode)
	assert.Equal(t, "scaffolding", cfg.Goals.Phase)
	assert.Equal(t, []string{"add auth"}, cfg.Goals.Roadmap)
}

func TestInitialize_ElonYAMLOverridesDefaultsButNotEnv(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "elon.yaml"), "budget: 12.5\nmaxConstraints: 7\n")

	t.Setenv("ELON_BUDGET", "")
	t.Setenv("ELON_MAX_CONSTRAINTS", "")

	cfg, err := Initialize(repoRoot, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 12.5, cfg.Engine.Budget)
	assert.Equal(t, 7, cfg.Engine.MaxConstraints)
}

func TestInitialize_EnvOverridesElonYAML(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "elon.yaml"), "budget: 12.5\n")
	t.Setenv("ELON_BUDGET", "99.0")

	cfg, err := Initialize(repoRoot, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 99.0, cfg.Engine.Budget)
}

func TestInitialize_ExpandsEnvVarsInElonYAML(t *testing.T) {
	repoRoot := t.TempDir()
	t.Setenv("ELON_TEST_ORACLE_MODEL", "gpt-test")
	writeFile(t, filepath.Join(repoRoot, "elon.yaml"), "oracleModel: ${ELON_TEST_ORACLE_MODEL}\n")

	cfg, err := Initialize(repoRoot, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", cfg.Engine.OracleModel)
}
