// Package config loads elon's configuration: the governance documents at
// the repository root (AGENTS.md's safePaths/neverTouch policy, GOALS.md's
// mode/phase/roadmap), an optional elon.yaml for engine knobs, and the
// ELON_* environment variables — in that order, each layer overriding the
// defaults beneath it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the knobs named in the external-interfaces section:
// ELON_BUDGET, ELON_MAX_CONSTRAINTS, ELON_CONTINUOUS_MAX_ROUNDS,
// ELON_CONTINUOUS_BUDGET.
const (
	DefaultBudget              = 5.0
	DefaultMaxConstraints      = 3
	DefaultContinuousMaxRounds = 20
	DefaultContinuousBudget    = 25.0
	DefaultMaxNoProgress       = 3
	DefaultDismissalLimit      = 5
)

// EngineConfig holds the engine-wide knobs loadable from elon.yaml and
// overridable by ELON_* environment variables.
type EngineConfig struct {
	Budget              float64  `yaml:"budget"`
	MaxConstraints      int      `yaml:"maxConstraints"`
	ContinuousMaxRounds int      `yaml:"continuousMaxRounds"`
	ContinuousBudget    float64  `yaml:"continuousBudget"`
	MaxNoProgress       int      `yaml:"maxNoProgress"`
	DismissalLimit      int      `yaml:"dismissalLimit"`
	AutoApproveCategory []string `yaml:"autoApproveCategories"`
	OracleEndpoint      string   `yaml:"oracleEndpoint"`
	OracleModel         string   `yaml:"oracleModel"`
}

// DefaultEngineConfig is the built-in baseline merged under whatever
// elon.yaml and the environment provide.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Budget:              DefaultBudget,
		MaxConstraints:      DefaultMaxConstraints,
		ContinuousMaxRounds: DefaultContinuousMaxRounds,
		ContinuousBudget:    DefaultContinuousBudget,
		MaxNoProgress:       DefaultMaxNoProgress,
		DismissalLimit:      DefaultDismissalLimit,
		AutoApproveCategory: []string{"chore", "docs", "test"},
		OracleModel:         "default",
	}
}

// Config is elon's fully resolved configuration.
type Config struct {
	RepoRoot string
	DataDir  string

	Engine     *EngineConfig
	SafePaths  []string
	NeverTouch []string
	Goals      *Goals
}

// Initialize loads and merges every configuration layer: .env, elon.yaml,
// AGENTS.md's policy block, GOALS.md's roadmap block, then ELON_*
// environment overrides — returning a Config ready for use.
func Initialize(repoRoot, dataDir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(repoRoot, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	engine := DefaultEngineConfig()
	if yamlCfg, err := loadEngineYAML(filepath.Join(repoRoot, "elon.yaml")); err != nil {
		return nil, err
	} else if yamlCfg != nil {
		if err := mergo.Merge(engine, yamlCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("config: merging elon.yaml: %w", err)
		}
	}
	applyEnvOverrides(engine)

	policy, err := loadAgentsPolicy(filepath.Join(repoRoot, "AGENTS.md"))
	if err != nil {
		return nil, err
	}

	goals, err := loadGoals(filepath.Join(repoRoot, "GOALS.md"))
	if err != nil {
		return nil, err
	}

	return &Config{
		RepoRoot:   repoRoot,
		DataDir:    dataDir,
		Engine:     engine,
		SafePaths:  policy.SafePaths,
		NeverTouch: policy.NeverTouch,
		Goals:      goals,
	}, nil
}

func loadEngineYAML(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg EngineConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnvOverrides(engine *EngineConfig) {
	if v := os.Getenv("ELON_BUDGET"); v != "" {
		if f, err := parseFloat(v); err == nil {
			engine.Budget = f
		}
	}
	if v := os.Getenv("ELON_MAX_CONSTRAINTS"); v != "" {
		if n, err := parseInt(v); err == nil {
			engine.MaxConstraints = n
		}
	}
	if v := os.Getenv("ELON_CONTINUOUS_MAX_ROUNDS"); v != "" {
		if n, err := parseInt(v); err == nil {
			engine.ContinuousMaxRounds = n
		}
	}
	if v := os.Getenv("ELON_CONTINUOUS_BUDGET"); v != "" {
		if f, err := parseFloat(v); err == nil {
			engine.ContinuousBudget = f
		}
	}
}
