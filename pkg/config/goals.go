package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Goals is the shape of GOALS.md's fenced policy block: the engine's
// current operating mode, its active phase, and a free-form roadmap that
// the Scheduler hands to the Constraint Engine's build cycle one entry at
// a time and includes in the fix cycle's goals text.
type Goals struct {
	Mode    string   `yaml:"mode"`
	Phase   string   `yaml:"phase"`
	Roadmap []string `yaml:"roadmap"`
}

// loadGoals reads GOALS.md and extracts its mode/phase/roadmap from the
// first fenced YAML block, using the same convention as AGENTS.md. A
// missing GOALS.md defaults to fix mode, matching the engine's
// conservative default of repairing before building.
func loadGoals(path string) (*Goals, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Goals{Mode: "fix"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	match := fencedYAMLBlock.FindSubmatch(data)
	if match == nil {
		return &Goals{Mode: "fix"}, nil
	}

	var g Goals
	if err := yaml.Unmarshal(match[1], &g); err != nil {
		return nil, fmt.Errorf("config: parsing goals block in %s: %w", path, err)
	}
	if g.Mode == "" {
		g.Mode = "fix"
	}
	return &g, nil
}
