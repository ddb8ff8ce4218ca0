package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// fencedYAMLBlock matches the first ```yaml ... ``` fenced code block in a
// markdown document. AGENTS.md expresses its safePaths/neverTouch policy
// this way: prose for human readers, with the machine-readable rule set
// living in one fenced block so elon never has to parse free-form markdown
// for something security-relevant.
var fencedYAMLBlock = regexp.MustCompile("(?s)```ya?ml\\s*\\n(.*?)```")

// agentsPolicy is the shape of AGENTS.md's fenced policy block.
type agentsPolicy struct {
	SafePaths  []string `yaml:"safePaths"`
	NeverTouch []string `yaml:"neverTouch"`
}

// loadAgentsPolicy reads AGENTS.md and extracts its safePaths/neverTouch
// policy from the first fenced YAML block. A missing AGENTS.md yields an
// empty policy (the Safety Kernel then denies every path by default, per
// PathSafe's fixed rule order) rather than an error, since elon must be
// able to start up before any identity files exist.
func loadAgentsPolicy(path string) (*agentsPolicy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &agentsPolicy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	match := fencedYAMLBlock.FindSubmatch(data)
	if match == nil {
		return &agentsPolicy{}, nil
	}

	var p agentsPolicy
	if err := yaml.Unmarshal(match[1], &p); err != nil {
		return nil, fmt.Errorf("config: parsing policy block in %s: %w", path, err)
	}
	return &p, nil
}
