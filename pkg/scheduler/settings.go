package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jhmac/elon/internal/fsatomic"
)

const settingsFile = "elon-settings.json"

// Settings is the operator-editable per-category auto-approve policy,
// persisted separately from elon.yaml since it is expected to change
// between cycles (toggled from a dashboard) rather than at deploy time.
type Settings struct {
	AutoApproveCategory map[string]bool `json:"autoApproveCategory"`
	UnlockedCategories  map[string]bool `json:"unlockedCategories"`
}

func loadSettings(dataDir string) (*Settings, error) {
	path := filepath.Join(dataDir, settingsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{AutoApproveCategory: map[string]bool{}, UnlockedCategories: map[string]bool{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.AutoApproveCategory == nil {
		s.AutoApproveCategory = map[string]bool{}
	}
	if s.UnlockedCategories == nil {
		s.UnlockedCategories = map[string]bool{}
	}
	return &s, nil
}

// SaveSettings persists an operator's category toggles so they survive a
// process restart.
func SaveSettings(dataDir string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return fsatomic.WriteFile(filepath.Join(dataDir, settingsFile), data, 0o644)
}

// refreshEngineSettings reloads elon-settings.json and applies it to the
// engine's routing maps, folding in the configured baseline categories so
// a missing settings file still honours elon.yaml's defaults.
func (s *Scheduler) refreshEngineSettings() error {
	settings, err := loadSettings(s.Config.DataDir)
	if err != nil {
		return err
	}
	merged := map[string]bool{}
	for _, c := range s.Config.Engine.AutoApproveCategory {
		merged[c] = true
	}
	for c, on := range settings.AutoApproveCategory {
		merged[c] = on
	}
	s.Engine.AutoApproveCategory = merged
	s.Engine.UnlockedCategories = settings.UnlockedCategories
	return nil
}
