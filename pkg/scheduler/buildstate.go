package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jhmac/elon/internal/fsatomic"
)

const buildStateFile = "build-state.json"

// BuildState tracks which roadmap milestone a build cycle last proposed,
// so the next build cycle's prompt can move on to the next entry instead
// of re-proposing the same one.
type BuildState struct {
	Phase          string    `json:"phase"`
	MilestoneIndex int       `json:"milestoneIndex"`
	LastMilestone  string    `json:"lastMilestone,omitempty"`
	LastProposedAt time.Time `json:"lastProposedAt,omitempty"`
}

func loadBuildState(dataDir string) (*BuildState, error) {
	path := filepath.Join(dataDir, buildStateFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &BuildState{}, nil
	}
	if err != nil {
		return nil, err
	}
	var bs BuildState
	if err := json.Unmarshal(data, &bs); err != nil {
		return nil, err
	}
	return &bs, nil
}

func saveBuildState(dataDir string, bs *BuildState) error {
	data, err := json.MarshalIndent(bs, "", "  ")
	if err != nil {
		return err
	}
	return fsatomic.WriteFile(filepath.Join(dataDir, buildStateFile), data, 0o644)
}

// advanceMilestone returns the next roadmap entry to propose and records
// it, wrapping back to the start once the roadmap is exhausted.
func advanceMilestone(dataDir string, roadmap []string, phase string) (string, error) {
	if len(roadmap) == 0 {
		return "", nil
	}
	bs, err := loadBuildState(dataDir)
	if err != nil {
		return "", err
	}
	if bs.Phase != phase {
		bs.Phase = phase
		bs.MilestoneIndex = 0
	}
	idx := bs.MilestoneIndex % len(roadmap)
	milestone := roadmap[idx]
	bs.LastMilestone = milestone
	bs.LastProposedAt = time.Now()
	bs.MilestoneIndex = idx + 1
	if err := saveBuildState(dataDir, bs); err != nil {
		return "", err
	}
	return milestone, nil
}
