package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jhmac/elon/internal/fsatomic"
)

const reportFile = "elon-report-data.json"

// CycleRecord is one runLoop cycle's outcome, appended to the cumulative
// report so a dashboard (or `elon report`) can render a leaderboard of
// constraints solved over time without replaying the engine log.
type CycleRecord struct {
	At             time.Time `json:"at"`
	Mode           string    `json:"mode"`
	ConstraintID   string    `json:"constraintId,omitempty"`
	Outcome        string    `json:"outcome"` // "enqueued", "dismissed", "skipped", "noop"
	SpecsExecuted  int       `json:"specsExecuted"`
	SpecsCompleted int       `json:"specsCompleted"`
	SpecsFailed    int       `json:"specsFailed"`
	Spend          float64   `json:"spend"`
	Reason         string    `json:"reason,omitempty"`
}

// Report is the cumulative history persisted to elon-report-data.json.
type Report struct {
	Cycles []CycleRecord `json:"cycles"`
}

func loadReport(dataDir string) (*Report, error) {
	path := filepath.Join(dataDir, reportFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Report{}, nil
	}
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Scheduler) appendCycleRecord(rec CycleRecord) error {
	report, err := loadReport(s.Config.DataDir)
	if err != nil {
		return err
	}
	report.Cycles = append(report.Cycles, rec)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return fsatomic.WriteFile(filepath.Join(s.Config.DataDir, reportFile), data, 0o644)
}
