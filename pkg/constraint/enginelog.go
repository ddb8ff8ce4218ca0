package constraint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jhmac/elon/internal/fsatomic"
)

// LogStore persists an EngineLog to a single JSON file under dataDir,
// rewritten atomically on every save. The spec's ordering guarantee —
// "at most one cycle in flight" — means this store does not itself
// serialize writers; the Scheduler is the single caller.
type LogStore struct {
	path string
}

// OpenLog returns a LogStore backed by path, initializing an empty log if
// none exists yet.
func OpenLog(path string) (*LogStore, error) {
	s := &LogStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.Save(&EngineLog{ModeOverride: ""}); err != nil {
			return nil, fmt.Errorf("constraint: initializing %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("constraint: stat %s: %w", path, err)
	}
	return s, nil
}

// Load reads the current engine log.
func (s *LogStore) Load() (*EngineLog, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &EngineLog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("constraint: reading %s: %w", s.path, err)
	}
	var log EngineLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("constraint: decoding %s: %w", s.path, err)
	}
	return &log, nil
}

// Save rewrites the entire engine log atomically.
func (s *LogStore) Save(log *EngineLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("constraint: marshaling engine log: %w", err)
	}
	return fsatomic.WriteFile(s.path, data, 0o644)
}
