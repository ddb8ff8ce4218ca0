package retention

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PruneBackups deletes backup files in dir beyond the most recent keep,
// ordered by the unix-millisecond suffix the Mutator stamps onto every
// backup filename ("<flat-path>.<unix-ms>"). Files without a parseable
// suffix are treated as oldest and pruned first. Returns the count removed.
func PruneBackups(dir string, keep int) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	type backup struct {
		name string
		ms   int64
	}
	backups := make([]backup, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		backups = append(backups, backup{name: e.Name(), ms: backupTimestamp(e.Name())})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].ms > backups[j].ms })

	if len(backups) <= keep {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[keep:] {
		if err := os.Remove(filepath.Join(dir, b.name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

// backupTimestamp extracts the unix-millisecond suffix from a backup
// filename, returning 0 (oldest) if the name doesn't carry one.
func backupTimestamp(name string) int64 {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return 0
	}
	ms, err := strconv.ParseInt(name[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return ms
}
