// Package knownerrors implements the deduplicated error history described
// in the data directory layout as known-errors.json. Each Observer-
// reported issue is content-hashed so the same defect reported across
// cycles is recognized once; the commit itself is a temp-write-then-
// rename through internal/fsatomic, with a fail-open advisory lock
// serializing concurrent writers on top of that — the store never loses
// an update to a crash, and a lock failure degrades to "maybe interleaved"
// rather than "write refused".
package knownerrors

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhmac/elon/internal/fsatomic"
)

// Issue is one deduplicated entry.
type Issue struct {
	Hash      string    `json:"hash"`
	File      string    `json:"file"`
	Category  string    `json:"category"`
	Summary   string    `json:"summary"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	SeenCount int       `json:"seenCount"`
}

type state struct {
	Issues map[string]Issue `json:"issues"`
}

// Store is the on-disk, content-hash-deduplicated issue history.
type Store struct {
	path string
}

// Open returns a Store backed by path, creating an empty one if it
// doesn't exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.persist(state{Issues: map[string]Issue{}}); err != nil {
			return nil, fmt.Errorf("knownerrors: initializing %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("knownerrors: stat %s: %w", path, err)
	}
	return s, nil
}

// Hash computes the content-address for an issue: file and category pin
// its identity, summary is normalized (trimmed, lowercased) so cosmetic
// wording differences across cycles don't fragment the same defect into
// two entries.
func Hash(file, category, summary string) string {
	normalized := strings.ToLower(strings.TrimSpace(summary))
	sum := sha256.Sum256([]byte(file + "\x00" + category + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}

// Record upserts an issue by its content hash: a new hash is inserted with
// SeenCount 1, an existing one has LastSeen and SeenCount bumped. It
// returns whether this was the first time the issue was seen.
func (s *Store) Record(file, category, summary string, now time.Time) (isNew bool, err error) {
	_, lockErr := fsatomic.WithLock(s.path, func() error {
		st, loadErr := s.load()
		if loadErr != nil {
			return loadErr
		}

		hash := Hash(file, category, summary)
		if existing, ok := st.Issues[hash]; ok {
			existing.LastSeen = now
			existing.SeenCount++
			st.Issues[hash] = existing
			isNew = false
		} else {
			st.Issues[hash] = Issue{
				Hash: hash, File: file, Category: category, Summary: summary,
				FirstSeen: now, LastSeen: now, SeenCount: 1,
			}
			isNew = true
		}

		return s.persist(st)
	})
	return isNew, lockErr
}

// Seen reports whether an issue with this content hash has been recorded
// before, without mutating the store.
func (s *Store) Seen(file, category, summary string) (bool, error) {
	st, err := s.load()
	if err != nil {
		return false, err
	}
	_, ok := st.Issues[Hash(file, category, summary)]
	return ok, nil
}

// PruneOlderThan removes every issue whose LastSeen predates the cutoff
// (now minus maxAge), returning the count removed. It is used by the
// retention service to keep known-errors.json from growing unbounded with
// defects that stopped recurring long ago.
func (s *Store) PruneOlderThan(maxAge time.Duration, now time.Time) (int, error) {
	removed := 0
	_, err := fsatomic.WithLock(s.path, func() error {
		st, loadErr := s.load()
		if loadErr != nil {
			return loadErr
		}
		cutoff := now.Add(-maxAge)
		for hash, issue := range st.Issues {
			if issue.LastSeen.Before(cutoff) {
				delete(st.Issues, hash)
				removed++
			}
		}
		if removed == 0 {
			return nil
		}
		return s.persist(st)
	})
	return removed, err
}

// All returns every known issue.
func (s *Store) All() ([]Issue, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(st.Issues))
	for _, issue := range st.Issues {
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *Store) load() (state, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state{Issues: map[string]Issue{}}, nil
	}
	if err != nil {
		return state{}, fmt.Errorf("knownerrors: reading %s: %w", s.path, err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return state{}, fmt.Errorf("knownerrors: decoding %s: %w", s.path, err)
	}
	if st.Issues == nil {
		st.Issues = map[string]Issue{}
	}
	return st, nil
}

func (s *Store) persist(st state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("knownerrors: marshaling: %w", err)
	}
	return fsatomic.WriteFile(s.path, data, 0o644)
}
