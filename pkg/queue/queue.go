// Package queue implements the Work Queue: a filesystem-backed,
// multi-bucket pipeline for Specifications. Each bucket is a directory of
// "<spec-id>.json" files; moving a spec between buckets is a temp-write-
// then-rename-then-remove sequence built on internal/fsatomic, so a crash
// mid-move never loses or duplicates a spec beyond what Recover can repair.
package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhmac/elon/internal/fsatomic"
	"github.com/jhmac/elon/pkg/spec"
)

// Bucket names one stage of the pipeline. The zero-value bucket order below
// doubles as pipeline position, used by Recover to resolve duplicates.
type Bucket string

const (
	BucketPending   Bucket = "pending"
	BucketApproved  Bucket = "approved"
	BucketCompleted Bucket = "completed"
	BucketFailed    Bucket = "failed"
	BucketRejected  Bucket = "rejected"
)

// bucketOrder ranks buckets by pipeline position; higher ranks win ties
// during Recover's duplicate resolution, since a spec further along the
// pipeline reflects the more recent, more authoritative state.
var bucketOrder = map[Bucket]int{
	BucketPending:   0,
	BucketApproved:  1,
	BucketCompleted: 2,
	BucketFailed:    2,
	BucketRejected:  2,
}

var allBuckets = []Bucket{BucketPending, BucketApproved, BucketCompleted, BucketFailed, BucketRejected}

// Queue is the filesystem Work Queue rooted at dataDir/queue.
type Queue struct {
	root string
}

// New returns a Queue rooted at dataDir, creating every bucket directory.
func New(dataDir string) (*Queue, error) {
	q := &Queue{root: filepath.Join(dataDir, "queue")}
	for _, b := range allBuckets {
		if err := os.MkdirAll(q.bucketDir(b), 0o755); err != nil {
			return nil, fmt.Errorf("queue: creating bucket %s: %w", b, err)
		}
	}
	return q, nil
}

func (q *Queue) bucketDir(b Bucket) string {
	return filepath.Join(q.root, string(b))
}

func (q *Queue) specPath(b Bucket, id string) string {
	return filepath.Join(q.bucketDir(b), id+".json")
}

// Enqueue writes s into bucket b as a new file. It fails if a spec with
// the same ID already exists there.
func (q *Queue) Enqueue(b Bucket, s *spec.Specification) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("queue: refusing to enqueue invalid spec: %w", err)
	}
	path := q.specPath(b, s.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("queue: spec %s already present in %s", s.ID, b)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshaling spec %s: %w", s.ID, err)
	}
	return fsatomic.WriteFile(path, data, 0o644)
}

// Move transitions spec id from one bucket to another: write the bucket
// file in `to` first, then remove it from `from`. If a crash happens
// between those two steps, the spec is readable from both buckets until
// Recover collapses it down to the more-advanced one.
func (q *Queue) Move(id string, from, to Bucket) error {
	s, err := q.read(from, id)
	if err != nil {
		return fmt.Errorf("queue: moving %s from %s: %w", id, from, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: marshaling spec %s: %w", id, err)
	}
	if err := fsatomic.WriteFile(q.specPath(to, id), data, 0o644); err != nil {
		return fmt.Errorf("queue: writing %s into %s: %w", id, to, err)
	}
	if err := os.Remove(q.specPath(from, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("queue: removing %s from %s after move: %w", id, from, err)
	}
	return nil
}

func (q *Queue) read(b Bucket, id string) (*spec.Specification, error) {
	data, err := os.ReadFile(q.specPath(b, id))
	if err != nil {
		return nil, err
	}
	var s spec.Specification
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding %s/%s.json: %w", b, id, err)
	}
	return &s, nil
}

// Get reads a spec from a specific bucket.
func (q *Queue) Get(b Bucket, id string) (*spec.Specification, error) {
	return q.read(b, id)
}

// List returns every spec currently in bucket b, ordered oldest-first by
// filename (specs are named so lexical order matches creation order). For
// BucketApproved a stable sort by descending Priority.Weight() follows, so
// weight decides first and filename order only breaks ties.
func (q *Queue) List(b Bucket) ([]*spec.Specification, error) {
	entries, err := os.ReadDir(q.bucketDir(b))
	if err != nil {
		return nil, fmt.Errorf("queue: listing %s: %w", b, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	specs := make([]*spec.Specification, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(q.bucketDir(b), name))
		if err != nil {
			slog.Warn("queue: skipping unreadable spec file", "bucket", b, "file", name, "error", err)
			continue
		}
		var s spec.Specification
		if err := json.Unmarshal(data, &s); err != nil {
			slog.Warn("queue: skipping malformed spec file", "bucket", b, "file", name, "error", err)
			continue
		}
		specs = append(specs, &s)
	}

	if b == BucketApproved {
		sort.SliceStable(specs, func(i, j int) bool {
			return specs[i].Priority.Weight() > specs[j].Priority.Weight()
		})
	}
	return specs, nil
}

// Next returns the next spec to execute from BucketApproved — the highest
// weight first, ties broken by FIFO filename order — or nil if it's empty.
func (q *Queue) Next() (*spec.Specification, error) {
	specs, err := q.List(BucketApproved)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, nil
	}
	return specs[0], nil
}

// Depth returns how many specs are currently in bucket b.
func (q *Queue) Depth(b Bucket) (int, error) {
	entries, err := os.ReadDir(q.bucketDir(b))
	if err != nil {
		return 0, fmt.Errorf("queue: depth of %s: %w", b, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// Recover scans every bucket for spec IDs present in more than one bucket
// — the residue of a crash between Move's write-to and remove-from steps
// — and deletes the copies in the less-advanced buckets, keeping the one
// furthest along the pipeline. It is idempotent and safe to call on every
// startup.
func (q *Queue) Recover() error {
	locations := make(map[string][]Bucket)
	for _, b := range allBuckets {
		entries, err := os.ReadDir(q.bucketDir(b))
		if err != nil {
			return fmt.Errorf("queue: recover scanning %s: %w", b, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".json")
			locations[id] = append(locations[id], b)
		}
	}

	for id, buckets := range locations {
		if len(buckets) < 2 {
			continue
		}
		keep := buckets[0]
		for _, b := range buckets[1:] {
			if bucketOrder[b] > bucketOrder[keep] {
				keep = b
			}
		}
		for _, b := range buckets {
			if b == keep {
				continue
			}
			if err := os.Remove(q.specPath(b, id)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("queue: recover removing duplicate %s from %s: %w", id, b, err)
			}
			slog.Info("queue: recovered duplicate spec from crashed move", "spec_id", id, "removed_from", b, "kept_in", keep)
		}
	}
	return nil
}
