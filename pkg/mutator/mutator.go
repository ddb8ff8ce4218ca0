// Package mutator implements the Atomic Mutator: the only code path
// allowed to create or change files in the host application's source
// tree. Every mutation is backed up before it happens and every batch
// rolls back completely on its first failure.
package mutator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhmac/elon/pkg/safety"
	"github.com/jhmac/elon/pkg/taxonomy"
)

// Change is a single-occurrence text replacement within an existing file.
type Change struct {
	File    string
	OldText string
	NewText string
}

// Create is a brand-new file.
type Create struct {
	File    string
	Content string
}

// BatchOp is a single entry in an applyBatch call — exactly one of Change
// or Create is set.
type BatchOp struct {
	Change *Change
	Create *Create
}

// Result is returned by every mutating operation.
type Result struct {
	Success        bool
	Error          string
	BackupPath     string // set for Change; empty for Create (rollback = delete)
	AtomicRollback bool   // set on applyBatch when a later failure rolled this op back too
}

// Mutator is the Atomic Mutator. repoRoot is the repository it mutates;
// backupDir is where pre-mutation originals are stashed (dataDir/backups).
type Mutator struct {
	repoRoot  string
	backupDir string
	kernel    *safety.Kernel
}

// New constructs a Mutator bound to a Safety Kernel. Every mutation is
// checked against kernel before it touches disk.
func New(repoRoot, backupDir string, kernel *safety.Kernel) *Mutator {
	return &Mutator{repoRoot: repoRoot, backupDir: backupDir, kernel: kernel}
}

// ApplyChange reads file, finds oldText as either an exact substring or a
// unique line-trimmed fuzzy match, backs the file up, and replaces exactly
// one occurrence with newText. It fails if oldText isn't found, matches
// ambiguously, the path isn't safe, or the file is missing.
func (m *Mutator) ApplyChange(c Change) Result {
	if ok, reason := m.kernel.MayMutate(c.File); !ok {
		return fail(taxonomy.Newf(taxonomy.KindSafetyViolation, "%s: %s", c.File, reason))
	}

	absPath := filepath.Join(m.repoRoot, c.File)
	original, err := os.ReadFile(absPath)
	if err != nil {
		return fail(taxonomy.Newf(taxonomy.KindValidationFailed, "read %s: %v", c.File, err))
	}

	newContent, err := replaceOnce(string(original), c.OldText, c.NewText)
	if err != nil {
		return fail(taxonomy.New(taxonomy.KindValidationFailed, err))
	}

	backupPath, err := m.backup(c.File, original)
	if err != nil {
		return fail(taxonomy.Newf(taxonomy.KindQueueIO, "backing up %s: %v", c.File, err))
	}

	if err := os.WriteFile(absPath, []byte(newContent), 0o644); err != nil {
		return fail(taxonomy.Newf(taxonomy.KindValidationFailed, "write %s: %v", c.File, err))
	}

	if err := ValidateSyntax(c.File, newContent); err != nil {
		_ = os.WriteFile(absPath, original, 0o644)
		return fail(taxonomy.New(taxonomy.KindValidationFailed, err))
	}

	return Result{Success: true, BackupPath: backupPath}
}

// CreateFile refuses if file already exists; otherwise it creates parent
// directories, writes content, then runs syntactic validation. A
// validation failure deletes the file it just created and reports.
func (m *Mutator) CreateFile(c Create) Result {
	if ok, reason := m.kernel.MayMutate(c.File); !ok {
		return fail(taxonomy.Newf(taxonomy.KindSafetyViolation, "%s: %s", c.File, reason))
	}

	absPath := filepath.Join(m.repoRoot, c.File)
	if _, err := os.Stat(absPath); err == nil {
		return fail(taxonomy.Newf(taxonomy.KindValidationFailed, "%s already exists", c.File))
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fail(taxonomy.Newf(taxonomy.KindValidationFailed, "mkdir for %s: %v", c.File, err))
	}
	if err := os.WriteFile(absPath, []byte(c.Content), 0o644); err != nil {
		return fail(taxonomy.Newf(taxonomy.KindValidationFailed, "write %s: %v", c.File, err))
	}

	if err := ValidateSyntax(c.File, c.Content); err != nil {
		_ = os.Remove(absPath)
		return fail(taxonomy.New(taxonomy.KindValidationFailed, err))
	}

	return Result{Success: true}
}

// ApplyBatch applies ops in order, backing up every change target before
// any op in the batch runs. On the first failure, every previously applied
// op in this batch is rolled back — changed files are restored from their
// backups, created files are deleted — and the failing entry's Result has
// AtomicRollback set.
func (m *Mutator) ApplyBatch(ops []BatchOp) []Result {
	results := make([]Result, len(ops))

	type applied struct {
		index      int
		file       string
		backupPath string // "" means this was a Create (rollback = delete)
	}
	var appliedOps []applied

	rollbackAll := func() {
		for i := len(appliedOps) - 1; i >= 0; i-- {
			a := appliedOps[i]
			absPath := filepath.Join(m.repoRoot, a.file)
			if a.backupPath == "" {
				_ = os.Remove(absPath)
			} else {
				if data, err := os.ReadFile(a.backupPath); err == nil {
					_ = os.WriteFile(absPath, data, 0o644)
				}
			}
			results[a.index].AtomicRollback = true
			results[a.index].Success = false
		}
	}

	for i, op := range ops {
		switch {
		case op.Change != nil:
			r := m.ApplyChange(*op.Change)
			results[i] = r
			if !r.Success {
				rollbackAll()
				return results
			}
			appliedOps = append(appliedOps, applied{index: i, file: op.Change.File, backupPath: r.BackupPath})

		case op.Create != nil:
			r := m.CreateFile(*op.Create)
			results[i] = r
			if !r.Success {
				rollbackAll()
				return results
			}
			appliedOps = append(appliedOps, applied{index: i, file: op.Create.File, backupPath: ""})

		default:
			results[i] = fail(taxonomy.Newf(taxonomy.KindValidationFailed, "batch entry %d has neither Change nor Create", i))
			rollbackAll()
			return results
		}
	}

	return results
}

// RevertResults undoes a set of previously successful Results against
// their corresponding files — restoring a Change from its BackupPath, or
// deleting a Create. It is used by callers (the Spec Executor) that apply
// mutations, run a separate validation step afterward, and need to roll
// back on a validation failure that the Mutator itself had no way to see.
func (m *Mutator) RevertResults(files []string, results []Result) {
	for i, r := range results {
		if i >= len(files) || !r.Success {
			continue
		}
		absPath := filepath.Join(m.repoRoot, files[i])
		if r.BackupPath == "" {
			_ = os.Remove(absPath)
			continue
		}
		if data, err := os.ReadFile(r.BackupPath); err == nil {
			_ = os.WriteFile(absPath, data, 0o644)
		}
	}
}

func fail(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// backup writes original content to a timestamped sibling path under
// backupDir, keyed on a flattened version of file's path, and returns the
// backup's absolute path.
func (m *Mutator) backup(file string, original []byte) (string, error) {
	flat := strings.ReplaceAll(file, string(filepath.Separator), "_")
	flat = strings.ReplaceAll(flat, "/", "_")
	name := fmt.Sprintf("%s.%d", flat, time.Now().UnixMilli())
	path := filepath.Join(m.backupDir, name)

	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, original, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// replaceOnce finds oldText in content, either as an exact substring or as
// a unique line-trimmed fuzzy match, and replaces exactly one occurrence.
func replaceOnce(content, oldText, newText string) (string, error) {
	if strings.Contains(content, oldText) {
		count := strings.Count(content, oldText)
		if count > 1 {
			return "", errors.New("mutator: oldText matches multiple exact occurrences, refusing ambiguous edit")
		}
		return strings.Replace(content, oldText, newText, 1), nil
	}

	return fuzzyReplace(content, oldText, newText)
}

// fuzzyReplace normalizes whitespace line-by-line in both content and
// oldText, and looks for a unique contiguous region of content whose
// trimmed lines equal oldText's trimmed lines. It refuses when there are
// two or more such candidates.
func fuzzyReplace(content, oldText, newText string) (string, error) {
	oldLines := trimmedLines(oldText)
	if len(oldLines) == 0 {
		return "", errors.New("mutator: oldText not found")
	}

	contentLines := strings.Split(content, "\n")
	var matchStarts []int
	for start := 0; start+len(oldLines) <= len(contentLines); start++ {
		matched := true
		for j, wanted := range oldLines {
			if strings.TrimSpace(contentLines[start+j]) != wanted {
				matched = false
				break
			}
		}
		if matched {
			matchStarts = append(matchStarts, start)
		}
	}

	if len(matchStarts) == 0 {
		return "", errors.New("mutator: oldText not found, even with fuzzy line matching")
	}
	if len(matchStarts) >= 2 {
		return "", fmt.Errorf("mutator: oldText matches %d distinct regions, refusing ambiguous edit", len(matchStarts))
	}

	start := matchStarts[0]
	before := contentLines[:start]
	after := contentLines[start+len(oldLines):]
	replaced := append(append(append([]string{}, before...), strings.Split(newText, "\n")...), after...)
	return strings.Join(replaced, "\n"), nil
}

func trimmedLines(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimSpace(l))
	}
	return out
}
