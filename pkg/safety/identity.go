package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhmac/elon/internal/fsatomic"
)

// IdentityChange describes a single identity file whose on-disk checksum no
// longer matches the pinned value.
type IdentityChange struct {
	File     string `json:"file"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// IdentityVerification is the result of re-checking every pinned identity
// file against the repository as it stands right now.
type IdentityVerification struct {
	Valid   bool             `json:"valid"`
	Changes []IdentityChange `json:"changes,omitempty"`
}

// IdentityGuard pins a sha256 checksum for each identity file the first time
// it is initialized, and refuses to re-pin except through an explicit
// Acknowledge call. The checksum map is itself persisted under dataDir so a
// tamper detected before a crash is still detected after a restart.
type IdentityGuard struct {
	repoRoot  string
	storePath string
	files     []string
	checksums map[string]string
}

// NewIdentityGuard builds a guard rooted at repoRoot, persisting its pinned
// checksums at storePath (typically dataDir/identity-checksums.json).
func NewIdentityGuard(repoRoot, storePath string, files []string) *IdentityGuard {
	if files == nil {
		files = DefaultIdentityFiles
	}
	return &IdentityGuard{
		repoRoot:  repoRoot,
		storePath: storePath,
		files:     files,
		checksums: make(map[string]string),
	}
}

// Initialize loads a previously pinned checksum map if one exists, or
// computes and pins one now (first run). It never overwrites an existing
// pinned value — only Acknowledge does that.
func (g *IdentityGuard) Initialize() error {
	if existing, err := g.load(); err == nil {
		g.checksums = existing
		return nil
	}

	computed, err := g.computeAll()
	if err != nil {
		return fmt.Errorf("safety: computing initial identity checksums: %w", err)
	}
	g.checksums = computed
	return g.persist()
}

// Verify recomputes every identity file's checksum and compares it against
// the pinned value. A file that is missing on disk but was pinned is
// reported as a change with Actual == "" so callers can distinguish
// deletion from modification.
func (g *IdentityGuard) Verify() (IdentityVerification, error) {
	var changes []IdentityChange
	for _, name := range g.files {
		expected, pinned := g.checksums[name]
		if !pinned {
			continue
		}
		actual, err := g.checksum(name)
		if err != nil {
			actual = ""
		}
		if actual != expected {
			changes = append(changes, IdentityChange{File: name, Expected: expected, Actual: actual})
		}
	}
	return IdentityVerification{Valid: len(changes) == 0, Changes: changes}, nil
}

// Acknowledge re-pins every identity file's checksum to its current on-disk
// value. This is the only way the guard accepts a changed identity file —
// it must be an explicit operator action, never automatic.
func (g *IdentityGuard) Acknowledge() error {
	computed, err := g.computeAll()
	if err != nil {
		return fmt.Errorf("safety: recomputing identity checksums on acknowledge: %w", err)
	}
	g.checksums = computed
	return g.persist()
}

func (g *IdentityGuard) computeAll() (map[string]string, error) {
	out := make(map[string]string, len(g.files))
	for _, name := range g.files {
		sum, err := g.checksum(name)
		if err != nil {
			if os.IsNotExist(err) {
				// A missing identity file at install time is not pinned;
				// it becomes trackable once it is created.
				continue
			}
			return nil, err
		}
		out[name] = sum
	}
	return out, nil
}

func (g *IdentityGuard) checksum(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(g.repoRoot, name))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (g *IdentityGuard) persist() error {
	data, err := json.MarshalIndent(g.checksums, "", "  ")
	if err != nil {
		return fmt.Errorf("safety: marshal identity checksums: %w", err)
	}
	return fsatomic.WriteFile(g.storePath, data, 0o644)
}

func (g *IdentityGuard) load() (map[string]string, error) {
	data, err := os.ReadFile(g.storePath)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("safety: unmarshal identity checksums: %w", err)
	}
	return m, nil
}
