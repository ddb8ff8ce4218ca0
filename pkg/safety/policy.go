// Package safety implements the three checks every mutating operation in
// elon must pass before it touches the host application's source tree:
// path safety, identity-file integrity, and command safety. Nothing here
// ever panics or returns only an error — every check returns a structured
// decision so callers can record a failure instead of crashing.
package safety

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIdentityFiles is the set of governance documents elon treats as
// read-only, independent of any glob policy. Concrete deployments may
// override this at install time by setting Policy.IdentityFiles and by
// passing a file list to NewIdentityGuard.
var DefaultIdentityFiles = []string{
	"SOUL.md", "AGENTS.md", "GOALS.md", "HEARTBEAT.md",
	"IDENTITY.md", "USER.md", "TOOLS.md",
}

// Policy is the set of glob rules parsed out of AGENTS.md governing which
// repository-relative paths elon may create or change.
//
// Glob semantics follow doublestar: "**" matches any number of path
// segments (including zero), "*" matches within a single segment. No
// other regex features are supported, matching the spec's glob grammar.
type Policy struct {
	SafePaths     []string
	NeverTouch    []string
	IdentityFiles []string
}

// PathDecision is the structured result of a path-safety check.
type PathDecision struct {
	Safe   bool
	Reason string
}

// PathSafe evaluates p against policy following the spec's fixed rule
// order: traversal, identity files, neverTouch, safePaths, default-deny.
func PathSafe(p string, policy Policy) PathDecision {
	clean := normalize(p)

	if hasTraversal(p) || hasTraversal(clean) {
		return PathDecision{Safe: false, Reason: "path contains a parent-traversal segment"}
	}

	identity := policy.IdentityFiles
	if identity == nil {
		identity = DefaultIdentityFiles
	}
	base := filepath.Base(clean)
	for _, name := range identity {
		if base == name || clean == name {
			return PathDecision{Safe: false, Reason: "path is a protected identity file"}
		}
	}

	for _, pattern := range policy.NeverTouch {
		if matches(pattern, clean) {
			return PathDecision{Safe: false, Reason: "path matches a neverTouch pattern: " + pattern}
		}
	}

	for _, pattern := range policy.SafePaths {
		if matches(pattern, clean) {
			return PathDecision{Safe: true, Reason: "matched safePaths pattern: " + pattern}
		}
	}

	return PathDecision{Safe: false, Reason: "not in any safe pattern"}
}

// normalize turns a possibly-Windows-flavoured, possibly-dotted path into a
// clean, forward-slash, repository-relative form for matching purposes.
func normalize(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	return filepath.ToSlash(filepath.Clean(p))
}

// hasTraversal detects ".." as a path segment anywhere in the raw or
// cleaned input — checking both guards against a path like "a/../../b"
// that filepath.Clean would otherwise resolve to something that looks safe
// after the fact.
func hasTraversal(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// matches reports whether pattern (using doublestar's "**"/"*" grammar)
// matches path. A malformed pattern never matches rather than erroring —
// path safety must be a total function per the spec's testable properties.
func matches(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return ok
}
