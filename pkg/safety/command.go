package safety

import (
	"regexp"
	"strings"
)

// CommandDecision is the structured result of a command-safety check.
type CommandDecision struct {
	Allowed bool
	Reason  string
}

// CommandPolicy is the allow-list / deny-list pair used to vet shell
// commands before the Atomic Mutator runs them as a spec's testCommand or
// runtimeValidation.startCommand.
type CommandPolicy struct {
	// AllowedPrefixes are command prefixes that are permitted outright
	// (type-checkers, a package-manager subset, read-only inspection,
	// scoped file movement).
	AllowedPrefixes []string

	// RunPrefixes identifies package-manager "run <script>" invocations
	// whose script name must additionally appear in SafeScripts.
	RunPrefixes []string

	// SafeScripts is the set of script names permitted after a RunPrefixes
	// match (e.g. "test", "lint", "typecheck").
	SafeScripts map[string]bool

	// DenyPatterns are regexes that are authoritative: a match rejects the
	// command regardless of anything else.
	DenyPatterns []*regexp.Regexp
}

// DefaultDenyPatterns matches the destructive/dangerous shapes named in the
// spec: recursive force-delete, piping into a shell interpreter, privilege
// escalation, destructive SQL, forced git pushes, global package installs,
// and shell chaining operators.
func DefaultDenyPatterns() []*regexp.Regexp {
	raw := []string{
		`rm\s+-[a-zA-Z]*r[a-zA-Z]*f`, // rm -rf, rm -fr, rm -Rf, ...
		`rm\s+-[a-zA-Z]*f[a-zA-Z]*r`,
		`\|\s*(sh|bash|zsh)\b`,
		`\bsudo\b`,
		`\bsu\s`,
		`\bDROP\s+TABLE\b`,
		`\bDROP\s+DATABASE\b`,
		`\bTRUNCATE\s+TABLE\b`,
		`\bDELETE\s+FROM\b`,
		`git\s+push\s+(--force|-f)\b`,
		`\bnpm\s+install\s+-g\b`,
		`\byarn\s+global\s+add\b`,
		`&&|\|\||;|\$\(|` + "`",
	}
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, r := range raw {
		out = append(out, regexp.MustCompile(`(?i)`+r))
	}
	return out
}

// DefaultCommandPolicy returns the built-in allow-list: type-checkers, a
// narrow package-manager subset restricted to known-safe scripts, and
// read-only inspection commands.
func DefaultCommandPolicy() CommandPolicy {
	return CommandPolicy{
		AllowedPrefixes: []string{
			"tsc", "tsc --noEmit",
			"npm test", "npm run", "npx tsc",
			"yarn test", "yarn run",
			"go test", "go vet", "go build",
			"cat ", "ls ", "grep ", "find . -name",
			"mv ", "cp ",
			"git status", "git diff", "git log",
		},
		RunPrefixes: []string{"npm run", "yarn run"},
		SafeScripts: map[string]bool{
			"test": true, "lint": true, "typecheck": true, "build": true,
		},
		DenyPatterns: DefaultDenyPatterns(),
	}
}

// CommandSafe evaluates cmd against policy: deny-patterns are authoritative
// and checked first, then the command must start with an allowed prefix,
// and "run <script>" invocations additionally require the script to be in
// SafeScripts.
func CommandSafe(cmd string, policy CommandPolicy) CommandDecision {
	trimmed := strings.TrimSpace(cmd)
	if trimmed == "" {
		return CommandDecision{Allowed: false, Reason: "empty command"}
	}

	for _, deny := range policy.DenyPatterns {
		if deny.MatchString(trimmed) {
			return CommandDecision{Allowed: false, Reason: "matched deny pattern: " + deny.String()}
		}
	}

	var matchedPrefix string
	for _, prefix := range policy.AllowedPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			matchedPrefix = prefix
			break
		}
	}
	if matchedPrefix == "" {
		return CommandDecision{Allowed: false, Reason: "command does not start with an allowed prefix"}
	}

	for _, runPrefix := range policy.RunPrefixes {
		if strings.HasPrefix(trimmed, runPrefix) {
			script := strings.TrimSpace(strings.TrimPrefix(trimmed, runPrefix))
			if sp := strings.Fields(script); len(sp) > 0 {
				script = sp[0]
			}
			if !policy.SafeScripts[script] {
				return CommandDecision{Allowed: false, Reason: "script not in safe-script set: " + script}
			}
		}
	}

	return CommandDecision{Allowed: true, Reason: "matched allowed prefix: " + matchedPrefix}
}
