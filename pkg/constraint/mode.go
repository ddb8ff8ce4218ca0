package constraint

import "github.com/jhmac/elon/pkg/observer"

// MaxConsecutiveFixCycles is the threshold after which "auto" mode
// prefers build over fix, absent a high-severity defect.
const MaxConsecutiveFixCycles = 3

// DecideMode resolves the engine's operating mode for the next cycle.
// An explicit modeOverride always wins; otherwise "auto" mode follows
// §4.6's rule: always fix on any high-severity evidence; after
// MaxConsecutiveFixCycles consecutive fix cycles (a count that only a
// build cycle resets, whether or not a fix cycle solved anything), prefer build;
// after a build cycle that produced specs, prefer fix.
func DecideMode(log *EngineLog, evidence *observer.Bundle) Mode {
	if log.ModeOverride != "" {
		return log.ModeOverride
	}

	if evidence != nil && evidence.HasHighSeverity() {
		return ModeFix
	}

	if log.LastMode == ModeBuild {
		return ModeFix
	}

	if log.ConsecutiveFixCycles >= MaxConsecutiveFixCycles {
		return ModeBuild
	}

	return ModeFix
}
