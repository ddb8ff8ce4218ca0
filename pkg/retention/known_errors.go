package retention

import (
	"time"

	"github.com/jhmac/elon/pkg/knownerrors"
)

// PruneKnownErrors opens the known-errors store at path and removes every
// issue that hasn't recurred within maxAge, returning the count removed.
func PruneKnownErrors(path string, maxAge time.Duration, now time.Time) (int, error) {
	store, err := knownerrors.Open(path)
	if err != nil {
		return 0, err
	}
	return store.PruneOlderThan(maxAge, now)
}
