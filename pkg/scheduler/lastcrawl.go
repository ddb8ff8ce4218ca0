package scheduler

import (
	"encoding/json"
	"path/filepath"

	"github.com/jhmac/elon/internal/fsatomic"
	"github.com/jhmac/elon/pkg/observer"
)

const lastCrawlFile = "last-crawl.json"

func writeLastCrawl(dataDir string, bundle *observer.Bundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return err
	}
	return fsatomic.WriteFile(filepath.Join(dataDir, lastCrawlFile), data, 0o644)
}
