package observer

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	routePattern = regexp.MustCompile(`(?:router\.|app\.)(?:get|post|put|delete|patch)\(\s*["'\x60]([^"'\x60]+)["'\x60]`)
)

// kindOf classifies a source file by its path for the dependency index,
// matching the schema/routes/services/pages priority order the Constraint
// Engine's build cycle samples in.
func kindOf(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "schema"):
		return "schema"
	case strings.Contains(lower, "route"):
		return "route"
	case strings.Contains(lower, "service"):
		return "service"
	case strings.Contains(lower, "page") || strings.Contains(lower, "view"):
		return "page"
	default:
		return "other"
	}
}

// BuildDependencyIndex statically scans root for source files and maps
// any HTTP-route declarations it finds to the file that declares them.
// It is a best-effort regex scan, not a compiler — a miss here only means
// a thinner dependency index, never an incorrect one.
func BuildDependencyIndex(root string, extensions []string) ([]DependencyEdge, error) {
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[ext] = true
	}

	var edges []DependencyEdge
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == "node_modules" || info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !wanted[filepath.Ext(path)] {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		edges = append(edges, routeEdgesIn(path, rel)...)
		return nil
	})
	return edges, err
}

func routeEdgesIn(absPath, relPath string) []DependencyEdge {
	f, err := os.Open(absPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var edges []DependencyEdge
	kind := kindOf(relPath)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		for _, match := range routePattern.FindAllStringSubmatch(scanner.Text(), -1) {
			edges = append(edges, DependencyEdge{Endpoint: match[1], FilePath: relPath, Kind: kind})
		}
	}
	return edges
}
