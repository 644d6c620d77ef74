// Package catalog finds strategy artifacts on disk and keeps a SQLite
// registry of the ones that have been built and verified.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MJE43/pd-arena/internal/strategy"
)

// Artifact is a loadable strategy file found on disk.
type Artifact struct {
	Name string        `json:"name"`
	Path string        `json:"path"`
	Kind strategy.Kind `json:"kind"`
}

// Discover lists supported artifacts directly under root and one directory
// below it (compiled artifacts usually sit in per-runtime subfolders such as
// ".class"). Results are sorted by path.
func Discover(root string) ([]Artifact, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("catalog: strategy folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: strategy folder %s is not a directory", root)
	}

	var out []Artifact
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		depth := strings.Count(rel, string(filepath.Separator))
		if d.IsDir() {
			if path != root && depth >= 1 {
				return filepath.SkipDir
			}
			return nil
		}
		kind, err := strategy.KindOf(path)
		if err != nil {
			return nil
		}
		out = append(out, Artifact{Name: strategy.NameOf(path), Path: path, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: walk %s: %w", root, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Paths returns the artifact paths in order.
func Paths(artifacts []Artifact) []string {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.Path
	}
	return paths
}
