// Package ingest discovers intake documents on the local filesystem: a
// one-shot directory walk for batch runs, and an fsnotify watcher for
// watch mode.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/formintake/formintake/constants"
	"github.com/formintake/formintake/internal/common"
)

// DirStats summarizes one discovery walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// Discover walks root and returns supported document paths in walk order.
// Hidden entries are skipped; unreadable entries are counted and skipped
// rather than aborting the walk.
func Discover(root string) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.ConfigurationFault("input directory is required", nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, DirStats{}, common.SourceFault(fmt.Sprintf("stat %s", root), err)
	}
	if !info.IsDir() {
		return nil, DirStats{}, common.SourceFault(fmt.Sprintf("%s is not a directory", root), nil)
	}

	var paths []string
	var stats DirStats

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !constants.SupportedExt(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, common.SourceFault(fmt.Sprintf("walk %s", root), err)
	}
	return paths, stats, nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
