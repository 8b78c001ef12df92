package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// cleanupFiles deletes each file if present, then removes each parent directory
// that is left empty. root itself is never removed. Failures are logged and
// otherwise ignored. It returns every path it removed.
func cleanupFiles(paths []string, root string, log *zap.Logger) []string {
	var removed []string
	dirs := make(map[string]struct{})

	for _, p := range paths {
		if p == "" {
			continue
		}
		dirs[filepath.Dir(p)] = struct{}{}

		if err := os.Remove(p); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Warn("Failed to clean up file", zap.String("path", p), zap.Error(err))
			}
			continue
		}
		removed = append(removed, p)
		log.Info("Cleaned up file", zap.String("path", p))
	}

	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	cleanRoot := filepath.Clean(root)
	for _, d := range sorted {
		if filepath.Clean(d) == cleanRoot {
			continue
		}
		entries, err := os.ReadDir(d)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Warn("Failed to check directory", zap.String("path", d), zap.Error(err))
			}
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(d); err != nil {
			log.Warn("Failed to clean up empty directory", zap.String("path", d), zap.Error(err))
			continue
		}
		removed = append(removed, d)
		log.Info("Cleaned up empty directory", zap.String("path", d))
	}

	return removed
}
