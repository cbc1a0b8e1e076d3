package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanOrphanedTempFiles removes atomic-write temp files older than maxAge
// anywhere under root, left behind by interrupted runs. It returns the number
// of files removed. A missing root is not an error.
func CleanOrphanedTempFiles(root string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return nil // skip unreadable entries
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), TempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
