package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MirrorPath maps a slash- or OS-separated path relative to the input root
// onto outRoot, replacing the file extension with ext (".jpg").
// rel must stay inside the root.
func MirrorPath(outRoot, rel, ext string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the output root", rel)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	without := strings.TrimSuffix(clean, filepath.Ext(clean))
	return filepath.Join(outRoot, without+strings.ToLower(ext)), nil
}
